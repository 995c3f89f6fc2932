package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RaffleWinner records the outcome of a settled round
type RaffleWinner struct {
	ID               int64          `db:"id"`
	RaffleID         int64          `db:"raffle_id"`
	Round            int64          `db:"round"`
	RequestID        int64          `db:"request_id"`
	RandomWord       string         `db:"random_word"` // Decimal encoding, words are unbounded
	WinnerIndex      int64          `db:"winner_index"`
	Winner           common.Address `db:"winner"`
	Payout           int64          `db:"payout"`
	PlayerCount      int64          `db:"player_count"`
	BalanceHistoryID int64          `db:"balance_history_id"`
	SettledAt        time.Time      `db:"settled_at"`
}
