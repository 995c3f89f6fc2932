package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RaffleEntry represents a single paid entry into a raffle round
type RaffleEntry struct {
	ID               int64          `db:"id"`
	RaffleID         int64          `db:"raffle_id"`
	Round            int64          `db:"round"`
	Position         int64          `db:"position"` // Zero-based index in the round's player list
	Player           common.Address `db:"player"`
	Amount           int64          `db:"amount"`
	BalanceHistoryID int64          `db:"balance_history_id"`
	EnteredAt        time.Time      `db:"entered_at"`
}

// RaffleParticipantInfo summarizes a player's entries in a round
type RaffleParticipantInfo struct {
	Player     common.Address `db:"player"`
	EntryCount int64          `db:"entry_count"`
	TotalPaid  int64          `db:"total_paid"`
}
