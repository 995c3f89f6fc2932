package entities

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RaffleState represents the lifecycle state of a raffle round
type RaffleState string

const (
	RaffleStateOpen        RaffleState = "open"
	RaffleStateCalculating RaffleState = "calculating"
)

// Ordinal returns the numeric encoding used by external readers (0 = open, 1 = calculating)
func (s RaffleState) Ordinal() int {
	switch s {
	case RaffleStateOpen:
		return 0
	case RaffleStateCalculating:
		return 1
	default:
		return -1
	}
}

// IsValid returns true if the state is one of the known raffle states
func (s RaffleState) IsValid() bool {
	return s == RaffleStateOpen || s == RaffleStateCalculating
}

// String returns the string representation of the raffle state
func (s RaffleState) String() string {
	return string(s)
}

// RaffleStateFromOrdinal converts the numeric encoding back to a state
func RaffleStateFromOrdinal(ordinal int) (RaffleState, error) {
	switch ordinal {
	case 0:
		return RaffleStateOpen, nil
	case 1:
		return RaffleStateCalculating, nil
	default:
		return "", fmt.Errorf("unknown raffle state ordinal %d", ordinal)
	}
}

// Raffle represents a deployed raffle and its current round
type Raffle struct {
	ID                   int64           `db:"id"`
	Name                 string          `db:"name"`
	EntranceFee          int64           `db:"entrance_fee"`          // Immutable after creation
	Interval             time.Duration   `db:"interval_seconds"`      // Immutable after creation
	KeyHash              common.Hash     `db:"key_hash"`              // VRF gas lane
	SubscriptionID       int64           `db:"subscription_id"`       // VRF subscription funding requests
	CallbackGasLimit     uint32          `db:"callback_gas_limit"`    // Gas budget for the fulfillment callback
	RequestConfirmations uint16          `db:"request_confirmations"` // Confirmations the oracle waits before answering
	NumWords             uint32          `db:"num_words"`             // Random words requested per settlement
	State                RaffleState     `db:"state"`
	Pool                 int64           `db:"pool"`
	NumPlayers           int64           `db:"num_players"`
	Round                int64           `db:"round"` // Entries belong to the round they were made in
	LastSettlementAt     time.Time       `db:"last_settlement_at"`
	PendingRequestID     *int64          `db:"pending_request_id"` // NULL unless calculating
	RecentWinner         *common.Address `db:"recent_winner"`
	CreatedAt            time.Time       `db:"created_at"`
}

// IsOpen returns true if the raffle accepts entries
func (r *Raffle) IsOpen() bool {
	return r.State == RaffleStateOpen
}

// IsCalculating returns true if a winner is being selected
func (r *Raffle) IsCalculating() bool {
	return r.State == RaffleStateCalculating
}

// HasPlayers returns true if at least one entry exists in the current round
func (r *Raffle) HasPlayers() bool {
	return r.NumPlayers > 0
}

// IntervalElapsed returns true if the interval has passed since the last settlement
func (r *Raffle) IntervalElapsed(now time.Time) bool {
	return now.Sub(r.LastSettlementAt) >= r.Interval
}

// IsAwaiting returns true if the raffle is calculating and waiting for the given request
func (r *Raffle) IsAwaiting(requestID int64) bool {
	return r.IsCalculating() && r.PendingRequestID != nil && *r.PendingRequestID == requestID
}

// CheckUpkeep evaluates whether the raffle is due for settlement at the given time
func (r *Raffle) CheckUpkeep(now time.Time) *UpkeepCheck {
	check := &UpkeepCheck{
		TimePassed: r.IntervalElapsed(now),
		IsOpen:     r.IsOpen(),
		HasBalance: r.Pool > 0,
		HasPlayers: r.HasPlayers(),
	}
	check.Needed = check.TimePassed && check.IsOpen && check.HasBalance && check.HasPlayers
	return check
}

// AcceptEntry adds a paid entry to the current round
func (r *Raffle) AcceptEntry(amount int64) {
	r.Pool += amount
	r.NumPlayers++
}

// BeginCalculating locks the round against new entries until the request is fulfilled
func (r *Raffle) BeginCalculating(requestID int64) {
	r.State = RaffleStateCalculating
	r.PendingRequestID = &requestID
}

// CompleteRound records the winner and reopens the raffle with an empty round
func (r *Raffle) CompleteRound(winner common.Address, settledAt time.Time) {
	r.RecentWinner = &winner
	r.Pool = 0
	r.NumPlayers = 0
	r.Round++
	if settledAt.After(r.LastSettlementAt) {
		r.LastSettlementAt = settledAt
	}
	r.State = RaffleStateOpen
	r.PendingRequestID = nil
}

// UpkeepCheck holds the individual conditions that make up the upkeep predicate
type UpkeepCheck struct {
	Needed     bool
	TimePassed bool
	IsOpen     bool
	HasBalance bool
	HasPlayers bool
}

// Reason describes the first failed condition, or an empty string if upkeep is needed
func (c *UpkeepCheck) Reason() string {
	switch {
	case c.Needed:
		return ""
	case !c.IsOpen:
		return "raffle is not open"
	case !c.TimePassed:
		return "interval has not elapsed"
	case !c.HasPlayers:
		return "no players"
	case !c.HasBalance:
		return "pool is empty"
	default:
		return "unknown"
	}
}

// SelectWinnerIndex maps a random word onto a participant index (word mod n).
// The mapping is deterministic so any replay with the same word and player
// list selects the same winner.
func SelectWinnerIndex(randomWord *big.Int, numPlayers int) (int, error) {
	if numPlayers <= 0 {
		return 0, fmt.Errorf("cannot select a winner from %d players", numPlayers)
	}
	if randomWord == nil {
		return 0, fmt.Errorf("random word is nil")
	}
	index := new(big.Int).Mod(randomWord, big.NewInt(int64(numPlayers)))
	return int(index.Int64()), nil
}
