package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// VRFSubscription pays for randomness requests made by its consumers
type VRFSubscription struct {
	ID        int64          `db:"id"`
	Owner     common.Address `db:"owner"`
	Balance   int64          `db:"balance"`
	CreatedAt time.Time      `db:"created_at"`
}

// RandomnessRequest is a pending or fulfilled request for random words
type RandomnessRequest struct {
	ID                   int64       `db:"id"`
	SubscriptionID       int64       `db:"subscription_id"`
	RaffleID             int64       `db:"raffle_id"` // Consumer that receives the callback
	KeyHash              common.Hash `db:"key_hash"`
	MinimumConfirmations uint16      `db:"minimum_confirmations"`
	CallbackGasLimit     uint32      `db:"callback_gas_limit"`
	NumWords             uint32      `db:"num_words"`
	Payment              *int64      `db:"payment"`      // NULL until fulfilled
	FulfilledAt          *time.Time  `db:"fulfilled_at"` // NULL until fulfilled
	CreatedAt            time.Time   `db:"created_at"`
}

// IsFulfilled returns true if the request has already been answered
func (r *RandomnessRequest) IsFulfilled() bool {
	return r.FulfilledAt != nil
}

// Fulfill marks the request as answered
func (r *RandomnessRequest) Fulfill(payment int64, at time.Time) {
	r.Payment = &payment
	r.FulfilledAt = &at
}
