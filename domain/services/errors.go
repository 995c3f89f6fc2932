package services

import (
	"errors"
	"fmt"

	"raffle/domain/entities"
)

var (
	// Entry validation
	ErrInsufficientFee = errors.New("insufficient entrance fee")
	ErrNotOpen         = errors.New("raffle is not open")

	// Settlement
	ErrUpkeepNotNeeded = errors.New("upkeep not needed")
	ErrUnknownRequest  = errors.New("unknown randomness request")
	ErrNoRandomWords   = errors.New("no random words delivered")
	ErrTransferFailed  = errors.New("transfer to winner failed")

	// Lookups and construction
	ErrRaffleNotFound = errors.New("raffle not found")
	ErrPlayerIndex    = errors.New("player index out of range")
	ErrInvalidConfig  = errors.New("invalid raffle configuration")

	// Wallet
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountFrozen     = errors.New("account is frozen")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRecipientRejected = errors.New("recipient cannot accept funds")
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// UpkeepNotNeededError carries the raffle state that made upkeep unnecessary
type UpkeepNotNeededError struct {
	RaffleID   int64
	Pool       int64
	NumPlayers int64
	State      entities.RaffleState
	Check      *entities.UpkeepCheck
}

// Error implements the error interface
func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("upkeep not needed for raffle %d: %s (pool=%d, players=%d, state=%s)",
		e.RaffleID, e.Check.Reason(), e.Pool, e.NumPlayers, e.State)
}

// Is reports whether the target is ErrUpkeepNotNeeded
func (e *UpkeepNotNeededError) Is(target error) bool {
	return target == ErrUpkeepNotNeeded
}
