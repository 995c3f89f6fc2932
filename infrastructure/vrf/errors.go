package vrf

import "errors"

var (
	ErrInvalidSubscription = errors.New("invalid subscription")
	ErrInvalidConsumer     = errors.New("invalid consumer")
	ErrNonexistentRequest  = errors.New("nonexistent request")
	ErrInsufficientBalance = errors.New("insufficient subscription balance")
	ErrNumWordsTooBig      = errors.New("too many random words requested")
	ErrNonPositiveAmount   = errors.New("amount must be positive")
)

// FulfillError is returned when a loaded request could not be fulfilled.
// It carries the request's raffle so callers can attribute the failure.
type FulfillError struct {
	RequestID int64
	RaffleID  int64
	Err       error
}

func (e *FulfillError) Error() string {
	return e.Err.Error()
}

func (e *FulfillError) Unwrap() error {
	return e.Err
}

// FailedRaffleID returns the raffle of a failed fulfillment, or 0 when the
// request was never resolved
func FailedRaffleID(err error) int64 {
	var fe *FulfillError
	if errors.As(err, &fe) {
		return fe.RaffleID
	}
	return 0
}
