package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffle/events"
	"raffle/infrastructure/vrf"

	log "github.com/sirupsen/logrus"
)

// Fulfiller answers randomness requests as they are announced
type Fulfiller struct {
	ops         FulfillOperations
	maxAttempts int
	retryDelay  time.Duration
}

// NewFulfiller creates a fulfiller that tries each request up to maxAttempts times
func NewFulfiller(ops FulfillOperations, maxAttempts int, retryDelay time.Duration) *Fulfiller {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Fulfiller{
		ops:         ops,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}
}

// SubscribeToBus answers requests announced on the in-process bus
func (f *Fulfiller) SubscribeToBus(bus *events.Bus) {
	bus.Subscribe(events.EventTypeRandomWordsRequested, func(ctx context.Context, event events.Event) {
		if err := f.HandleEvent(ctx, event); err != nil {
			log.WithError(err).Error("Failed to fulfill randomness request")
		}
	})
}

// SubscribeTo answers requests delivered by an external transport
func (f *Fulfiller) SubscribeTo(subscriber EventSubscriber) error {
	return subscriber.Subscribe(events.EventTypeRandomWordsRequested, f.HandleEvent)
}

// HandleEvent fulfills the request carried by a RandomWordsRequested event
func (f *Fulfiller) HandleEvent(ctx context.Context, event events.Event) error {
	requested, ok := event.(events.RandomWordsRequestedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	return f.Fulfill(ctx, requested.RequestID)
}

// Fulfill answers one request, retrying failed attempts. A request that is
// already answered counts as done.
func (f *Fulfiller) Fulfill(ctx context.Context, requestID int64) error {
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		_, err := f.ops.FulfillRequest(ctx, requestID)
		if err == nil {
			return nil
		}
		if errors.Is(err, vrf.ErrNonexistentRequest) {
			log.WithField("requestID", requestID).Debug("Request already fulfilled")
			return nil
		}

		lastErr = err
		log.WithFields(log.Fields{
			"requestID": requestID,
			"attempt":   attempt,
			"error":     err,
		}).Warn("Fulfillment attempt failed")

		if attempt == f.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.retryDelay):
		}
	}

	return fmt.Errorf("request %d not fulfilled after %d attempts: %w", requestID, f.maxAttempts, lastErr)
}

// DrainPending fulfills every request left pending, e.g. by a restart
func (f *Fulfiller) DrainPending(ctx context.Context) error {
	pending, err := f.ops.PendingRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending requests: %w", err)
	}

	var failures int
	for _, request := range pending {
		if err := f.Fulfill(ctx, request.ID); err != nil {
			log.WithError(err).WithField("requestID", request.ID).Error("Pending request not fulfilled")
			failures++
		}
	}

	log.WithFields(log.Fields{
		"pending": len(pending),
		"failed":  failures,
	}).Info("Drained pending randomness requests")

	if failures > 0 {
		return fmt.Errorf("%d of %d pending requests not fulfilled", failures, len(pending))
	}
	return nil
}
