package application

import (
	"context"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/events"
	"raffle/infrastructure/vrf"
)

// UpkeepOperations is what the upkeep worker needs from the application
type UpkeepOperations interface {
	ListRaffles(ctx context.Context) ([]*entities.Raffle, error)
	CheckUpkeep(ctx context.Context, raffleID int64) (*entities.UpkeepCheck, error)
	PerformUpkeep(ctx context.Context, raffleID int64) (*interfaces.UpkeepResult, error)
}

// FulfillOperations is what the fulfiller needs from the application
type FulfillOperations interface {
	FulfillRequest(ctx context.Context, requestID int64) (*vrf.FulfillResult, error)
	PendingRequests(ctx context.Context) ([]*entities.RandomnessRequest, error)
}

// EventSubscriber delivers events from an external transport; a handler
// error asks the transport to redeliver
type EventSubscriber interface {
	Subscribe(eventType events.EventType, handler func(context.Context, events.Event) error) error
}
