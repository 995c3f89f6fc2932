package interfaces

import (
	"context"
	"time"

	"raffle/domain/entities"
	"raffle/events"

	"github.com/ethereum/go-ethereum/common"
)

// RaffleRepository defines the interface for raffle data access
type RaffleRepository interface {
	// Create inserts a new raffle and fills in its generated fields
	Create(ctx context.Context, raffle *entities.Raffle) error

	// GetByID returns the raffle or nil if it does not exist
	GetByID(ctx context.Context, id int64) (*entities.Raffle, error)

	// GetByIDForUpdate returns the raffle with its row locked until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Raffle, error)

	// GetByName returns the raffle with the given unique name or nil
	GetByName(ctx context.Context, name string) (*entities.Raffle, error)

	// List returns all raffles ordered by ID
	List(ctx context.Context) ([]*entities.Raffle, error)

	// Update persists the mutable round state of a raffle
	Update(ctx context.Context, raffle *entities.Raffle) error
}

// RaffleEntryRepository defines the interface for raffle entry data access
type RaffleEntryRepository interface {
	Create(ctx context.Context, entry *entities.RaffleEntry) error

	// GetPlayers returns the players of a round in entry order
	GetPlayers(ctx context.Context, raffleID, round int64) ([]common.Address, error)

	// GetByPosition returns the entry at the given index of a round or nil
	GetByPosition(ctx context.Context, raffleID, round, position int64) (*entities.RaffleEntry, error)

	// GetParticipantSummary aggregates entries per player for a round
	GetParticipantSummary(ctx context.Context, raffleID, round int64) ([]*entities.RaffleParticipantInfo, error)

	// SumAmounts returns the total paid into a round
	SumAmounts(ctx context.Context, raffleID, round int64) (int64, error)
}

// RaffleWinnerRepository defines the interface for settled round data access
type RaffleWinnerRepository interface {
	Create(ctx context.Context, winner *entities.RaffleWinner) error
	GetByRaffle(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleWinner, error)
}

// AccountRepository defines the interface for participant account data access
type AccountRepository interface {
	GetByAddress(ctx context.Context, address common.Address) (*entities.Account, error)
	GetByAddressForUpdate(ctx context.Context, address common.Address) (*entities.Account, error)
	Create(ctx context.Context, address common.Address, initialBalance int64) (*entities.Account, error)
	UpdateBalance(ctx context.Context, address common.Address, newBalance int64) error
	SetFrozen(ctx context.Context, address common.Address, frozen bool) error
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	Record(ctx context.Context, history *entities.BalanceHistory) error
	GetByAddress(ctx context.Context, address common.Address, limit int) ([]*entities.BalanceHistory, error)
	GetByDateRange(ctx context.Context, address common.Address, from, to time.Time) ([]*entities.BalanceHistory, error)
}

// VRFRepository defines the interface for the coordinator's subscriptions and requests
type VRFRepository interface {
	CreateSubscription(ctx context.Context, owner common.Address) (*entities.VRFSubscription, error)
	GetSubscription(ctx context.Context, id int64) (*entities.VRFSubscription, error)
	GetSubscriptionForUpdate(ctx context.Context, id int64) (*entities.VRFSubscription, error)
	UpdateSubscriptionBalance(ctx context.Context, id int64, balance int64) error

	AddConsumer(ctx context.Context, subscriptionID, raffleID int64) error
	RemoveConsumer(ctx context.Context, subscriptionID, raffleID int64) error
	IsConsumer(ctx context.Context, subscriptionID, raffleID int64) (bool, error)

	CreateRequest(ctx context.Context, request *entities.RandomnessRequest) error
	GetRequestForUpdate(ctx context.Context, id int64) (*entities.RandomnessRequest, error)
	MarkFulfilled(ctx context.Context, request *entities.RandomnessRequest) error
	GetPendingRequests(ctx context.Context) ([]*entities.RandomnessRequest, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}
