package application

import (
	"context"

	"raffle/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// BeginReadOnly starts a transaction that rejects writes
	BeginReadOnly(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	RaffleRepository() interfaces.RaffleRepository
	RaffleEntryRepository() interfaces.RaffleEntryRepository
	RaffleWinnerRepository() interfaces.RaffleWinnerRepository
	AccountRepository() interfaces.AccountRepository
	BalanceHistoryRepository() interfaces.BalanceHistoryRepository
	VRFRepository() interfaces.VRFRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
