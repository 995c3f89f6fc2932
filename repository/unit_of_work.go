package repository

import (
	"context"
	"fmt"

	"raffle/application"
	"raffle/database"
	"raffle/domain/interfaces"
	"raffle/events"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                 *database.DB
	tx                 pgx.Tx
	ctx                context.Context
	transactionalBus   *events.TransactionalBus
	raffleRepo         interfaces.RaffleRepository
	raffleEntryRepo    interfaces.RaffleEntryRepository
	raffleWinnerRepo   interfaces.RaffleWinnerRepository
	accountRepo        interfaces.AccountRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	vrfRepo            interfaces.VRFRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) application.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() application.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	return u.begin(ctx, pgx.TxOptions{})
}

// BeginReadOnly starts a transaction for queries that must not write
func (u *unitOfWork) BeginReadOnly(ctx context.Context) error {
	return u.begin(ctx, database.ReadOnly)
}

func (u *unitOfWork) begin(ctx context.Context, opts pgx.TxOptions) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.raffleRepo = newRaffleRepository(tx)
	u.raffleEntryRepo = newRaffleEntryRepository(tx)
	u.raffleWinnerRepo = newRaffleWinnerRepository(tx)
	u.accountRepo = newAccountRepository(tx)
	u.balanceHistoryRepo = newBalanceHistoryRepository(tx)
	u.vrfRepo = newVRFRepository(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		u.tx = nil
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil
	u.transactionalBus.Flush(u.ctx)

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil
	u.transactionalBus.Discard()

	return nil
}

// RaffleRepository returns the raffle repository for this unit of work
func (u *unitOfWork) RaffleRepository() interfaces.RaffleRepository {
	if u.raffleRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.raffleRepo
}

// RaffleEntryRepository returns the raffle entry repository for this unit of work
func (u *unitOfWork) RaffleEntryRepository() interfaces.RaffleEntryRepository {
	if u.raffleEntryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.raffleEntryRepo
}

// RaffleWinnerRepository returns the raffle winner repository for this unit of work
func (u *unitOfWork) RaffleWinnerRepository() interfaces.RaffleWinnerRepository {
	if u.raffleWinnerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.raffleWinnerRepo
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// BalanceHistoryRepository returns the balance history repository for this unit of work
func (u *unitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	if u.balanceHistoryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.balanceHistoryRepo
}

// VRFRepository returns the coordinator repository for this unit of work
func (u *unitOfWork) VRFRepository() interfaces.VRFRepository {
	if u.vrfRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.vrfRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
