package repository

import (
	"context"
	"sync"
	"testing"

	"raffle/domain/entities"
	"raffle/events"
	"raffle/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	var mu sync.Mutex
	var received []events.Event
	bus.Subscribe(events.EventTypeBalanceChange, func(_ context.Context, event events.Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
	})
	delivered := func() int {
		bus.Wait()
		mu.Lock()
		defer mu.Unlock()
		return len(received)
	}

	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	accounts := newAccountRepository(testDB.DB)

	t.Run("commit persists and flushes events", func(t *testing.T) {
		address := testutil.TestAddress(1)

		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		_, err := uow.AccountRepository().Create(ctx, address, 100)
		require.NoError(t, err)
		require.NoError(t, uow.EventBus().Publish(events.BalanceChangeEvent{
			Address:         address,
			NewBalance:      100,
			TransactionType: entities.TransactionTypeDeposit,
			ChangeAmount:    100,
		}))

		assert.Equal(t, 0, delivered())
		require.NoError(t, uow.Commit())
		assert.Equal(t, 1, delivered())

		account, err := accounts.GetByAddress(ctx, address)
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, int64(100), account.Balance)

		// Rollback after commit is a no-op
		assert.NoError(t, uow.Rollback())
	})

	t.Run("rollback discards writes and events", func(t *testing.T) {
		address := testutil.TestAddress(2)
		before := delivered()

		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		_, err := uow.AccountRepository().Create(ctx, address, 50)
		require.NoError(t, err)
		require.NoError(t, uow.EventBus().Publish(events.BalanceChangeEvent{Address: address}))
		require.NoError(t, uow.Rollback())

		assert.Equal(t, before, delivered())
		account, err := accounts.GetByAddress(ctx, address)
		require.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("read-only transactions reject writes", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.BeginReadOnly(ctx))
		defer uow.Rollback()

		account, err := uow.AccountRepository().GetByAddress(ctx, testutil.TestAddress(1))
		require.NoError(t, err)
		assert.NotNil(t, account)

		_, err = uow.AccountRepository().Create(ctx, testutil.TestAddress(3), 1)
		assert.Error(t, err)
	})

	t.Run("begin twice fails", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		assert.Error(t, uow.Begin(ctx))
		assert.Error(t, uow.BeginReadOnly(ctx))
	})
}
