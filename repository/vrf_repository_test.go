package repository

import (
	"context"
	"testing"
	"time"

	"raffle/domain/entities"
	"raffle/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVRFRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := newVRFRepository(testDB.DB)
	owner := testutil.TestAddress(7)

	sub, err := repo.CreateSubscription(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sub.ID)
	assert.Equal(t, int64(0), sub.Balance)

	t.Run("subscription balance", func(t *testing.T) {
		require.NoError(t, repo.UpdateSubscriptionBalance(ctx, sub.ID, 1000))

		got, err := repo.GetSubscriptionForUpdate(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), got.Balance)
		assert.Equal(t, owner, got.Owner)

		missing, err := repo.GetSubscription(ctx, 42)
		require.NoError(t, err)
		assert.Nil(t, missing)

		assert.Error(t, repo.UpdateSubscriptionBalance(ctx, 42, 1))
		assert.Error(t, repo.UpdateSubscriptionBalance(ctx, sub.ID, -1))
	})

	raffleID := testutil.InsertRaffle(t, testDB.DB, "vrf", sub.ID, 100, time.Minute, time.Now())

	t.Run("consumers", func(t *testing.T) {
		// InsertRaffle already registered the raffle; adding again is a no-op
		require.NoError(t, repo.AddConsumer(ctx, sub.ID, raffleID))

		ok, err := repo.IsConsumer(ctx, sub.ID, raffleID)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, repo.RemoveConsumer(ctx, sub.ID, raffleID))
		ok, err = repo.IsConsumer(ctx, sub.ID, raffleID)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, repo.AddConsumer(ctx, sub.ID, raffleID))
	})

	t.Run("requests", func(t *testing.T) {
		first := &entities.RandomnessRequest{
			SubscriptionID: sub.ID, RaffleID: raffleID, KeyHash: testutil.TestKeyHash,
			MinimumConfirmations: 3, CallbackGasLimit: 500000, NumWords: 2,
		}
		second := *first
		require.NoError(t, repo.CreateRequest(ctx, first))
		require.NoError(t, repo.CreateRequest(ctx, &second))
		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)

		pending, err := repo.GetPendingRequests(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, testutil.TestKeyHash, pending[0].KeyHash)
		assert.Equal(t, uint32(2), pending[0].NumWords)

		locked, err := repo.GetRequestForUpdate(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, locked)
		assert.False(t, locked.IsFulfilled())

		locked.Fulfill(250, time.Now())
		require.NoError(t, repo.MarkFulfilled(ctx, locked))
		assert.Error(t, repo.MarkFulfilled(ctx, locked), "a request is fulfilled once")

		fulfilled, err := repo.GetRequestForUpdate(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, fulfilled.IsFulfilled())
		require.NotNil(t, fulfilled.Payment)
		assert.Equal(t, int64(250), *fulfilled.Payment)

		pending, err = repo.GetPendingRequests(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, second.ID, pending[0].ID)

		missing, err := repo.GetRequestForUpdate(ctx, 99)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestAccountAndBalanceHistoryRepositories(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	accounts := newAccountRepository(testDB.DB)
	history := newBalanceHistoryRepository(testDB.DB)
	address := testutil.TestAddress(21)

	missing, err := accounts.GetByAddress(ctx, address)
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := accounts.Create(ctx, address, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), created.Balance)

	require.NoError(t, accounts.UpdateBalance(ctx, address, 400))
	require.NoError(t, accounts.SetFrozen(ctx, address, true))

	locked, err := accounts.GetByAddressForUpdate(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, int64(400), locked.Balance)
	assert.True(t, locked.Frozen)
	assert.False(t, locked.CanPay(1))

	assert.Error(t, accounts.UpdateBalance(ctx, address, -1), "balances cannot go negative")
	assert.Error(t, accounts.SetFrozen(ctx, testutil.TestAddress(99), true))

	entry := &entities.BalanceHistory{
		Address:             address,
		BalanceBefore:       500,
		BalanceAfter:        400,
		ChangeAmount:        -100,
		TransactionType:     entities.TransactionTypeRaffleEntry,
		TransactionMetadata: map[string]any{"round": 1},
	}
	require.NoError(t, history.Record(ctx, entry))
	assert.Positive(t, entry.ID)

	recent, err := history.GetByAddress(ctx, address, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(-100), recent[0].ChangeAmount)
	assert.Equal(t, entities.TransactionTypeRaffleEntry, recent[0].TransactionType)
	assert.EqualValues(t, 1, recent[0].TransactionMetadata["round"])

	ranged, err := history.GetByDateRange(ctx, address, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, ranged, 1)
}
