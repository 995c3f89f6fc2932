package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/domain/testhelpers"
	"raffle/events"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testRaffleID    = int64(1)
	testEntranceFee = int64(100)
	testInterval    = 30 * time.Second
)

var (
	testNow     = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	testKeyHash = common.HexToHash("0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc")
	player1     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	player2     = common.HexToAddress("0x2000000000000000000000000000000000000002")
	player3     = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

type raffleMocks struct {
	RaffleRepo     *testhelpers.MockRaffleRepository
	EntryRepo      *testhelpers.MockRaffleEntryRepository
	WinnerRepo     *testhelpers.MockRaffleWinnerRepository
	Funds          *testhelpers.MockFundsTransfer
	Coordinator    *testhelpers.MockRandomnessCoordinator
	EventPublisher *testhelpers.MockEventPublisher
}

func newRaffleMocks() *raffleMocks {
	return &raffleMocks{
		RaffleRepo:     new(testhelpers.MockRaffleRepository),
		EntryRepo:      new(testhelpers.MockRaffleEntryRepository),
		WinnerRepo:     new(testhelpers.MockRaffleWinnerRepository),
		Funds:          new(testhelpers.MockFundsTransfer),
		Coordinator:    new(testhelpers.MockRandomnessCoordinator),
		EventPublisher: new(testhelpers.MockEventPublisher),
	}
}

func (m *raffleMocks) service(now time.Time) interfaces.RaffleService {
	return NewRaffleService(
		m.RaffleRepo, m.EntryRepo, m.WinnerRepo, m.Funds, m.Coordinator, m.EventPublisher,
		WithClock(func() time.Time { return now }),
	)
}

func (m *raffleMocks) assertExpectations(t *testing.T) {
	m.RaffleRepo.AssertExpectations(t)
	m.EntryRepo.AssertExpectations(t)
	m.WinnerRepo.AssertExpectations(t)
	m.Funds.AssertExpectations(t)
	m.Coordinator.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// Helper to create a test raffle with common defaults
func createTestRaffle(opts ...func(*entities.Raffle)) *entities.Raffle {
	raffle := &entities.Raffle{
		ID:                   testRaffleID,
		Name:                 "weekly",
		EntranceFee:          testEntranceFee,
		Interval:             testInterval,
		KeyHash:              testKeyHash,
		SubscriptionID:       1,
		CallbackGasLimit:     500000,
		RequestConfirmations: 3,
		NumWords:             1,
		State:                entities.RaffleStateOpen,
		Round:                1,
		LastSettlementAt:     testNow.Add(-time.Hour),
		CreatedAt:            testNow.Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(raffle)
	}
	return raffle
}

func withPlayers(n int64) func(*entities.Raffle) {
	return func(r *entities.Raffle) {
		r.NumPlayers = n
		r.Pool = n * testEntranceFee
	}
}

func withPending(requestID int64) func(*entities.Raffle) {
	return func(r *entities.Raffle) {
		r.State = entities.RaffleStateCalculating
		r.PendingRequestID = &requestID
	}
}

func withLastSettlement(at time.Time) func(*entities.Raffle) {
	return func(r *entities.Raffle) {
		r.LastSettlementAt = at
	}
}

func TestRaffleService_CreateRaffle(t *testing.T) {
	t.Parallel()

	valid := interfaces.CreateRaffleParams{
		Name:             "weekly",
		EntranceFee:      testEntranceFee,
		Interval:         testInterval,
		KeyHash:          testKeyHash,
		SubscriptionID:   1,
		CallbackGasLimit: 500000,
	}

	tests := []struct {
		name    string
		modify  func(*interfaces.CreateRaffleParams)
		wantErr bool
	}{
		{name: "valid parameters"},
		{name: "zero entrance fee", modify: func(p *interfaces.CreateRaffleParams) { p.EntranceFee = 0 }, wantErr: true},
		{name: "zero interval", modify: func(p *interfaces.CreateRaffleParams) { p.Interval = 0 }, wantErr: true},
		{name: "missing key hash", modify: func(p *interfaces.CreateRaffleParams) { p.KeyHash = common.Hash{} }, wantErr: true},
		{name: "missing subscription", modify: func(p *interfaces.CreateRaffleParams) { p.SubscriptionID = 0 }, wantErr: true},
		{name: "zero callback gas limit", modify: func(p *interfaces.CreateRaffleParams) { p.CallbackGasLimit = 0 }, wantErr: true},
		{name: "missing name", modify: func(p *interfaces.CreateRaffleParams) { p.Name = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newRaffleMocks()
			params := valid
			if tt.modify != nil {
				tt.modify(&params)
			}
			if !tt.wantErr {
				m.RaffleRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Raffle")).
					Run(func(args mock.Arguments) {
						args.Get(1).(*entities.Raffle).ID = testRaffleID
					}).Return(nil)
			}

			raffle, err := m.service(testNow).CreateRaffle(context.Background(), params)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Nil(t, raffle)
				m.RaffleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, testRaffleID, raffle.ID)
			assert.Equal(t, entities.RaffleStateOpen, raffle.State)
			assert.Equal(t, testNow, raffle.LastSettlementAt)
			assert.Equal(t, int64(0), raffle.Pool)
			assert.Equal(t, int64(0), raffle.NumPlayers)
			assert.Equal(t, int64(1), raffle.Round)
			assert.Equal(t, DefaultRequestConfirmations, raffle.RequestConfirmations)
			assert.Equal(t, DefaultNumWords, raffle.NumWords)
			assert.Nil(t, raffle.RecentWinner)
			m.assertExpectations(t)
		})
	}
}

func TestRaffleService_Enter(t *testing.T) {
	t.Parallel()

	t.Run("records a paid entry", func(t *testing.T) {
		t.Parallel()

		m := newRaffleMocks()
		raffle := createTestRaffle()
		m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(raffle, nil)
		m.Funds.On("Collect", mock.Anything, player1, testEntranceFee, testRaffleID, mock.Anything).
			Return(&entities.BalanceHistory{ID: 77}, nil)
		m.EntryRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *entities.RaffleEntry) bool {
			return e.Player == player1 && e.Position == 0 && e.Round == 1 && e.Amount == testEntranceFee && e.BalanceHistoryID == 77
		})).Return(nil)
		m.RaffleRepo.On("Update", mock.Anything, raffle).Return(nil)
		m.EventPublisher.On("Publish", events.RaffleEnterEvent{
			RaffleID: testRaffleID,
			Round:    1,
			Player:   player1,
			Amount:   testEntranceFee,
			Pool:     testEntranceFee,
		}).Return(nil)

		result, err := m.service(testNow).Enter(context.Background(), testRaffleID, player1, testEntranceFee)

		require.NoError(t, err)
		assert.Equal(t, testEntranceFee, result.Raffle.Pool)
		assert.Equal(t, int64(1), result.Raffle.NumPlayers)
		assert.Equal(t, player1, result.Entry.Player)
		m.assertExpectations(t)
	})

	t.Run("overpayment goes to the pool", func(t *testing.T) {
		t.Parallel()

		m := newRaffleMocks()
		raffle := createTestRaffle(withPlayers(1))
		m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(raffle, nil)
		m.Funds.On("Collect", mock.Anything, player2, int64(250), testRaffleID, mock.Anything).
			Return(&entities.BalanceHistory{ID: 1}, nil)
		m.EntryRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *entities.RaffleEntry) bool {
			return e.Position == 1 && e.Amount == 250
		})).Return(nil)
		m.RaffleRepo.On("Update", mock.Anything, raffle).Return(nil)
		m.EventPublisher.On("Publish", mock.AnythingOfType("events.RaffleEnterEvent")).Return(nil)

		result, err := m.service(testNow).Enter(context.Background(), testRaffleID, player2, 250)

		require.NoError(t, err)
		assert.Equal(t, int64(350), result.Raffle.Pool)
		assert.Equal(t, int64(2), result.Raffle.NumPlayers)
		m.assertExpectations(t)
	})

	tests := []struct {
		name       string
		raffle     *entities.Raffle
		paidAmount int64
		wantErr    error
	}{
		{
			name:       "insufficient fee",
			raffle:     createTestRaffle(),
			paidAmount: 50,
			wantErr:    ErrInsufficientFee,
		},
		{
			name:       "raffle calculating",
			raffle:     createTestRaffle(withPlayers(2), withPending(9)),
			paidAmount: testEntranceFee,
			wantErr:    ErrNotOpen,
		},
		{
			name:       "fee is checked before state",
			raffle:     createTestRaffle(withPlayers(2), withPending(9)),
			paidAmount: 1,
			wantErr:    ErrInsufficientFee,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newRaffleMocks()
			before := *tt.raffle
			m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(tt.raffle, nil)

			result, err := m.service(testNow).Enter(context.Background(), testRaffleID, player1, tt.paidAmount)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
			assert.Equal(t, before, *tt.raffle)
			m.Funds.AssertNotCalled(t, "Collect", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			m.RaffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			m.EventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
		})
	}

	t.Run("payer cannot cover the fee", func(t *testing.T) {
		t.Parallel()

		m := newRaffleMocks()
		raffle := createTestRaffle()
		m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(raffle, nil)
		m.Funds.On("Collect", mock.Anything, player1, testEntranceFee, testRaffleID, mock.Anything).
			Return(nil, ErrInsufficientFunds)

		_, err := m.service(testNow).Enter(context.Background(), testRaffleID, player1, testEntranceFee)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, int64(0), raffle.Pool)
		m.EntryRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown raffle", func(t *testing.T) {
		t.Parallel()

		m := newRaffleMocks()
		m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, int64(42)).Return(nil, nil)

		_, err := m.service(testNow).Enter(context.Background(), 42, player1, testEntranceFee)

		assert.ErrorIs(t, err, ErrRaffleNotFound)
	})
}

func TestRaffleService_CheckUpkeep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raffle *entities.Raffle
		want   bool
	}{
		{
			name:   "due with players",
			raffle: createTestRaffle(withPlayers(1)),
			want:   true,
		},
		{
			name:   "exactly at the interval boundary",
			raffle: createTestRaffle(withPlayers(1), withLastSettlement(testNow.Add(-testInterval))),
			want:   true,
		},
		{
			name:   "one second before the interval",
			raffle: createTestRaffle(withPlayers(1), withLastSettlement(testNow.Add(-testInterval+time.Second))),
			want:   false,
		},
		{
			name:   "no players",
			raffle: createTestRaffle(),
			want:   false,
		},
		{
			name:   "already calculating",
			raffle: createTestRaffle(withPlayers(3), withPending(4)),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newRaffleMocks()
			before := *tt.raffle
			m.RaffleRepo.On("GetByID", mock.Anything, testRaffleID).Return(tt.raffle, nil)
			service := m.service(testNow)

			first, err := service.CheckUpkeep(context.Background(), testRaffleID)
			require.NoError(t, err)
			second, err := service.CheckUpkeep(context.Background(), testRaffleID)
			require.NoError(t, err)

			assert.Equal(t, tt.want, first.Needed)
			assert.Equal(t, first, second)
			assert.Equal(t, before, *tt.raffle)
			m.RaffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}
}

func TestRaffleService_PerformUpkeep(t *testing.T) {
	t.Parallel()

	t.Run("requests randomness and starts calculating", func(t *testing.T) {
		t.Parallel()

		m := newRaffleMocks()
		raffle := createTestRaffle(withPlayers(3))
		m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(raffle, nil)
		m.Coordinator.On("RequestRandomWords", mock.Anything, interfaces.RandomWordsRequest{
			KeyHash:              testKeyHash,
			SubscriptionID:       1,
			MinimumConfirmations: 3,
			CallbackGasLimit:     500000,
			NumWords:             1,
			RaffleID:             testRaffleID,
		}).Return(int64(5), nil)
		m.RaffleRepo.On("Update", mock.Anything, raffle).Return(nil)
		m.EventPublisher.On("Publish", events.RequestedRaffleWinnerEvent{
			RaffleID:  testRaffleID,
			Round:     1,
			RequestID: 5,
		}).Return(nil)

		result, err := m.service(testNow).PerformUpkeep(context.Background(), testRaffleID)

		require.NoError(t, err)
		assert.Equal(t, int64(5), result.RequestID)
		assert.Equal(t, entities.RaffleStateCalculating, raffle.State)
		require.NotNil(t, raffle.PendingRequestID)
		assert.Equal(t, int64(5), *raffle.PendingRequestID)
		assert.Equal(t, int64(300), raffle.Pool)
		m.assertExpectations(t)
	})

	t.Run("before the interval elapses", func(t *testing.T) {
		t.Parallel()

		m := newRaffleMocks()
		raffle := createTestRaffle(withPlayers(2), withLastSettlement(testNow.Add(-10*time.Second)))
		m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(raffle, nil)

		result, err := m.service(testNow).PerformUpkeep(context.Background(), testRaffleID)

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrUpkeepNotNeeded)

		var notNeeded *UpkeepNotNeededError
		require.True(t, errors.As(err, &notNeeded))
		assert.Equal(t, int64(200), notNeeded.Pool)
		assert.Equal(t, int64(2), notNeeded.NumPlayers)
		assert.Equal(t, entities.RaffleStateOpen, notNeeded.State)
		assert.Contains(t, err.Error(), "interval has not elapsed")

		assert.Equal(t, entities.RaffleStateOpen, raffle.State)
		m.Coordinator.AssertNotCalled(t, "RequestRandomWords", mock.Anything, mock.Anything)
		m.RaffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("while already calculating", func(t *testing.T) {
		t.Parallel()

		m := newRaffleMocks()
		raffle := createTestRaffle(withPlayers(2), withPending(3))
		m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(raffle, nil)

		_, err := m.service(testNow).PerformUpkeep(context.Background(), testRaffleID)

		assert.ErrorIs(t, err, ErrUpkeepNotNeeded)
		assert.Equal(t, int64(3), *raffle.PendingRequestID)
		m.Coordinator.AssertNotCalled(t, "RequestRandomWords", mock.Anything, mock.Anything)
	})

	t.Run("coordinator rejects the request", func(t *testing.T) {
		t.Parallel()

		m := newRaffleMocks()
		raffle := createTestRaffle(withPlayers(1))
		m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(raffle, nil)
		m.Coordinator.On("RequestRandomWords", mock.Anything, mock.Anything).
			Return(int64(0), errors.New("consumer not registered"))

		_, err := m.service(testNow).PerformUpkeep(context.Background(), testRaffleID)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to request random words")
		assert.Equal(t, entities.RaffleStateOpen, raffle.State)
		assert.Nil(t, raffle.PendingRequestID)
		m.RaffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestRaffleService_FulfillRandomWords(t *testing.T) {
	t.Parallel()

	players := []common.Address{player1, player2, player3}

	t.Run("pays the selected winner and reopens", func(t *testing.T) {
		t.Parallel()

		m := newRaffleMocks()
		raffle := createTestRaffle(withPlayers(3), withPending(5))
		m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(raffle, nil)
		m.EntryRepo.On("GetPlayers", mock.Anything, testRaffleID, int64(1)).Return(players, nil)
		m.Funds.On("Pay", mock.Anything, player2, int64(300), testRaffleID, mock.Anything).
			Return(&entities.BalanceHistory{ID: 12}, nil)
		m.WinnerRepo.On("Create", mock.Anything, mock.MatchedBy(func(w *entities.RaffleWinner) bool {
			return w.Winner == player2 && w.WinnerIndex == 1 && w.Payout == 300 &&
				w.RequestID == 5 && w.RandomWord == "7" && w.Round == 1 && w.PlayerCount == 3 && w.BalanceHistoryID == 12
		})).Return(nil)
		m.RaffleRepo.On("Update", mock.Anything, raffle).Return(nil)
		m.EventPublisher.On("Publish", events.WinnerPickedEvent{
			RaffleID:  testRaffleID,
			Round:     1,
			RequestID: 5,
			Winner:    player2,
			Payout:    300,
		}).Return(nil)

		result, err := m.service(testNow).FulfillRandomWords(context.Background(), testRaffleID, 5, []*big.Int{big.NewInt(7)})

		require.NoError(t, err)
		assert.Equal(t, player2, result.Winner)
		assert.Equal(t, 1, result.WinnerIndex)
		assert.Equal(t, int64(300), result.Payout)

		assert.Equal(t, entities.RaffleStateOpen, raffle.State)
		assert.Nil(t, raffle.PendingRequestID)
		assert.Equal(t, int64(0), raffle.Pool)
		assert.Equal(t, int64(0), raffle.NumPlayers)
		assert.Equal(t, int64(2), raffle.Round)
		assert.Equal(t, testNow, raffle.LastSettlementAt)
		require.NotNil(t, raffle.RecentWinner)
		assert.Equal(t, player2, *raffle.RecentWinner)
		m.assertExpectations(t)
	})

	t.Run("single player always wins", func(t *testing.T) {
		t.Parallel()

		m := newRaffleMocks()
		raffle := createTestRaffle(withPlayers(1), withPending(2))
		word, ok := new(big.Int).SetString("78541660797044910968829902406342334108369226379826116161446442989268089806461", 10)
		require.True(t, ok)
		m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(raffle, nil)
		m.EntryRepo.On("GetPlayers", mock.Anything, testRaffleID, int64(1)).Return([]common.Address{player3}, nil)
		m.Funds.On("Pay", mock.Anything, player3, testEntranceFee, testRaffleID, mock.Anything).
			Return(&entities.BalanceHistory{ID: 1}, nil)
		m.WinnerRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		m.RaffleRepo.On("Update", mock.Anything, raffle).Return(nil)
		m.EventPublisher.On("Publish", mock.AnythingOfType("events.WinnerPickedEvent")).Return(nil)

		result, err := m.service(testNow).FulfillRandomWords(context.Background(), testRaffleID, 2, []*big.Int{word})

		require.NoError(t, err)
		assert.Equal(t, player3, result.Winner)
		assert.Equal(t, 0, result.WinnerIndex)
	})

	rejected := []struct {
		name      string
		raffle    *entities.Raffle
		requestID int64
		words     []*big.Int
		wantErr   error
	}{
		{
			name:      "request id does not match",
			raffle:    createTestRaffle(withPlayers(3), withPending(5)),
			requestID: 6,
			words:     []*big.Int{big.NewInt(7)},
			wantErr:   ErrUnknownRequest,
		},
		{
			name:      "raffle is open",
			raffle:    createTestRaffle(withPlayers(3)),
			requestID: 5,
			words:     []*big.Int{big.NewInt(7)},
			wantErr:   ErrUnknownRequest,
		},
		{
			name:      "no words delivered",
			raffle:    createTestRaffle(withPlayers(3), withPending(5)),
			requestID: 5,
			words:     nil,
			wantErr:   ErrNoRandomWords,
		},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newRaffleMocks()
			before := *tt.raffle
			m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(tt.raffle, nil)

			result, err := m.service(testNow).FulfillRandomWords(context.Background(), testRaffleID, tt.requestID, tt.words)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
			assert.Equal(t, before, *tt.raffle)
			m.Funds.AssertNotCalled(t, "Pay", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			m.RaffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			m.EventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
		})
	}

	t.Run("transfer failure leaves the round pending", func(t *testing.T) {
		t.Parallel()

		m := newRaffleMocks()
		raffle := createTestRaffle(withPlayers(3), withPending(5))
		before := *raffle
		m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(raffle, nil)
		m.EntryRepo.On("GetPlayers", mock.Anything, testRaffleID, int64(1)).Return(players, nil)
		m.Funds.On("Pay", mock.Anything, player2, int64(300), testRaffleID, mock.Anything).
			Return(nil, ErrRecipientRejected)

		result, err := m.service(testNow).FulfillRandomWords(context.Background(), testRaffleID, 5, []*big.Int{big.NewInt(7)})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrTransferFailed)
		assert.ErrorIs(t, err, ErrRecipientRejected)
		assert.Equal(t, before, *raffle)
		m.WinnerRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.RaffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		m.EventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("entry count mismatch", func(t *testing.T) {
		t.Parallel()

		m := newRaffleMocks()
		raffle := createTestRaffle(withPlayers(3), withPending(5))
		m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(raffle, nil)
		m.EntryRepo.On("GetPlayers", mock.Anything, testRaffleID, int64(1)).Return(players[:2], nil)

		_, err := m.service(testNow).FulfillRandomWords(context.Background(), testRaffleID, 5, []*big.Int{big.NewInt(7)})

		require.Error(t, err)
		m.Funds.AssertNotCalled(t, "Pay", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRaffleService_GetPlayer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		index   int64
		want    common.Address
		wantErr bool
	}{
		{name: "first player", index: 0, want: player1},
		{name: "negative index", index: -1, wantErr: true},
		{name: "past the end", index: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newRaffleMocks()
			m.RaffleRepo.On("GetByID", mock.Anything, testRaffleID).Return(createTestRaffle(withPlayers(2)), nil)
			m.EntryRepo.On("GetByPosition", mock.Anything, testRaffleID, int64(1), tt.index).
				Return(&entities.RaffleEntry{Player: tt.want}, nil).Maybe()

			got, err := m.service(testNow).GetPlayer(context.Background(), testRaffleID, tt.index)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPlayerIndex)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRaffleService_Getters(t *testing.T) {
	t.Parallel()

	m := newRaffleMocks()
	settledAt := testNow.Add(-5 * time.Minute)
	raffle := createTestRaffle(withPlayers(2), withLastSettlement(settledAt), func(r *entities.Raffle) {
		r.RecentWinner = &player3
	})
	m.RaffleRepo.On("GetByID", mock.Anything, testRaffleID).Return(raffle, nil)
	m.EntryRepo.On("GetPlayers", mock.Anything, testRaffleID, int64(1)).Return([]common.Address{player1, player2}, nil)
	service := m.service(testNow)
	ctx := context.Background()

	count, err := service.GetNumberOfPlayers(ctx, testRaffleID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	players, err := service.GetPlayers(ctx, testRaffleID)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{player1, player2}, players)

	winner, err := service.GetRecentWinner(ctx, testRaffleID)
	require.NoError(t, err)
	assert.Equal(t, player3, *winner)

	latest, err := service.GetLatestTimestamp(ctx, testRaffleID)
	require.NoError(t, err)
	assert.Equal(t, settledAt, latest)
}

// Walks three entries through one full settlement using the same raffle value
func TestRaffleService_FullRound(t *testing.T) {
	t.Parallel()

	m := newRaffleMocks()
	start := testNow.Add(-time.Minute)
	raffle := createTestRaffle(withLastSettlement(start))
	ctx := context.Background()

	m.RaffleRepo.On("GetByIDForUpdate", mock.Anything, testRaffleID).Return(raffle, nil)
	m.RaffleRepo.On("Update", mock.Anything, raffle).Return(nil)
	m.Funds.On("Collect", mock.Anything, mock.Anything, testEntranceFee, testRaffleID, mock.Anything).
		Return(&entities.BalanceHistory{ID: 1}, nil)
	m.EntryRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.EntryRepo.On("GetPlayers", mock.Anything, testRaffleID, int64(1)).Return([]common.Address{player1, player2, player3}, nil)
	m.Coordinator.On("RequestRandomWords", mock.Anything, mock.Anything).Return(int64(1), nil)
	m.Funds.On("Pay", mock.Anything, player2, int64(300), testRaffleID, mock.Anything).
		Return(&entities.BalanceHistory{ID: 4}, nil)
	m.WinnerRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.EventPublisher.On("Publish", mock.Anything).Return(nil)

	service := m.service(testNow)
	for _, p := range []common.Address{player1, player2, player3} {
		_, err := service.Enter(ctx, testRaffleID, p, testEntranceFee)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(300), raffle.Pool)

	upkeep, err := service.PerformUpkeep(ctx, testRaffleID)
	require.NoError(t, err)
	assert.Equal(t, entities.RaffleStateCalculating, raffle.State)

	_, err = service.Enter(ctx, testRaffleID, player1, testEntranceFee)
	assert.ErrorIs(t, err, ErrNotOpen)

	settlement, err := service.FulfillRandomWords(ctx, testRaffleID, upkeep.RequestID, []*big.Int{big.NewInt(7)})
	require.NoError(t, err)
	assert.Equal(t, player2, settlement.Winner)
	assert.Equal(t, entities.RaffleStateOpen, raffle.State)
	assert.Equal(t, int64(0), raffle.NumPlayers)
	assert.True(t, raffle.LastSettlementAt.After(start))

	_, err = service.FulfillRandomWords(ctx, testRaffleID, upkeep.RequestID, []*big.Int{big.NewInt(7)})
	assert.ErrorIs(t, err, ErrUnknownRequest)

	m.Funds.AssertNumberOfCalls(t, "Pay", 1)
	m.Coordinator.AssertNumberOfCalls(t, "RequestRandomWords", 1)
}
