package testhelpers

import (
	"context"
	"math/big"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/events"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// MockRaffleRepository is a mock implementation of RaffleRepository
type MockRaffleRepository struct {
	mock.Mock
}

func (m *MockRaffleRepository) Create(ctx context.Context, raffle *entities.Raffle) error {
	args := m.Called(ctx, raffle)
	return args.Error(0)
}

func (m *MockRaffleRepository) GetByID(ctx context.Context, id int64) (*entities.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) GetByName(ctx context.Context, name string) (*entities.Raffle, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) List(ctx context.Context) ([]*entities.Raffle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) Update(ctx context.Context, raffle *entities.Raffle) error {
	args := m.Called(ctx, raffle)
	return args.Error(0)
}

// MockRaffleEntryRepository is a mock implementation of RaffleEntryRepository
type MockRaffleEntryRepository struct {
	mock.Mock
}

func (m *MockRaffleEntryRepository) Create(ctx context.Context, entry *entities.RaffleEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRaffleEntryRepository) GetPlayers(ctx context.Context, raffleID, round int64) ([]common.Address, error) {
	args := m.Called(ctx, raffleID, round)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]common.Address), args.Error(1)
}

func (m *MockRaffleEntryRepository) GetByPosition(ctx context.Context, raffleID, round, position int64) (*entities.RaffleEntry, error) {
	args := m.Called(ctx, raffleID, round, position)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RaffleEntry), args.Error(1)
}

func (m *MockRaffleEntryRepository) GetParticipantSummary(ctx context.Context, raffleID, round int64) ([]*entities.RaffleParticipantInfo, error) {
	args := m.Called(ctx, raffleID, round)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RaffleParticipantInfo), args.Error(1)
}

func (m *MockRaffleEntryRepository) SumAmounts(ctx context.Context, raffleID, round int64) (int64, error) {
	args := m.Called(ctx, raffleID, round)
	return args.Get(0).(int64), args.Error(1)
}

// MockRaffleWinnerRepository is a mock implementation of RaffleWinnerRepository
type MockRaffleWinnerRepository struct {
	mock.Mock
}

func (m *MockRaffleWinnerRepository) Create(ctx context.Context, winner *entities.RaffleWinner) error {
	args := m.Called(ctx, winner)
	return args.Error(0)
}

func (m *MockRaffleWinnerRepository) GetByRaffle(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleWinner, error) {
	args := m.Called(ctx, raffleID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RaffleWinner), args.Error(1)
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByAddress(ctx context.Context, address common.Address) (*entities.Account, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByAddressForUpdate(ctx context.Context, address common.Address) (*entities.Account, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, address common.Address, initialBalance int64) (*entities.Account, error) {
	args := m.Called(ctx, address, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, address common.Address, newBalance int64) error {
	args := m.Called(ctx, address, newBalance)
	return args.Error(0)
}

func (m *MockAccountRepository) SetFrozen(ctx context.Context, address common.Address, frozen bool) error {
	args := m.Called(ctx, address, frozen)
	return args.Error(0)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByAddress(ctx context.Context, address common.Address, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, address, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

func (m *MockBalanceHistoryRepository) GetByDateRange(ctx context.Context, address common.Address, from, to time.Time) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, address, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

// MockVRFRepository is a mock implementation of VRFRepository
type MockVRFRepository struct {
	mock.Mock
}

func (m *MockVRFRepository) CreateSubscription(ctx context.Context, owner common.Address) (*entities.VRFSubscription, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.VRFSubscription), args.Error(1)
}

func (m *MockVRFRepository) GetSubscription(ctx context.Context, id int64) (*entities.VRFSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.VRFSubscription), args.Error(1)
}

func (m *MockVRFRepository) GetSubscriptionForUpdate(ctx context.Context, id int64) (*entities.VRFSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.VRFSubscription), args.Error(1)
}

func (m *MockVRFRepository) UpdateSubscriptionBalance(ctx context.Context, id int64, balance int64) error {
	args := m.Called(ctx, id, balance)
	return args.Error(0)
}

func (m *MockVRFRepository) AddConsumer(ctx context.Context, subscriptionID, raffleID int64) error {
	args := m.Called(ctx, subscriptionID, raffleID)
	return args.Error(0)
}

func (m *MockVRFRepository) RemoveConsumer(ctx context.Context, subscriptionID, raffleID int64) error {
	args := m.Called(ctx, subscriptionID, raffleID)
	return args.Error(0)
}

func (m *MockVRFRepository) IsConsumer(ctx context.Context, subscriptionID, raffleID int64) (bool, error) {
	args := m.Called(ctx, subscriptionID, raffleID)
	return args.Bool(0), args.Error(1)
}

func (m *MockVRFRepository) CreateRequest(ctx context.Context, request *entities.RandomnessRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockVRFRepository) GetRequestForUpdate(ctx context.Context, id int64) (*entities.RandomnessRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RandomnessRequest), args.Error(1)
}

func (m *MockVRFRepository) MarkFulfilled(ctx context.Context, request *entities.RandomnessRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockVRFRepository) GetPendingRequests(ctx context.Context) ([]*entities.RandomnessRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RandomnessRequest), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockRandomnessCoordinator is a mock implementation of RandomnessCoordinator
type MockRandomnessCoordinator struct {
	mock.Mock
}

func (m *MockRandomnessCoordinator) RequestRandomWords(ctx context.Context, request interfaces.RandomWordsRequest) (int64, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(int64), args.Error(1)
}

// MockRandomnessConsumer is a mock implementation of RandomnessConsumer
type MockRandomnessConsumer struct {
	mock.Mock
}

func (m *MockRandomnessConsumer) FulfillRandomWords(ctx context.Context, raffleID, requestID int64, randomWords []*big.Int) (*interfaces.SettlementResult, error) {
	args := m.Called(ctx, raffleID, requestID, randomWords)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.SettlementResult), args.Error(1)
}

// MockFundsTransfer is a mock implementation of FundsTransfer
type MockFundsTransfer struct {
	mock.Mock
}

func (m *MockFundsTransfer) Collect(ctx context.Context, from common.Address, amount int64, raffleID int64, metadata map[string]any) (*entities.BalanceHistory, error) {
	args := m.Called(ctx, from, amount, raffleID, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BalanceHistory), args.Error(1)
}

func (m *MockFundsTransfer) Pay(ctx context.Context, to common.Address, amount int64, raffleID int64, metadata map[string]any) (*entities.BalanceHistory, error) {
	args := m.Called(ctx, to, amount, raffleID, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BalanceHistory), args.Error(1)
}
