package services

import (
	"context"
	"errors"
	"testing"

	"raffle/domain/entities"
	"raffle/domain/testhelpers"
	"raffle/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupWalletServiceMocks() (
	*testhelpers.MockAccountRepository,
	*testhelpers.MockBalanceHistoryRepository,
	*testhelpers.MockEventPublisher,
) {
	return new(testhelpers.MockAccountRepository),
		new(testhelpers.MockBalanceHistoryRepository),
		new(testhelpers.MockEventPublisher)
}

func TestWalletService_Collect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		account     *entities.Account
		amount      int64
		wantErr     error
		wantBalance int64
	}{
		{
			name:        "debits the payer",
			account:     &entities.Account{Address: player1, Balance: 1000},
			amount:      100,
			wantBalance: 900,
		},
		{
			name:        "exact balance",
			account:     &entities.Account{Address: player1, Balance: 100},
			amount:      100,
			wantBalance: 0,
		},
		{
			name:    "insufficient funds",
			account: &entities.Account{Address: player1, Balance: 99},
			amount:  100,
			wantErr: ErrInsufficientFunds,
		},
		{
			name:    "frozen account",
			account: &entities.Account{Address: player1, Balance: 1000, Frozen: true},
			amount:  100,
			wantErr: ErrAccountFrozen,
		},
		{
			name:    "missing account",
			amount:  100,
			wantErr: ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			accountRepo, historyRepo, publisher := setupWalletServiceMocks()
			if tt.account == nil {
				accountRepo.On("GetByAddressForUpdate", mock.Anything, player1).Return(nil, nil)
			} else {
				accountRepo.On("GetByAddressForUpdate", mock.Anything, player1).Return(tt.account, nil)
			}
			if tt.wantErr == nil {
				accountRepo.On("UpdateBalance", mock.Anything, player1, tt.wantBalance).Return(nil)
				historyRepo.On("Record", mock.Anything, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
					return h.ChangeAmount == -tt.amount &&
						h.TransactionType == entities.TransactionTypeRaffleEntry &&
						h.RaffleID != nil && *h.RaffleID == testRaffleID
				})).Return(nil)
				publisher.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return(nil)
			}

			service := NewWalletService(accountRepo, historyRepo, publisher)
			history, err := service.Collect(context.Background(), player1, tt.amount, testRaffleID, nil)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, history)
				accountRepo.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
				historyRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, history.BalanceAfter)
			accountRepo.AssertExpectations(t)
			historyRepo.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestWalletService_Pay(t *testing.T) {
	t.Parallel()

	t.Run("credits the recipient", func(t *testing.T) {
		t.Parallel()

		accountRepo, historyRepo, publisher := setupWalletServiceMocks()
		accountRepo.On("GetByAddressForUpdate", mock.Anything, player2).Return(&entities.Account{Address: player2, Balance: 50}, nil)
		accountRepo.On("UpdateBalance", mock.Anything, player2, int64(350)).Return(nil)
		historyRepo.On("Record", mock.Anything, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
			return h.TransactionType == entities.TransactionTypeRaffleWin && h.ChangeAmount == 300
		})).Return(nil)
		publisher.On("Publish", events.BalanceChangeEvent{
			Address:         player2,
			OldBalance:      50,
			NewBalance:      350,
			TransactionType: entities.TransactionTypeRaffleWin,
			ChangeAmount:    300,
		}).Return(nil)

		service := NewWalletService(accountRepo, historyRepo, publisher)
		history, err := service.Pay(context.Background(), player2, 300, testRaffleID, map[string]any{"round": int64(1)})

		require.NoError(t, err)
		assert.Equal(t, int64(350), history.BalanceAfter)
		accountRepo.AssertExpectations(t)
		historyRepo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("frozen recipient rejects funds", func(t *testing.T) {
		t.Parallel()

		accountRepo, historyRepo, publisher := setupWalletServiceMocks()
		accountRepo.On("GetByAddressForUpdate", mock.Anything, player2).Return(&entities.Account{Address: player2, Frozen: true}, nil)

		service := NewWalletService(accountRepo, historyRepo, publisher)
		_, err := service.Pay(context.Background(), player2, 300, testRaffleID, nil)

		assert.ErrorIs(t, err, ErrRecipientRejected)
		accountRepo.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("balance update fails", func(t *testing.T) {
		t.Parallel()

		accountRepo, historyRepo, publisher := setupWalletServiceMocks()
		accountRepo.On("GetByAddressForUpdate", mock.Anything, player2).Return(&entities.Account{Address: player2}, nil)
		accountRepo.On("UpdateBalance", mock.Anything, player2, int64(300)).Return(errors.New("connection reset"))

		service := NewWalletService(accountRepo, historyRepo, publisher)
		_, err := service.Pay(context.Background(), player2, 300, testRaffleID, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update balance")
		historyRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("zero amount", func(t *testing.T) {
		t.Parallel()

		accountRepo, historyRepo, publisher := setupWalletServiceMocks()
		service := NewWalletService(accountRepo, historyRepo, publisher)

		_, err := service.Pay(context.Background(), player2, 0, testRaffleID, nil)

		assert.ErrorIs(t, err, ErrNonPositiveAmount)
	})
}

func TestWalletService_Deposit(t *testing.T) {
	t.Parallel()

	t.Run("creates a missing account", func(t *testing.T) {
		t.Parallel()

		accountRepo, historyRepo, publisher := setupWalletServiceMocks()
		accountRepo.On("GetByAddressForUpdate", mock.Anything, player3).Return(nil, nil)
		accountRepo.On("Create", mock.Anything, player3, int64(0)).Return(&entities.Account{Address: player3}, nil)
		accountRepo.On("UpdateBalance", mock.Anything, player3, int64(500)).Return(nil)
		historyRepo.On("Record", mock.Anything, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
			return h.TransactionType == entities.TransactionTypeDeposit && h.RaffleID == nil
		})).Return(nil)
		publisher.On("Publish", mock.Anything).Return(nil)

		service := NewWalletService(accountRepo, historyRepo, publisher)
		account, err := service.Deposit(context.Background(), player3, 500)

		require.NoError(t, err)
		assert.Equal(t, int64(500), account.Balance)
		accountRepo.AssertExpectations(t)
	})

	t.Run("adds to an existing account", func(t *testing.T) {
		t.Parallel()

		accountRepo, historyRepo, publisher := setupWalletServiceMocks()
		accountRepo.On("GetByAddressForUpdate", mock.Anything, player3).Return(&entities.Account{Address: player3, Balance: 20}, nil)
		accountRepo.On("UpdateBalance", mock.Anything, player3, int64(520)).Return(nil)
		historyRepo.On("Record", mock.Anything, mock.Anything).Return(nil)
		publisher.On("Publish", mock.Anything).Return(nil)

		service := NewWalletService(accountRepo, historyRepo, publisher)
		account, err := service.Deposit(context.Background(), player3, 500)

		require.NoError(t, err)
		assert.Equal(t, int64(520), account.Balance)
		accountRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestWalletService_SetFrozen(t *testing.T) {
	t.Parallel()

	accountRepo, historyRepo, publisher := setupWalletServiceMocks()
	accountRepo.On("GetByAddress", mock.Anything, player1).Return(&entities.Account{Address: player1}, nil)
	accountRepo.On("SetFrozen", mock.Anything, player1, true).Return(nil)
	accountRepo.On("GetByAddress", mock.Anything, player2).Return(nil, nil)

	service := NewWalletService(accountRepo, historyRepo, publisher)

	require.NoError(t, service.SetFrozen(context.Background(), player1, true))
	assert.ErrorIs(t, service.SetFrozen(context.Background(), player2, true), ErrAccountNotFound)
	accountRepo.AssertExpectations(t)
}
