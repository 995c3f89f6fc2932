package services

import (
	"context"
	"fmt"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/domain/utils"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// walletService implements account balance movements
type walletService struct {
	accountRepo        interfaces.AccountRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
}

// NewWalletService creates a new wallet service
func NewWalletService(
	accountRepo interfaces.AccountRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.WalletService {
	return &walletService{
		accountRepo:        accountRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
	}
}

// Collect debits the payer's account
func (s *walletService) Collect(ctx context.Context, from common.Address, amount int64, raffleID int64, metadata map[string]any) (*entities.BalanceHistory, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	account, err := s.accountRepo.GetByAddressForUpdate(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, from.Hex())
	}
	if account.Frozen {
		return nil, fmt.Errorf("%w: %s", ErrAccountFrozen, from.Hex())
	}
	if !account.CanPay(amount) {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, account.Balance, amount)
	}

	return s.applyChange(ctx, account, -amount, entities.TransactionTypeRaffleEntry, raffleID, metadata)
}

// Pay credits the recipient's account
func (s *walletService) Pay(ctx context.Context, to common.Address, amount int64, raffleID int64, metadata map[string]any) (*entities.BalanceHistory, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	account, err := s.accountRepo.GetByAddressForUpdate(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, to.Hex())
	}
	if !account.CanReceive() {
		return nil, fmt.Errorf("%w: %s", ErrRecipientRejected, to.Hex())
	}

	return s.applyChange(ctx, account, amount, entities.TransactionTypeRaffleWin, raffleID, metadata)
}

// Deposit credits an account, creating it with a zero balance first if needed
func (s *walletService) Deposit(ctx context.Context, address common.Address, amount int64) (*entities.Account, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	account, err := s.accountRepo.GetByAddressForUpdate(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		account, err = s.accountRepo.Create(ctx, address, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to create account: %w", err)
		}
		log.WithField("address", address.Hex()).Info("Created account")
	}

	if _, err := s.applyChange(ctx, account, amount, entities.TransactionTypeDeposit, 0, nil); err != nil {
		return nil, err
	}

	return account, nil
}

// SetFrozen blocks or unblocks an account
func (s *walletService) SetFrozen(ctx context.Context, address common.Address, frozen bool) error {
	account, err := s.accountRepo.GetByAddress(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, address.Hex())
	}

	if err := s.accountRepo.SetFrozen(ctx, address, frozen); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	log.WithFields(log.Fields{
		"address": address.Hex(),
		"frozen":  frozen,
	}).Info("Account frozen state changed")
	return nil
}

// GetAccount returns the account or nil
func (s *walletService) GetAccount(ctx context.Context, address common.Address) (*entities.Account, error) {
	account, err := s.accountRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// applyChange updates the balance and records the history entry
func (s *walletService) applyChange(ctx context.Context, account *entities.Account, change int64, txType entities.TransactionType, raffleID int64, metadata map[string]any) (*entities.BalanceHistory, error) {
	newBalance := account.Balance + change
	if err := s.accountRepo.UpdateBalance(ctx, account.Address, newBalance); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	history := &entities.BalanceHistory{
		Address:             account.Address,
		BalanceBefore:       account.Balance,
		BalanceAfter:        newBalance,
		ChangeAmount:        change,
		TransactionType:     txType,
		TransactionMetadata: metadata,
	}
	if raffleID != 0 {
		history.RaffleID = &raffleID
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	account.Balance = newBalance
	return history, nil
}
