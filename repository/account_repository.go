package repository

import (
	"context"
	"fmt"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// AccountRepository implements participant account data access
type AccountRepository struct {
	q Queryable
}

func newAccountRepository(q Queryable) *AccountRepository {
	return &AccountRepository{q: q}
}

// GetByAddress returns the account or nil
func (r *AccountRepository) GetByAddress(ctx context.Context, address common.Address) (*entities.Account, error) {
	query := `
		SELECT address, balance, frozen, created_at, updated_at
		FROM accounts
		WHERE address = $1
	`
	return r.get(ctx, query, address)
}

// GetByAddressForUpdate returns the account with its row locked
func (r *AccountRepository) GetByAddressForUpdate(ctx context.Context, address common.Address) (*entities.Account, error) {
	query := `
		SELECT address, balance, frozen, created_at, updated_at
		FROM accounts
		WHERE address = $1
		FOR UPDATE
	`
	return r.get(ctx, query, address)
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, address common.Address, initialBalance int64) (*entities.Account, error) {
	query := `
		INSERT INTO accounts (address, balance)
		VALUES ($1, $2)
		RETURNING balance, frozen, created_at, updated_at
	`

	account := entities.Account{Address: address}
	err := r.q.QueryRow(ctx, query, address.Bytes(), initialBalance).Scan(
		&account.Balance,
		&account.Frozen,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", address.Hex(), err)
	}

	return &account, nil
}

// UpdateBalance sets the balance of an account
func (r *AccountRepository) UpdateBalance(ctx context.Context, address common.Address, newBalance int64) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE address = $2
	`

	result, err := r.q.Exec(ctx, query, newBalance, address.Bytes())
	if err != nil {
		return fmt.Errorf("failed to update balance for account %s: %w", address.Hex(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %s not found", address.Hex())
	}

	return nil
}

// SetFrozen blocks or unblocks an account
func (r *AccountRepository) SetFrozen(ctx context.Context, address common.Address, frozen bool) error {
	query := `
		UPDATE accounts
		SET frozen = $1, updated_at = NOW()
		WHERE address = $2
	`

	result, err := r.q.Exec(ctx, query, frozen, address.Bytes())
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", address.Hex(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %s not found", address.Hex())
	}

	return nil
}

func (r *AccountRepository) get(ctx context.Context, query string, address common.Address) (*entities.Account, error) {
	var account entities.Account
	var raw []byte
	err := r.q.QueryRow(ctx, query, address.Bytes()).Scan(
		&raw,
		&account.Balance,
		&account.Frozen,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", address.Hex(), err)
	}

	account.Address = common.BytesToAddress(raw)
	return &account, nil
}
