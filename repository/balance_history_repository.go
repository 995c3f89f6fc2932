package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// BalanceHistoryRepository implements balance history data access
type BalanceHistoryRepository struct {
	q Queryable
}

func newBalanceHistoryRepository(q Queryable) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: q}
}

// Record inserts a balance history entry
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	metadataJSON, err := json.Marshal(history.TransactionMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history
		(address, balance_before, balance_after, change_amount, transaction_type, transaction_metadata, raffle_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		history.Address.Bytes(),
		history.BalanceBefore,
		history.BalanceAfter,
		history.ChangeAmount,
		string(history.TransactionType),
		metadataJSON,
		history.RaffleID,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record balance history for %s: %w", history.Address.Hex(), err)
	}

	return nil
}

// GetByAddress returns the most recent balance changes of an account
func (r *BalanceHistoryRepository) GetByAddress(ctx context.Context, address common.Address, limit int) ([]*entities.BalanceHistory, error) {
	query := `
		SELECT id, address, balance_before, balance_after, change_amount,
		       transaction_type, transaction_metadata, raffle_id, created_at
		FROM balance_history
		WHERE address = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, address.Bytes(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for %s: %w", address.Hex(), err)
	}
	return scanBalanceHistories(rows)
}

// GetByDateRange returns the balance changes of an account within [from, to]
func (r *BalanceHistoryRepository) GetByDateRange(ctx context.Context, address common.Address, from, to time.Time) ([]*entities.BalanceHistory, error) {
	query := `
		SELECT id, address, balance_before, balance_after, change_amount,
		       transaction_type, transaction_metadata, raffle_id, created_at
		FROM balance_history
		WHERE address = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, address.Bytes(), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for %s: %w", address.Hex(), err)
	}
	return scanBalanceHistories(rows)
}

func scanBalanceHistories(rows pgx.Rows) ([]*entities.BalanceHistory, error) {
	defer rows.Close()

	var histories []*entities.BalanceHistory
	for rows.Next() {
		var history entities.BalanceHistory
		var address []byte
		var txType string
		var metadataJSON []byte

		err := rows.Scan(
			&history.ID,
			&address,
			&history.BalanceBefore,
			&history.BalanceAfter,
			&history.ChangeAmount,
			&txType,
			&metadataJSON,
			&history.RaffleID,
			&history.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}

		history.Address = common.BytesToAddress(address)
		history.TransactionType = entities.TransactionType(txType)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &history.TransactionMetadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}

		histories = append(histories, &history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}

	return histories, nil
}
