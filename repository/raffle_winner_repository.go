package repository

import (
	"context"
	"fmt"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

// RaffleWinnerRepository implements settled round data access
type RaffleWinnerRepository struct {
	q Queryable
}

func newRaffleWinnerRepository(q Queryable) *RaffleWinnerRepository {
	return &RaffleWinnerRepository{q: q}
}

// Create records the outcome of a settled round
func (r *RaffleWinnerRepository) Create(ctx context.Context, winner *entities.RaffleWinner) error {
	query := `
		INSERT INTO raffle_winners (
			raffle_id, round, request_id, random_word, winner_index,
			winner, payout, player_count, balance_history_id
		)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, NULLIF($9::bigint, 0))
		RETURNING id, settled_at
	`

	err := r.q.QueryRow(ctx, query,
		winner.RaffleID,
		winner.Round,
		winner.RequestID,
		winner.RandomWord,
		winner.WinnerIndex,
		winner.Winner.Bytes(),
		winner.Payout,
		winner.PlayerCount,
		winner.BalanceHistoryID,
	).Scan(&winner.ID, &winner.SettledAt)
	if err != nil {
		return fmt.Errorf("failed to create winner for raffle %d round %d: %w", winner.RaffleID, winner.Round, err)
	}

	return nil
}

// GetByRaffle returns settled rounds newest first
func (r *RaffleWinnerRepository) GetByRaffle(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleWinner, error) {
	query := `
		SELECT id, raffle_id, round, request_id, random_word::text, winner_index,
		       winner, payout, player_count, COALESCE(balance_history_id, 0), settled_at
		FROM raffle_winners
		WHERE raffle_id = $1
		ORDER BY round DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, raffleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get winners for raffle %d: %w", raffleID, err)
	}
	defer rows.Close()

	var winners []*entities.RaffleWinner
	for rows.Next() {
		var winner entities.RaffleWinner
		var address []byte
		err := rows.Scan(
			&winner.ID,
			&winner.RaffleID,
			&winner.Round,
			&winner.RequestID,
			&winner.RandomWord,
			&winner.WinnerIndex,
			&address,
			&winner.Payout,
			&winner.PlayerCount,
			&winner.BalanceHistoryID,
			&winner.SettledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raffle winner: %w", err)
		}
		winner.Winner = common.BytesToAddress(address)
		winners = append(winners, &winner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raffle winners: %w", err)
	}

	return winners, nil
}
