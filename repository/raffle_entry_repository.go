package repository

import (
	"context"
	"fmt"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// RaffleEntryRepository implements raffle entry data access
type RaffleEntryRepository struct {
	q Queryable
}

func newRaffleEntryRepository(q Queryable) *RaffleEntryRepository {
	return &RaffleEntryRepository{q: q}
}

// Create inserts an entry at its position within the round
func (r *RaffleEntryRepository) Create(ctx context.Context, entry *entities.RaffleEntry) error {
	query := `
		INSERT INTO raffle_entries (raffle_id, round, position, player, amount, balance_history_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6::bigint, 0))
		RETURNING id, entered_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.RaffleID,
		entry.Round,
		entry.Position,
		entry.Player.Bytes(),
		entry.Amount,
		entry.BalanceHistoryID,
	).Scan(&entry.ID, &entry.EnteredAt)
	if err != nil {
		return fmt.Errorf("failed to create entry for raffle %d round %d: %w", entry.RaffleID, entry.Round, err)
	}

	return nil
}

// GetPlayers returns the players of a round in entry order
func (r *RaffleEntryRepository) GetPlayers(ctx context.Context, raffleID, round int64) ([]common.Address, error) {
	query := `
		SELECT player
		FROM raffle_entries
		WHERE raffle_id = $1 AND round = $2
		ORDER BY position ASC
	`

	rows, err := r.q.Query(ctx, query, raffleID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to get players for raffle %d round %d: %w", raffleID, round, err)
	}
	defer rows.Close()

	players := []common.Address{}
	for rows.Next() {
		var player []byte
		if err := rows.Scan(&player); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, common.BytesToAddress(player))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players: %w", err)
	}

	return players, nil
}

// GetByPosition returns the entry at an index of a round or nil
func (r *RaffleEntryRepository) GetByPosition(ctx context.Context, raffleID, round, position int64) (*entities.RaffleEntry, error) {
	query := `
		SELECT id, raffle_id, round, position, player, amount, COALESCE(balance_history_id, 0), entered_at
		FROM raffle_entries
		WHERE raffle_id = $1 AND round = $2 AND position = $3
	`

	var entry entities.RaffleEntry
	var player []byte
	err := r.q.QueryRow(ctx, query, raffleID, round, position).Scan(
		&entry.ID,
		&entry.RaffleID,
		&entry.Round,
		&entry.Position,
		&player,
		&entry.Amount,
		&entry.BalanceHistoryID,
		&entry.EnteredAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry %d for raffle %d round %d: %w", position, raffleID, round, err)
	}

	entry.Player = common.BytesToAddress(player)
	return &entry, nil
}

// GetParticipantSummary aggregates a round's entries per player, largest stake first
func (r *RaffleEntryRepository) GetParticipantSummary(ctx context.Context, raffleID, round int64) ([]*entities.RaffleParticipantInfo, error) {
	query := `
		SELECT player, COUNT(*), SUM(amount)::bigint
		FROM raffle_entries
		WHERE raffle_id = $1 AND round = $2
		GROUP BY player
		ORDER BY SUM(amount) DESC, MIN(position) ASC
	`

	rows, err := r.q.Query(ctx, query, raffleID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants for raffle %d round %d: %w", raffleID, round, err)
	}
	defer rows.Close()

	var participants []*entities.RaffleParticipantInfo
	for rows.Next() {
		var info entities.RaffleParticipantInfo
		var player []byte
		if err := rows.Scan(&player, &info.EntryCount, &info.TotalPaid); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		info.Player = common.BytesToAddress(player)
		participants = append(participants, &info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

// SumAmounts returns the total paid into a round
func (r *RaffleEntryRepository) SumAmounts(ctx context.Context, raffleID, round int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::bigint
		FROM raffle_entries
		WHERE raffle_id = $1 AND round = $2
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, raffleID, round).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum entries for raffle %d round %d: %w", raffleID, round, err)
	}

	return total, nil
}
