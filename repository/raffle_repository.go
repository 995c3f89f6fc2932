package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffle/database"
	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

const raffleColumns = `
	id, name, entrance_fee, interval_seconds, key_hash, subscription_id,
	callback_gas_limit, request_confirmations, num_words, state, pool,
	num_players, round, last_settlement_at, pending_request_id, recent_winner, created_at
`

// RaffleRepository implements raffle data access
type RaffleRepository struct {
	q Queryable
}

// NewRaffleRepository creates a raffle repository on the connection pool
func NewRaffleRepository(db *database.DB) *RaffleRepository {
	return &RaffleRepository{q: db.Pool}
}

func newRaffleRepository(q Queryable) *RaffleRepository {
	return &RaffleRepository{q: q}
}

// Create inserts a new raffle
func (r *RaffleRepository) Create(ctx context.Context, raffle *entities.Raffle) error {
	query := `
		INSERT INTO raffles (
			name, entrance_fee, interval_seconds, key_hash, subscription_id,
			callback_gas_limit, request_confirmations, num_words, state, pool,
			num_players, round, last_settlement_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		raffle.Name,
		raffle.EntranceFee,
		int64(raffle.Interval/time.Second),
		raffle.KeyHash.Bytes(),
		raffle.SubscriptionID,
		int64(raffle.CallbackGasLimit),
		int32(raffle.RequestConfirmations),
		int64(raffle.NumWords),
		string(raffle.State),
		raffle.Pool,
		raffle.NumPlayers,
		raffle.Round,
		raffle.LastSettlementAt,
	).Scan(&raffle.ID, &raffle.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create raffle %q: %w", raffle.Name, err)
	}

	return nil
}

// GetByID returns the raffle or nil
func (r *RaffleRepository) GetByID(ctx context.Context, id int64) (*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1`

	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle %d: %w", id, err)
	}

	return raffle, nil
}

// GetByIDForUpdate returns the raffle with its row locked until the transaction ends
func (r *RaffleRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1 FOR UPDATE`

	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock raffle %d: %w", id, err)
	}

	return raffle, nil
}

// GetByName returns the raffle with the given name or nil
func (r *RaffleRepository) GetByName(ctx context.Context, name string) (*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE name = $1`

	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, name))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle %q: %w", name, err)
	}

	return raffle, nil
}

// List returns all raffles ordered by ID
func (r *RaffleRepository) List(ctx context.Context) ([]*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles ORDER BY id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list raffles: %w", err)
	}
	defer rows.Close()

	var raffles []*entities.Raffle
	for rows.Next() {
		raffle, err := scanRaffle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raffle: %w", err)
		}
		raffles = append(raffles, raffle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raffles: %w", err)
	}

	return raffles, nil
}

// Update persists the round state of a raffle
func (r *RaffleRepository) Update(ctx context.Context, raffle *entities.Raffle) error {
	query := `
		UPDATE raffles
		SET state = $2,
			pool = $3,
			num_players = $4,
			round = $5,
			last_settlement_at = $6,
			pending_request_id = $7,
			recent_winner = $8
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query,
		raffle.ID,
		string(raffle.State),
		raffle.Pool,
		raffle.NumPlayers,
		raffle.Round,
		raffle.LastSettlementAt,
		raffle.PendingRequestID,
		addressOrNil(raffle.RecentWinner),
	)
	if err != nil {
		return fmt.Errorf("failed to update raffle %d: %w", raffle.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("raffle %d not found", raffle.ID)
	}

	return nil
}

func scanRaffle(row pgx.Row) (*entities.Raffle, error) {
	var (
		raffle               entities.Raffle
		intervalSeconds      int64
		keyHash              []byte
		callbackGasLimit     int64
		requestConfirmations int32
		numWords             int64
		state                string
		recentWinner         []byte
	)

	err := row.Scan(
		&raffle.ID,
		&raffle.Name,
		&raffle.EntranceFee,
		&intervalSeconds,
		&keyHash,
		&raffle.SubscriptionID,
		&callbackGasLimit,
		&requestConfirmations,
		&numWords,
		&state,
		&raffle.Pool,
		&raffle.NumPlayers,
		&raffle.Round,
		&raffle.LastSettlementAt,
		&raffle.PendingRequestID,
		&recentWinner,
		&raffle.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	raffle.State = entities.RaffleState(state)
	if !raffle.State.IsValid() {
		return nil, errors.New("unknown raffle state " + state)
	}
	raffle.Interval = time.Duration(intervalSeconds) * time.Second
	raffle.KeyHash = common.BytesToHash(keyHash)
	raffle.CallbackGasLimit = uint32(callbackGasLimit)
	raffle.RequestConfirmations = uint16(requestConfirmations)
	raffle.NumWords = uint32(numWords)
	raffle.RecentWinner = addressPtr(recentWinner)

	return &raffle, nil
}
