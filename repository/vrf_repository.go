package repository

import (
	"context"
	"fmt"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// VRFRepository implements subscription, consumer and request storage for the coordinator
type VRFRepository struct {
	q Queryable
}

func newVRFRepository(q Queryable) *VRFRepository {
	return &VRFRepository{q: q}
}

// CreateSubscription opens an empty subscription
func (r *VRFRepository) CreateSubscription(ctx context.Context, owner common.Address) (*entities.VRFSubscription, error) {
	query := `
		INSERT INTO vrf_subscriptions (owner)
		VALUES ($1)
		RETURNING id, balance, created_at
	`

	sub := entities.VRFSubscription{Owner: owner}
	err := r.q.QueryRow(ctx, query, owner.Bytes()).Scan(&sub.ID, &sub.Balance, &sub.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription for %s: %w", owner.Hex(), err)
	}

	return &sub, nil
}

// GetSubscription returns the subscription or nil
func (r *VRFRepository) GetSubscription(ctx context.Context, id int64) (*entities.VRFSubscription, error) {
	return r.getSubscription(ctx, `SELECT id, owner, balance, created_at FROM vrf_subscriptions WHERE id = $1`, id)
}

// GetSubscriptionForUpdate returns the subscription with its row locked
func (r *VRFRepository) GetSubscriptionForUpdate(ctx context.Context, id int64) (*entities.VRFSubscription, error) {
	return r.getSubscription(ctx, `SELECT id, owner, balance, created_at FROM vrf_subscriptions WHERE id = $1 FOR UPDATE`, id)
}

// UpdateSubscriptionBalance sets the balance of a subscription
func (r *VRFRepository) UpdateSubscriptionBalance(ctx context.Context, id int64, balance int64) error {
	result, err := r.q.Exec(ctx, `UPDATE vrf_subscriptions SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return fmt.Errorf("failed to update subscription %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("subscription %d not found", id)
	}

	return nil
}

// AddConsumer registers a raffle as a consumer of a subscription; repeated calls are no-ops
func (r *VRFRepository) AddConsumer(ctx context.Context, subscriptionID, raffleID int64) error {
	query := `
		INSERT INTO vrf_consumers (subscription_id, raffle_id)
		VALUES ($1, $2)
		ON CONFLICT (subscription_id, raffle_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, subscriptionID, raffleID); err != nil {
		return fmt.Errorf("failed to add consumer %d to subscription %d: %w", raffleID, subscriptionID, err)
	}

	return nil
}

// RemoveConsumer unregisters a raffle from a subscription
func (r *VRFRepository) RemoveConsumer(ctx context.Context, subscriptionID, raffleID int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM vrf_consumers WHERE subscription_id = $1 AND raffle_id = $2`, subscriptionID, raffleID)
	if err != nil {
		return fmt.Errorf("failed to remove consumer %d from subscription %d: %w", raffleID, subscriptionID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("raffle %d is not a consumer of subscription %d", raffleID, subscriptionID)
	}

	return nil
}

// IsConsumer reports whether a raffle may draw on a subscription
func (r *VRFRepository) IsConsumer(ctx context.Context, subscriptionID, raffleID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM vrf_consumers WHERE subscription_id = $1 AND raffle_id = $2)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, subscriptionID, raffleID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check consumer %d of subscription %d: %w", raffleID, subscriptionID, err)
	}

	return exists, nil
}

// CreateRequest stores a new request and assigns its ID
func (r *VRFRepository) CreateRequest(ctx context.Context, request *entities.RandomnessRequest) error {
	query := `
		INSERT INTO vrf_requests (
			subscription_id, raffle_id, key_hash, minimum_confirmations, callback_gas_limit, num_words
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		request.SubscriptionID,
		request.RaffleID,
		request.KeyHash.Bytes(),
		int32(request.MinimumConfirmations),
		int64(request.CallbackGasLimit),
		int64(request.NumWords),
	).Scan(&request.ID, &request.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create request for raffle %d: %w", request.RaffleID, err)
	}

	return nil
}

// GetRequestForUpdate returns the request with its row locked, or nil
func (r *VRFRepository) GetRequestForUpdate(ctx context.Context, id int64) (*entities.RandomnessRequest, error) {
	query := `
		SELECT id, subscription_id, raffle_id, key_hash, minimum_confirmations,
		       callback_gas_limit, num_words, payment, fulfilled_at, created_at
		FROM vrf_requests
		WHERE id = $1
		FOR UPDATE
	`

	request, err := scanRequest(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request %d: %w", id, err)
	}

	return request, nil
}

// MarkFulfilled stores the payment and fulfillment time of a request
func (r *VRFRepository) MarkFulfilled(ctx context.Context, request *entities.RandomnessRequest) error {
	query := `
		UPDATE vrf_requests
		SET payment = $2, fulfilled_at = $3
		WHERE id = $1 AND fulfilled_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, request.ID, request.Payment, request.FulfilledAt)
	if err != nil {
		return fmt.Errorf("failed to mark request %d fulfilled: %w", request.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("request %d not found or already fulfilled", request.ID)
	}

	return nil
}

// GetPendingRequests returns unfulfilled requests, oldest first
func (r *VRFRepository) GetPendingRequests(ctx context.Context) ([]*entities.RandomnessRequest, error) {
	query := `
		SELECT id, subscription_id, raffle_id, key_hash, minimum_confirmations,
		       callback_gas_limit, num_words, payment, fulfilled_at, created_at
		FROM vrf_requests
		WHERE fulfilled_at IS NULL
		ORDER BY id ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending requests: %w", err)
	}
	defer rows.Close()

	var requests []*entities.RandomnessRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate requests: %w", err)
	}

	return requests, nil
}

func (r *VRFRepository) getSubscription(ctx context.Context, query string, id int64) (*entities.VRFSubscription, error) {
	var sub entities.VRFSubscription
	var owner []byte
	err := r.q.QueryRow(ctx, query, id).Scan(&sub.ID, &owner, &sub.Balance, &sub.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription %d: %w", id, err)
	}

	sub.Owner = common.BytesToAddress(owner)
	return &sub, nil
}

func scanRequest(row pgx.Row) (*entities.RandomnessRequest, error) {
	var (
		request              entities.RandomnessRequest
		keyHash              []byte
		minimumConfirmations int32
		callbackGasLimit     int64
		numWords             int64
	)

	err := row.Scan(
		&request.ID,
		&request.SubscriptionID,
		&request.RaffleID,
		&keyHash,
		&minimumConfirmations,
		&callbackGasLimit,
		&numWords,
		&request.Payment,
		&request.FulfilledAt,
		&request.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	request.KeyHash = common.BytesToHash(keyHash)
	request.MinimumConfirmations = uint16(minimumConfirmations)
	request.CallbackGasLimit = uint32(callbackGasLimit)
	request.NumWords = uint32(numWords)
	return &request, nil
}
