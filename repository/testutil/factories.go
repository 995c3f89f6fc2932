package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"raffle/database"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// TestKeyHash is the gas lane used by fixtures
var TestKeyHash = common.HexToHash("0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc")

// TestAddress returns a deterministic participant address
func TestAddress(n int) common.Address {
	return common.HexToAddress(fmt.Sprintf("0x%040x", n))
}

// InsertAccount creates an account with the given balance
func InsertAccount(t *testing.T, db *database.DB, address common.Address, balance int64) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		`INSERT INTO accounts (address, balance) VALUES ($1, $2)`,
		address.Bytes(), balance,
	)
	require.NoError(t, err)
}

// InsertSubscription creates a funded coordinator subscription and returns its id
func InsertSubscription(t *testing.T, db *database.DB, owner common.Address, balance int64) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO vrf_subscriptions (owner, balance) VALUES ($1, $2) RETURNING id`,
		owner.Bytes(), balance,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// InsertRaffle creates an open raffle on the subscription and registers it as consumer
func InsertRaffle(t *testing.T, db *database.DB, name string, subscriptionID, entranceFee int64, interval time.Duration, lastSettlement time.Time) int64 {
	t.Helper()

	ctx := context.Background()
	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO raffles (
			name, entrance_fee, interval_seconds, key_hash, subscription_id,
			callback_gas_limit, request_confirmations, num_words, last_settlement_at
		)
		VALUES ($1, $2, $3, $4, $5, 500000, 3, 1, $6)
		RETURNING id
	`, name, entranceFee, int64(interval/time.Second), TestKeyHash.Bytes(), subscriptionID, lastSettlement).Scan(&id)
	require.NoError(t, err)

	_, err = db.Exec(ctx,
		`INSERT INTO vrf_consumers (subscription_id, raffle_id) VALUES ($1, $2)`,
		subscriptionID, id,
	)
	require.NoError(t, err)
	return id
}
