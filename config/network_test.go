package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNetworkFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "networks.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadNetworkConfig(t *testing.T) {
	t.Parallel()

	t.Run("local defaults without a file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadNetworkConfig("", DefaultNetwork)

		require.NoError(t, err)
		assert.Equal(t, LocalNetwork().EntranceFee, cfg.EntranceFee)
		assert.Equal(t, 30*time.Second, cfg.Interval.Duration)
		assert.Equal(t, uint32(500000), cfg.CallbackGasLimit)
		assert.Equal(t, uint32(1), cfg.NumWords)
	})

	t.Run("file overrides local values", func(t *testing.T) {
		t.Parallel()

		path := writeNetworkFile(t, `
[local]
entrance_fee = 100
interval = "45s"
`)
		cfg, err := LoadNetworkConfig(path, DefaultNetwork)

		require.NoError(t, err)
		assert.Equal(t, int64(100), cfg.EntranceFee)
		assert.Equal(t, 45*time.Second, cfg.Interval.Duration)
		assert.Equal(t, LocalNetwork().KeyHash, cfg.KeyHash)
	})

	t.Run("remote network", func(t *testing.T) {
		t.Parallel()

		path := writeNetworkFile(t, `
[sepolia]
entrance_fee = 10000000000000000
interval = "30s"
key_hash = "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"
subscription_id = 588
callback_gas_limit = 500000
request_confirmations = 3
`)
		cfg, err := LoadNetworkConfig(path, "sepolia")

		require.NoError(t, err)
		assert.Equal(t, "sepolia", cfg.Name)
		assert.Equal(t, int64(588), cfg.SubscriptionID)
		assert.Equal(t, uint16(3), cfg.Confirmations)
		assert.Equal(t, "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c", cfg.KeyHashValue().Hex())
	})

	t.Run("unknown network", func(t *testing.T) {
		t.Parallel()

		_, err := LoadNetworkConfig("", "mainnet")
		assert.Error(t, err)
	})

	t.Run("fractional interval is rejected", func(t *testing.T) {
		t.Parallel()

		path := writeNetworkFile(t, `
[local]
interval = "1500ms"
`)
		_, err := LoadNetworkConfig(path, DefaultNetwork)
		assert.Error(t, err)
	})

	t.Run("missing key hash", func(t *testing.T) {
		t.Parallel()

		path := writeNetworkFile(t, `
[goerli]
entrance_fee = 1
interval = "30s"
callback_gas_limit = 1
`)
		_, err := LoadNetworkConfig(path, "goerli")
		assert.Error(t, err)
	})
}
