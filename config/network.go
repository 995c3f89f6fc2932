package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultNetwork is the network that runs against the local coordinator
const DefaultNetwork = "local"

// NetworkConfig holds the raffle parameters of one network
type NetworkConfig struct {
	Name             string   `toml:"-"`
	EntranceFee      int64    `toml:"entrance_fee"`
	Interval         Duration `toml:"interval"`
	KeyHash          string   `toml:"key_hash"`
	SubscriptionID   int64    `toml:"subscription_id"` // 0 creates a subscription on deploy
	CallbackGasLimit uint32   `toml:"callback_gas_limit"`
	Confirmations    uint16   `toml:"request_confirmations"`
	NumWords         uint32   `toml:"num_words"`

	// Local coordinator pricing and funding
	BaseFee          int64 `toml:"base_fee"`
	GasPrice         int64 `toml:"gas_price"`
	SubscriptionFund int64 `toml:"subscription_fund"`
}

// Duration decodes TOML strings such as "30s"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// KeyHashValue returns the parsed gas lane
func (n *NetworkConfig) KeyHashValue() common.Hash {
	return common.HexToHash(n.KeyHash)
}

// Validate checks that every parameter a raffle needs is present
func (n *NetworkConfig) Validate() error {
	if n.EntranceFee <= 0 {
		return fmt.Errorf("network %s: entrance_fee must be positive", n.Name)
	}
	if n.Interval.Duration < time.Second || n.Interval.Duration%time.Second != 0 {
		return fmt.Errorf("network %s: interval must be a whole number of seconds", n.Name)
	}
	if n.KeyHashValue() == (common.Hash{}) {
		return fmt.Errorf("network %s: key_hash is required", n.Name)
	}
	if n.CallbackGasLimit == 0 {
		return fmt.Errorf("network %s: callback_gas_limit must be positive", n.Name)
	}
	if n.SubscriptionID < 0 || n.BaseFee < 0 || n.GasPrice < 0 || n.SubscriptionFund < 0 {
		return fmt.Errorf("network %s: subscription and fee settings cannot be negative", n.Name)
	}
	return nil
}

// LocalNetwork returns the built-in parameters of the local network
func LocalNetwork() NetworkConfig {
	return NetworkConfig{
		Name:             DefaultNetwork,
		EntranceFee:      10_000_000_000_000_000, // 0.01 ether
		Interval:         Duration{30 * time.Second},
		KeyHash:          "0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc",
		CallbackGasLimit: 500_000,
		Confirmations:    3,
		NumWords:         1,
		BaseFee:          250_000_000_000_000_000, // 0.25 LINK premium per request
		GasPrice:         1_000_000_000,
		SubscriptionFund: 1_000_000_000_000_000_000,
	}
}

// LoadNetworkConfig resolves the parameters of a network. Without a file only
// the local network is known; a file entry overrides the built-in values.
func LoadNetworkConfig(path, network string) (*NetworkConfig, error) {
	networks := map[string]NetworkConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read network config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &networks); err != nil {
			return nil, fmt.Errorf("failed to parse network config %s: %w", path, err)
		}
	}

	cfg, ok := networks[network]
	switch {
	case ok && network == DefaultNetwork:
		cfg = mergeLocal(cfg)
	case ok:
	case network == DefaultNetwork:
		cfg = LocalNetwork()
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}

	cfg.Name = network
	if cfg.NumWords == 0 {
		cfg.NumWords = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NetworkConfig loads the parameters of the configured network
func (c *Config) NetworkConfig() (*NetworkConfig, error) {
	return LoadNetworkConfig(c.NetworkConfigPath, c.Network)
}

func mergeLocal(override NetworkConfig) NetworkConfig {
	merged := LocalNetwork()
	if override.EntranceFee != 0 {
		merged.EntranceFee = override.EntranceFee
	}
	if override.Interval.Duration != 0 {
		merged.Interval = override.Interval
	}
	if override.KeyHash != "" {
		merged.KeyHash = override.KeyHash
	}
	if override.SubscriptionID != 0 {
		merged.SubscriptionID = override.SubscriptionID
	}
	if override.CallbackGasLimit != 0 {
		merged.CallbackGasLimit = override.CallbackGasLimit
	}
	if override.Confirmations != 0 {
		merged.Confirmations = override.Confirmations
	}
	if override.NumWords != 0 {
		merged.NumWords = override.NumWords
	}
	if override.BaseFee != 0 {
		merged.BaseFee = override.BaseFee
	}
	if override.GasPrice != 0 {
		merged.GasPrice = override.GasPrice
	}
	if override.SubscriptionFund != 0 {
		merged.SubscriptionFund = override.SubscriptionFund
	}
	return merged
}
