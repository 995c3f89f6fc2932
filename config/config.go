package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"raffle/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL       string
	DatabaseName      string
	DBMaxConns        int32
	DBMaxConnLifetime time.Duration

	// Network selects the raffle parameters from the network file
	Network           string
	NetworkConfigPath string

	// Automation
	UpkeepSchedule string // Cron expression with a seconds field

	// Local VRF coordinator
	RandomnessMode     string // "deterministic" or "secure"
	FulfillMaxAttempts int
	FulfillRetryDelay  time.Duration

	// NATS configuration; empty disables JetStream transport
	NATSServers string

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"
	SentryDSN string

	// Discord announcements; empty token disables them
	DiscordToken     string
	DiscordChannelID string

	// OpenTelemetry metrics
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// PoolOptions returns the connection pool settings
func (c *Config) PoolOptions() database.PoolOptions {
	return database.PoolOptions{
		MaxConns:        c.DBMaxConns,
		MaxConnLifetime: c.DBMaxConnLifetime,
	}
}

// NATSEnabled reports whether events are forwarded to JetStream
func (c *Config) NATSEnabled() bool {
	return strings.TrimSpace(c.NATSServers) != ""
}

// DiscordEnabled reports whether settlement announcements are posted
func (c *Config) DiscordEnabled() bool {
	return c.DiscordToken != "" && c.DiscordChannelID != ""
}

func load() (*Config, error) {
	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),
		DBMaxConns:   int32(getEnvInt("DB_MAX_CONNS", 0)),

		Network:           getEnvWithDefault("NETWORK", DefaultNetwork),
		NetworkConfigPath: os.Getenv("NETWORK_CONFIG"),

		UpkeepSchedule: getEnvWithDefault("UPKEEP_SCHEDULE", "*/10 * * * * * *"),

		RandomnessMode:     getEnvWithDefault("RANDOMNESS_MODE", "deterministic"),
		FulfillMaxAttempts: getEnvInt("FULFILL_MAX_ATTEMPTS", 3),

		NATSServers: os.Getenv("NATS_SERVERS"),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),
		SentryDSN: os.Getenv("SENTRY_DSN"),

		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "raffle"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: getEnvInt("OTEL_EXPORT_INTERVAL_MILLIS", 60000),

		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
	}

	var err error
	if config.DBMaxConnLifetime, err = getEnvDuration("DB_MAX_CONN_LIFETIME", 0); err != nil {
		return nil, err
	}
	if config.FulfillRetryDelay, err = getEnvDuration("FULFILL_RETRY_DELAY", 2*time.Second); err != nil {
		return nil, err
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
		if config.FulfillMaxAttempts < 1 {
			return nil, fmt.Errorf("FULFILL_MAX_ATTEMPTS must be at least 1")
		}
	}

	return config, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:        "test",
		Network:            DefaultNetwork,
		UpkeepSchedule:     "* * * * * * *",
		RandomnessMode:     "deterministic",
		FulfillMaxAttempts: 1,
		LogLevel:           "debug",
		LogFormat:          "text",
		OTelExporterType:   "none",
		OTelServiceName:    "raffle-test",
	}
}
