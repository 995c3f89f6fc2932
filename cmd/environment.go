package cmd

import (
	"context"
	"fmt"

	"raffle/application"
	"raffle/config"
	"raffle/database"
	"raffle/events"
	"raffle/infrastructure"
	"raffle/infrastructure/observability"
	"raffle/infrastructure/vrf"
	"raffle/repository"

	log "github.com/sirupsen/logrus"
)

// environment holds the wiring shared by the service and the operator commands
type environment struct {
	cfg     *config.Config
	network *config.NetworkConfig
	db      *database.DB
	bus     *events.Bus
	app     *application.RaffleApp
	nats    *infrastructure.NATSClient
	metrics *observability.MetricsProvider
}

// newEnvironment connects to the database and builds the raffle application.
// When NATS is configured, committed events are forwarded to JetStream.
func newEnvironment(ctx context.Context, cfg *config.Config, metrics *observability.MetricsProvider) (*environment, error) {
	network, err := cfg.NetworkConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load network config: %w", err)
	}

	words, err := vrf.NewWordSource(cfg.RandomnessMode)
	if err != nil {
		return nil, err
	}

	log.WithField("network", cfg.Network).Debug("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), cfg.PoolOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	env := &environment{
		cfg:     cfg,
		network: network,
		db:      db,
		bus:     events.NewBus(),
		metrics: metrics,
	}

	if cfg.NATSEnabled() {
		if err := env.connectNATS(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	env.app = application.NewRaffleApp(
		repository.NewUnitOfWorkFactory(db, env.bus),
		vrf.FeeConfig{BaseFee: network.BaseFee, GasPrice: network.GasPrice},
		words,
		application.WithMetrics(metrics),
	)

	return env, nil
}

func (e *environment) connectNATS(ctx context.Context) error {
	client := infrastructure.NewNATSClient(e.cfg.NATSServers, "raffle-"+e.cfg.Network)
	if err := client.Connect(ctx); err != nil {
		return err
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := infrastructure.EnsureRaffleEventStream(client, mapper); err != nil {
		client.Close()
		return err
	}
	infrastructure.NewNATSEventPublisher(client, mapper, e.metrics).ForwardFrom(e.bus)

	e.nats = client
	return nil
}

// Close waits for in-flight event handlers, then releases connections
func (e *environment) Close() {
	e.bus.Wait()

	if e.nats != nil {
		if err := e.nats.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}
	e.db.Close()
}
