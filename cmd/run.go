package cmd

import (
	"context"
	"fmt"
	"time"

	"raffle/application"
	"raffle/bot"
	"raffle/config"
	"raffle/database"
	"raffle/infrastructure"
	"raffle/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// Run starts the raffle service and blocks until ctx is cancelled
func Run(ctx context.Context, cfg *config.Config) error {
	log.WithFields(log.Fields{
		"network":     cfg.Network,
		"environment": cfg.Environment,
	}).Info("Starting raffle service...")

	// Metrics
	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Schema
	log.Info("Running database migrations...")
	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	env, err := newEnvironment(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	log.Info("Database connection established successfully")

	// Fulfiller, fed by JetStream when configured
	fulfiller := application.NewFulfiller(env.app, cfg.FulfillMaxAttempts, cfg.FulfillRetryDelay)
	if env.nats != nil {
		subscriber := infrastructure.NewNATSEventSubscriber(env.nats, infrastructure.NewEventSubjectMapper(), metrics)
		if err := fulfiller.SubscribeTo(subscriber); err != nil {
			env.Close()
			return fmt.Errorf("failed to subscribe fulfiller: %w", err)
		}
		log.Info("Fulfiller listening on JetStream")
	} else {
		fulfiller.SubscribeToBus(env.bus)
		log.Info("Fulfiller listening on the in-process event bus")
	}

	// Requests left pending by a previous run
	if err := fulfiller.DrainPending(ctx); err != nil {
		log.WithError(err).Warn("Some pending requests could not be fulfilled at startup")
	}

	var announcer *bot.Announcer
	if cfg.DiscordEnabled() {
		announcer, err = bot.New(bot.Config{
			Token:     cfg.DiscordToken,
			ChannelID: cfg.DiscordChannelID,
		})
		if err != nil {
			env.Close()
			return fmt.Errorf("failed to initialize Discord announcer: %w", err)
		}
		announcer.Subscribe(env.bus)
	}

	worker, err := application.NewUpkeepWorker(env.app, cfg.UpkeepSchedule)
	if err != nil {
		env.Close()
		return err
	}
	stopWorker := worker.Start(ctx)

	log.WithField("schedule", cfg.UpkeepSchedule).Info("Raffle service is running")
	<-ctx.Done()

	log.Info("Shutting down raffle service...")
	stopWorker()

	if announcer != nil {
		if err := announcer.Close(); err != nil {
			log.WithError(err).Error("Error closing Discord announcer")
		}
	}

	env.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}
