package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"raffle/cmd"
	"raffle/config"
	"raffle/logging"

	log "github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	flush := func() {}
	app := cmd.NewApp(ctx)
	app.Before = func(c *cli.Context) error {
		cfg := config.Get()
		f, err := logging.Setup(logging.Options{
			Level:       cfg.LogLevel,
			Format:      cfg.LogFormat,
			SentryDSN:   cfg.SentryDSN,
			Environment: cfg.Environment,
		})
		if err != nil {
			return err
		}
		flush = f
		return nil
	}

	err := app.Run(os.Args)
	flush()
	if err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
