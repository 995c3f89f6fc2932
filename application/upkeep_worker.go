package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffle/domain/services"

	"github.com/gorhill/cronexpr"
	log "github.com/sirupsen/logrus"
)

// UpkeepWorker polls every raffle on a cron schedule and starts settlement
// of the ones whose upkeep predicate holds
type UpkeepWorker struct {
	ops      UpkeepOperations
	schedule *cronexpr.Expression
	now      func() time.Time
}

// UpkeepSummary counts the outcomes of one pass
type UpkeepSummary struct {
	Checked   int
	Performed int
	Skipped   int
	Failed    int
}

// NewUpkeepWorker creates a new upkeep worker. The schedule is a cron
// expression that may carry a leading seconds field.
func NewUpkeepWorker(ops UpkeepOperations, schedule string) (*UpkeepWorker, error) {
	expr, err := cronexpr.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid upkeep schedule %q: %w", schedule, err)
	}
	return &UpkeepWorker{
		ops:      ops,
		schedule: expr,
		now:      time.Now,
	}, nil
}

// Start begins the upkeep worker and returns its stop function
func (w *UpkeepWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Info("Upkeep worker started")

		for {
			now := w.now()
			next := w.schedule.Next(now)
			if next.IsZero() {
				log.Warn("Upkeep schedule has no future runs, stopping worker")
				return
			}

			select {
			case <-ctx.Done():
				log.Info("Upkeep worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Upkeep worker shutting down (stop requested)...")
				return
			case <-time.After(next.Sub(now)):
				if _, err := w.RunOnce(ctx); err != nil {
					log.Errorf("Error running upkeep: %v", err)
				}
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// RunOnce checks every raffle once. Each raffle is checked in a read
// transaction and, when due, settled in a transaction of its own.
func (w *UpkeepWorker) RunOnce(ctx context.Context) (*UpkeepSummary, error) {
	raffles, err := w.ops.ListRaffles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list raffles: %w", err)
	}

	summary := &UpkeepSummary{}
	for _, raffle := range raffles {
		summary.Checked++

		check, err := w.ops.CheckUpkeep(ctx, raffle.ID)
		if err != nil {
			log.Errorf("Failed to check upkeep for raffle %d: %v", raffle.ID, err)
			summary.Failed++
			continue
		}
		if !check.Needed {
			log.WithFields(log.Fields{
				"raffleID": raffle.ID,
				"reason":   check.Reason(),
			}).Debug("Upkeep not needed")
			summary.Skipped++
			continue
		}

		result, err := w.ops.PerformUpkeep(ctx, raffle.ID)
		switch {
		case errors.Is(err, services.ErrUpkeepNotNeeded):
			// Another caller settled it between the check and the perform
			log.WithField("raffleID", raffle.ID).Info("Upkeep no longer needed")
			summary.Skipped++
		case err != nil:
			log.Errorf("Failed to perform upkeep for raffle %d: %v", raffle.ID, err)
			summary.Failed++
		default:
			log.WithFields(log.Fields{
				"raffleID":  raffle.ID,
				"round":     result.Raffle.Round,
				"requestID": result.RequestID,
			}).Info("Upkeep performed")
			summary.Performed++
		}
	}

	log.WithFields(log.Fields{
		"checked":   summary.Checked,
		"performed": summary.Performed,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}).Info("Completed upkeep pass")

	return summary, nil
}
