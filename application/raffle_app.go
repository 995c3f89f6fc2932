package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffle/config"
	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/domain/services"
	"raffle/infrastructure/observability"
	"raffle/infrastructure/vrf"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// RaffleApp runs raffle, wallet and coordinator operations, each inside its own unit of work
type RaffleApp struct {
	uowFactory UnitOfWorkFactory
	fees       vrf.FeeConfig
	words      vrf.WordSource
	metrics    *observability.MetricsProvider
	now        func() time.Time
}

// RaffleAppOption customizes a RaffleApp
type RaffleAppOption func(*RaffleApp)

// WithAppClock overrides the time source handed to the services
func WithAppClock(now func() time.Time) RaffleAppOption {
	return func(a *RaffleApp) {
		a.now = now
	}
}

// WithMetrics records operation outcomes on the given provider
func WithMetrics(metrics *observability.MetricsProvider) RaffleAppOption {
	return func(a *RaffleApp) {
		a.metrics = metrics
	}
}

// NewRaffleApp creates a new raffle application
func NewRaffleApp(uowFactory UnitOfWorkFactory, fees vrf.FeeConfig, words vrf.WordSource, opts ...RaffleAppOption) *RaffleApp {
	a := &RaffleApp{
		uowFactory: uowFactory,
		fees:       fees,
		words:      words,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// serviceSet holds the services bound to one unit of work
type serviceSet struct {
	raffle      interfaces.RaffleService
	wallet      interfaces.WalletService
	coordinator *vrf.Coordinator
}

func (a *RaffleApp) services(uow UnitOfWork) serviceSet {
	wallet := services.NewWalletService(
		uow.AccountRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
	)
	coordinator := vrf.NewCoordinator(uow.VRFRepository(), uow.EventBus(), a.fees, a.words)
	raffle := services.NewRaffleService(
		uow.RaffleRepository(),
		uow.RaffleEntryRepository(),
		uow.RaffleWinnerRepository(),
		wallet,
		coordinator,
		uow.EventBus(),
		services.WithClock(a.now),
	)
	return serviceSet{raffle: raffle, wallet: wallet, coordinator: coordinator}
}

// withUnitOfWork runs fn in a transaction and commits when it succeeds
func (a *RaffleApp) withUnitOfWork(ctx context.Context, fn func(uow UnitOfWork, svc serviceSet) error) error {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(uow, a.services(uow)); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// readOnly begins a unit of work for queries
func (a *RaffleApp) readOnly(ctx context.Context) (UnitOfWork, error) {
	uow := a.uowFactory.Create()
	if err := uow.BeginReadOnly(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	return uow, nil
}

// DeployParams describes a raffle to deploy on a network
type DeployParams struct {
	Name    string
	Owner   common.Address // Owner of a newly created subscription
	Network config.NetworkConfig
}

// DeployResult is the outcome of a deployment
type DeployResult struct {
	Raffle       *entities.Raffle
	Subscription *entities.VRFSubscription
	Created      bool // False when a raffle with the same name already existed
}

// Deploy creates the named raffle if it does not exist. Without a configured
// subscription a new one is created and funded; the raffle is then registered
// as a consumer.
func (a *RaffleApp) Deploy(ctx context.Context, params DeployParams) (*DeployResult, error) {
	var result *DeployResult
	err := a.withUnitOfWork(ctx, func(uow UnitOfWork, svc serviceSet) error {
		existing, err := uow.RaffleRepository().GetByName(ctx, params.Name)
		if err != nil {
			return fmt.Errorf("failed to look up raffle: %w", err)
		}
		if existing != nil {
			sub, err := uow.VRFRepository().GetSubscription(ctx, existing.SubscriptionID)
			if err != nil {
				return fmt.Errorf("failed to get subscription: %w", err)
			}
			result = &DeployResult{Raffle: existing, Subscription: sub}
			return nil
		}

		network := params.Network
		var sub *entities.VRFSubscription
		if network.SubscriptionID == 0 {
			sub, err = svc.coordinator.CreateSubscription(ctx, params.Owner)
			if err != nil {
				return fmt.Errorf("failed to create subscription: %w", err)
			}
			if network.SubscriptionFund > 0 {
				if sub, err = svc.coordinator.FundSubscription(ctx, sub.ID, network.SubscriptionFund); err != nil {
					return fmt.Errorf("failed to fund subscription: %w", err)
				}
			}
		} else {
			sub, err = uow.VRFRepository().GetSubscription(ctx, network.SubscriptionID)
			if err != nil {
				return fmt.Errorf("failed to get subscription: %w", err)
			}
			if sub == nil {
				return fmt.Errorf("%w: %d", vrf.ErrInvalidSubscription, network.SubscriptionID)
			}
		}

		raffle, err := svc.raffle.CreateRaffle(ctx, interfaces.CreateRaffleParams{
			Name:                 params.Name,
			EntranceFee:          network.EntranceFee,
			Interval:             network.Interval.Duration,
			KeyHash:              network.KeyHashValue(),
			SubscriptionID:       sub.ID,
			CallbackGasLimit:     network.CallbackGasLimit,
			RequestConfirmations: network.Confirmations,
			NumWords:             network.NumWords,
		})
		if err != nil {
			return err
		}

		if err := svc.coordinator.AddConsumer(ctx, sub.ID, raffle.ID); err != nil {
			return fmt.Errorf("failed to add consumer: %w", err)
		}

		result = &DeployResult{Raffle: raffle, Subscription: sub, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"raffleID":       result.Raffle.ID,
		"name":           result.Raffle.Name,
		"subscriptionID": result.Raffle.SubscriptionID,
		"created":        result.Created,
	}).Info("Raffle deployed")

	return result, nil
}

// FundSubscription tops up a coordinator subscription
func (a *RaffleApp) FundSubscription(ctx context.Context, subscriptionID, amount int64) (*entities.VRFSubscription, error) {
	var sub *entities.VRFSubscription
	err := a.withUnitOfWork(ctx, func(uow UnitOfWork, svc serviceSet) error {
		var err error
		sub, err = svc.coordinator.FundSubscription(ctx, subscriptionID, amount)
		return err
	})
	return sub, err
}

// Deposit credits a participant account
func (a *RaffleApp) Deposit(ctx context.Context, address common.Address, amount int64) (*entities.Account, error) {
	var account *entities.Account
	err := a.withUnitOfWork(ctx, func(uow UnitOfWork, svc serviceSet) error {
		var err error
		account, err = svc.wallet.Deposit(ctx, address, amount)
		return err
	})
	return account, err
}

// SetFrozen freezes or unfreezes a participant account
func (a *RaffleApp) SetFrozen(ctx context.Context, address common.Address, frozen bool) error {
	return a.withUnitOfWork(ctx, func(uow UnitOfWork, svc serviceSet) error {
		return svc.wallet.SetFrozen(ctx, address, frozen)
	})
}

// Enter pays amount from the player's account into the raffle
func (a *RaffleApp) Enter(ctx context.Context, raffleID int64, player common.Address, amount int64) (*interfaces.EnterResult, error) {
	var result *interfaces.EnterResult
	err := a.withUnitOfWork(ctx, func(uow UnitOfWork, svc serviceSet) error {
		var err error
		result, err = svc.raffle.Enter(ctx, raffleID, player, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.metrics.RecordEntry(raffleID, amount)
	return result, nil
}

// CheckUpkeep evaluates the upkeep predicate in a read-only transaction
func (a *RaffleApp) CheckUpkeep(ctx context.Context, raffleID int64) (*entities.UpkeepCheck, error) {
	uow, err := a.readOnly(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	return a.services(uow).raffle.CheckUpkeep(ctx, raffleID)
}

// PerformUpkeep starts settlement of a raffle
func (a *RaffleApp) PerformUpkeep(ctx context.Context, raffleID int64) (*interfaces.UpkeepResult, error) {
	var result *interfaces.UpkeepResult
	err := a.withUnitOfWork(ctx, func(uow UnitOfWork, svc serviceSet) error {
		var err error
		result, err = svc.raffle.PerformUpkeep(ctx, raffleID)
		return err
	})

	switch {
	case err == nil:
		a.metrics.RecordUpkeep(raffleID, observability.UpkeepPerformed)
	case errors.Is(err, services.ErrUpkeepNotNeeded):
		a.metrics.RecordUpkeep(raffleID, observability.UpkeepNotNeeded)
	default:
		a.metrics.RecordUpkeep(raffleID, observability.UpkeepFailed)
	}
	return result, err
}

// FulfillRequest answers a pending randomness request and settles its raffle.
// A failed settlement leaves both the request and the raffle untouched.
func (a *RaffleApp) FulfillRequest(ctx context.Context, requestID int64) (*vrf.FulfillResult, error) {
	var result *vrf.FulfillResult
	err := a.withUnitOfWork(ctx, func(uow UnitOfWork, svc serviceSet) error {
		var err error
		result, err = svc.coordinator.FulfillRandomWords(ctx, requestID, svc.raffle)
		return err
	})
	if err != nil {
		raffleID := vrf.FailedRaffleID(err)
		if errors.Is(err, services.ErrTransferFailed) {
			a.metrics.RecordSettlement(raffleID, observability.SettlementTransferFailed, 0)
			log.WithError(err).WithFields(log.Fields{
				"requestID": requestID,
				"raffleID":  raffleID,
			}).Warn("Winner payout failed, raffle stays calculating")
		} else {
			a.metrics.RecordSettlement(raffleID, observability.SettlementRejected, 0)
		}
		return nil, err
	}

	settlement := result.Settlement
	a.metrics.RecordSettlement(result.Request.RaffleID, observability.SettlementSucceeded, settlement.Payout)
	if result.Request.FulfilledAt != nil {
		a.metrics.RecordFulfillmentLatency(result.Request.FulfilledAt.Sub(result.Request.CreatedAt))
	}

	log.WithFields(log.Fields{
		"requestID": requestID,
		"raffleID":  result.Request.RaffleID,
		"round":     settlement.Round,
		"winner":    settlement.Winner.Hex(),
		"payout":    settlement.Payout,
		"payment":   result.Payment,
	}).Info("Raffle settled")

	return result, nil
}

// PendingRequests lists randomness requests that still await an answer
func (a *RaffleApp) PendingRequests(ctx context.Context) ([]*entities.RandomnessRequest, error) {
	uow, err := a.readOnly(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	return a.services(uow).coordinator.PendingRequests(ctx)
}

// ListRaffles returns every deployed raffle
func (a *RaffleApp) ListRaffles(ctx context.Context) ([]*entities.Raffle, error) {
	uow, err := a.readOnly(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	return uow.RaffleRepository().List(ctx)
}

// RaffleStatus is a read-only snapshot of a raffle
type RaffleStatus struct {
	Raffle        *entities.Raffle
	Players       []common.Address
	Participants  []*entities.RaffleParticipantInfo
	RecentWinners []*entities.RaffleWinner
	Upkeep        *entities.UpkeepCheck
	Subscription  *entities.VRFSubscription
}

// Status gathers the current round, the upkeep predicate and the latest winners
func (a *RaffleApp) Status(ctx context.Context, raffleID int64, winnerLimit int) (*RaffleStatus, error) {
	uow, err := a.readOnly(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	raffleService := a.services(uow).raffle

	raffle, err := raffleService.GetRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	status := &RaffleStatus{Raffle: raffle}

	if status.Players, err = raffleService.GetPlayers(ctx, raffleID); err != nil {
		return nil, err
	}
	if status.Participants, err = uow.RaffleEntryRepository().GetParticipantSummary(ctx, raffleID, raffle.Round); err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	if status.RecentWinners, err = raffleService.GetRecentWinners(ctx, raffleID, winnerLimit); err != nil {
		return nil, err
	}
	if status.Upkeep, err = raffleService.CheckUpkeep(ctx, raffleID); err != nil {
		return nil, err
	}
	if status.Subscription, err = uow.VRFRepository().GetSubscription(ctx, raffle.SubscriptionID); err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return status, nil
}

// GetAccount returns a participant account or nil
func (a *RaffleApp) GetAccount(ctx context.Context, address common.Address) (*entities.Account, error) {
	uow, err := a.readOnly(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	return a.services(uow).wallet.GetAccount(ctx, address)
}
