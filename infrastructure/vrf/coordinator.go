package vrf

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/events"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// MaxNumWords caps the words a single request may ask for
const MaxNumWords uint32 = 500

// FeeConfig prices fulfillment: BaseFee + GasPrice * CallbackGasLimit
type FeeConfig struct {
	BaseFee  int64
	GasPrice int64
}

// Payment returns the amount charged for fulfilling a request
func (f FeeConfig) Payment(callbackGasLimit uint32) int64 {
	return f.BaseFee + f.GasPrice*int64(callbackGasLimit)
}

// Coordinator is a local randomness coordinator backed by the database.
// Like the services it is scoped to a single unit of work.
type Coordinator struct {
	repo           interfaces.VRFRepository
	eventPublisher interfaces.EventPublisher
	fees           FeeConfig
	words          WordSource
	now            func() time.Time
}

// NewCoordinator creates a coordinator on the given repository
func NewCoordinator(repo interfaces.VRFRepository, eventPublisher interfaces.EventPublisher, fees FeeConfig, words WordSource) *Coordinator {
	return &Coordinator{
		repo:           repo,
		eventPublisher: eventPublisher,
		fees:           fees,
		words:          words,
		now:            time.Now,
	}
}

// FulfillResult describes an answered request
type FulfillResult struct {
	Request    *entities.RandomnessRequest
	Words      []*big.Int
	Payment    int64
	Settlement *interfaces.SettlementResult
}

// CreateSubscription opens an empty subscription owned by owner
func (c *Coordinator) CreateSubscription(ctx context.Context, owner common.Address) (*entities.VRFSubscription, error) {
	sub, err := c.repo.CreateSubscription(ctx, owner)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"subscriptionID": sub.ID,
		"owner":          owner.Hex(),
	}).Info("Subscription created")

	return sub, nil
}

// FundSubscription adds amount to a subscription's balance
func (c *Coordinator) FundSubscription(ctx context.Context, subscriptionID, amount int64) (*entities.VRFSubscription, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	sub, err := c.lockSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	oldBalance := sub.Balance
	sub.Balance += amount
	if err := c.repo.UpdateSubscriptionBalance(ctx, sub.ID, sub.Balance); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"subscriptionID": sub.ID,
		"oldBalance":     oldBalance,
		"newBalance":     sub.Balance,
	}).Info("Subscription funded")

	return sub, nil
}

// AddConsumer allows a raffle to request randomness on a subscription
func (c *Coordinator) AddConsumer(ctx context.Context, subscriptionID, raffleID int64) error {
	if _, err := c.getSubscription(ctx, subscriptionID); err != nil {
		return err
	}
	if err := c.repo.AddConsumer(ctx, subscriptionID, raffleID); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"subscriptionID": subscriptionID,
		"raffleID":       raffleID,
	}).Info("Consumer added")
	return nil
}

// RemoveConsumer revokes a raffle's access to a subscription
func (c *Coordinator) RemoveConsumer(ctx context.Context, subscriptionID, raffleID int64) error {
	if _, err := c.getSubscription(ctx, subscriptionID); err != nil {
		return err
	}
	if err := c.repo.RemoveConsumer(ctx, subscriptionID, raffleID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConsumer, err)
	}
	return nil
}

// RequestRandomWords records a pending request and returns its ID
func (c *Coordinator) RequestRandomWords(ctx context.Context, req interfaces.RandomWordsRequest) (int64, error) {
	if _, err := c.getSubscription(ctx, req.SubscriptionID); err != nil {
		return 0, err
	}

	isConsumer, err := c.repo.IsConsumer(ctx, req.SubscriptionID, req.RaffleID)
	if err != nil {
		return 0, err
	}
	if !isConsumer {
		return 0, fmt.Errorf("%w: raffle %d on subscription %d", ErrInvalidConsumer, req.RaffleID, req.SubscriptionID)
	}

	if req.NumWords == 0 || req.NumWords > MaxNumWords {
		return 0, fmt.Errorf("%w: %d (max %d)", ErrNumWordsTooBig, req.NumWords, MaxNumWords)
	}

	request := &entities.RandomnessRequest{
		SubscriptionID:       req.SubscriptionID,
		RaffleID:             req.RaffleID,
		KeyHash:              req.KeyHash,
		MinimumConfirmations: req.MinimumConfirmations,
		CallbackGasLimit:     req.CallbackGasLimit,
		NumWords:             req.NumWords,
	}
	if err := c.repo.CreateRequest(ctx, request); err != nil {
		return 0, err
	}

	if err := c.eventPublisher.Publish(events.RandomWordsRequestedEvent{
		RequestID:            request.ID,
		SubscriptionID:       request.SubscriptionID,
		RaffleID:             request.RaffleID,
		KeyHash:              request.KeyHash,
		MinimumConfirmations: request.MinimumConfirmations,
		CallbackGasLimit:     request.CallbackGasLimit,
		NumWords:             request.NumWords,
	}); err != nil {
		log.WithError(err).WithField("requestID", request.ID).Error("Failed to publish random words request")
	}

	log.WithFields(log.Fields{
		"requestID":      request.ID,
		"subscriptionID": request.SubscriptionID,
		"raffleID":       request.RaffleID,
		"numWords":       request.NumWords,
	}).Info("Random words requested")

	return request.ID, nil
}

// FulfillRandomWords answers a pending request and delivers the words to the consumer.
// Any error, including one returned by the consumer, must roll back the enclosing
// transaction so the request stays pending.
func (c *Coordinator) FulfillRandomWords(ctx context.Context, requestID int64, consumer interfaces.RandomnessConsumer) (*FulfillResult, error) {
	request, err := c.repo.GetRequestForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil || request.IsFulfilled() {
		return nil, fmt.Errorf("%w: %d", ErrNonexistentRequest, requestID)
	}

	result, err := c.fulfill(ctx, request, consumer)
	if err != nil {
		return nil, &FulfillError{RequestID: request.ID, RaffleID: request.RaffleID, Err: err}
	}
	return result, nil
}

func (c *Coordinator) fulfill(ctx context.Context, request *entities.RandomnessRequest, consumer interfaces.RandomnessConsumer) (*FulfillResult, error) {
	sub, err := c.lockSubscription(ctx, request.SubscriptionID)
	if err != nil {
		return nil, err
	}

	payment := c.fees.Payment(request.CallbackGasLimit)
	if sub.Balance < payment {
		return nil, fmt.Errorf("%w: subscription %d has %d, fulfillment costs %d", ErrInsufficientBalance, sub.ID, sub.Balance, payment)
	}

	words, err := c.words.Words(request.ID, request.NumWords)
	if err != nil {
		return nil, err
	}

	if err := c.repo.UpdateSubscriptionBalance(ctx, sub.ID, sub.Balance-payment); err != nil {
		return nil, err
	}

	request.Fulfill(payment, c.now())
	if err := c.repo.MarkFulfilled(ctx, request); err != nil {
		return nil, err
	}

	settlement, err := consumer.FulfillRandomWords(ctx, request.RaffleID, request.ID, words)
	if err != nil {
		return nil, fmt.Errorf("consumer %d rejected request %d: %w", request.RaffleID, request.ID, err)
	}

	if err := c.eventPublisher.Publish(events.RandomWordsFulfilledEvent{
		RequestID: request.ID,
		RaffleID:  request.RaffleID,
		Payment:   payment,
	}); err != nil {
		log.WithError(err).WithField("requestID", request.ID).Error("Failed to publish random words fulfillment")
	}

	log.WithFields(log.Fields{
		"requestID":      request.ID,
		"subscriptionID": sub.ID,
		"raffleID":       request.RaffleID,
		"payment":        payment,
	}).Info("Random words fulfilled")

	return &FulfillResult{
		Request:    request,
		Words:      words,
		Payment:    payment,
		Settlement: settlement,
	}, nil
}

// PendingRequests returns requests that have not been answered yet
func (c *Coordinator) PendingRequests(ctx context.Context) ([]*entities.RandomnessRequest, error) {
	return c.repo.GetPendingRequests(ctx)
}

func (c *Coordinator) getSubscription(ctx context.Context, id int64) (*entities.VRFSubscription, error) {
	sub, err := c.repo.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSubscription, id)
	}
	return sub, nil
}

func (c *Coordinator) lockSubscription(ctx context.Context, id int64) (*entities.VRFSubscription, error) {
	sub, err := c.repo.GetSubscriptionForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSubscription, id)
	}
	return sub, nil
}
