package events

import (
	"context"
	"sync"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRaffleEnter           EventType = "raffle_enter"
	EventTypeRequestedRaffleWinner EventType = "requested_raffle_winner"
	EventTypeWinnerPicked          EventType = "winner_picked"
	EventTypeRandomWordsRequested  EventType = "random_words_requested"
	EventTypeRandomWordsFulfilled  EventType = "random_words_fulfilled"
	EventTypeBalanceChange         EventType = "balance_change"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// RaffleEnterEvent is emitted for every accepted entry
type RaffleEnterEvent struct {
	RaffleID int64          `json:"raffle_id"`
	Round    int64          `json:"round"`
	Player   common.Address `json:"player"`
	Amount   int64          `json:"amount"`
	Pool     int64          `json:"pool"`
}

func (e RaffleEnterEvent) Type() EventType {
	return EventTypeRaffleEnter
}

// RequestedRaffleWinnerEvent is emitted when settlement starts
type RequestedRaffleWinnerEvent struct {
	RaffleID  int64 `json:"raffle_id"`
	Round     int64 `json:"round"`
	RequestID int64 `json:"request_id"`
}

func (e RequestedRaffleWinnerEvent) Type() EventType {
	return EventTypeRequestedRaffleWinner
}

// WinnerPickedEvent is emitted once the pool has been paid out
type WinnerPickedEvent struct {
	RaffleID  int64          `json:"raffle_id"`
	Round     int64          `json:"round"`
	RequestID int64          `json:"request_id"`
	Winner    common.Address `json:"winner"`
	Payout    int64          `json:"payout"`
}

func (e WinnerPickedEvent) Type() EventType {
	return EventTypeWinnerPicked
}

// RandomWordsRequestedEvent is emitted by the coordinator for the oracle to answer
type RandomWordsRequestedEvent struct {
	RequestID            int64       `json:"request_id"`
	SubscriptionID       int64       `json:"subscription_id"`
	RaffleID             int64       `json:"raffle_id"`
	KeyHash              common.Hash `json:"key_hash"`
	MinimumConfirmations uint16      `json:"minimum_confirmations"`
	CallbackGasLimit     uint32      `json:"callback_gas_limit"`
	NumWords             uint32      `json:"num_words"`
}

func (e RandomWordsRequestedEvent) Type() EventType {
	return EventTypeRandomWordsRequested
}

// RandomWordsFulfilledEvent is emitted once a request has been answered
type RandomWordsFulfilledEvent struct {
	RequestID int64 `json:"request_id"`
	RaffleID  int64 `json:"raffle_id"`
	Payment   int64 `json:"payment"`
}

func (e RandomWordsFulfilledEvent) Type() EventType {
	return EventTypeRandomWordsFulfilled
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	Address         common.Address           `json:"address"`
	OldBalance      int64                    `json:"old_balance"`
	NewBalance      int64                    `json:"new_balance"`
	TransactionType entities.TransactionType `json:"transaction_type"`
	ChangeAmount    int64                    `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	wg       sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// SubscribeAll adds a handler for every listed event type
func (b *Bus) SubscribeAll(eventTypes []EventType, handler Handler) {
	for _, eventType := range eventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	// Handlers run asynchronously so a slow listener never blocks the emitter
	for i, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started so far has returned
func (b *Bus) Wait() {
	b.wg.Wait()
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus after commit.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional bus on top of the given bus
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes the event until Flush
func (b *TransactionalBus) Publish(e Event) error {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
	return nil
}

// Pending returns the events waiting to be flushed
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush emits pending events; called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus to main event bus")

	// Handlers outlive the transaction, so they get a fresh context
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events; called after rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
