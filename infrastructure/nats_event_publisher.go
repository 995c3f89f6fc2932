package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"raffle/events"
	"raffle/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// NATSEventPublisher forwards domain events to NATS subjects
type NATSEventPublisher struct {
	client        MessagePublisher
	subjectMapper *EventSubjectMapper
	metrics       *observability.MetricsProvider
	now           func() time.Time
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(client MessagePublisher, subjectMapper *EventSubjectMapper, metrics *observability.MetricsProvider) *NATSEventPublisher {
	return &NATSEventPublisher{
		client:        client,
		subjectMapper: subjectMapper,
		metrics:       metrics,
		now:           time.Now,
	}
}

// Publish publishes an event to NATS using the appropriate subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	return p.PublishContext(context.Background(), event)
}

// PublishContext publishes an event bounded by ctx
func (p *NATSEventPublisher) PublishContext(ctx context.Context, event events.Event) error {
	subject := p.subjectMapper.SubjectFor(event.Type())

	envelope, err := NewEventEnvelope(event, p.now())
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.client.Publish(ctx, subject, data); err != nil {
		// No stream bound to the subject; nobody is listening
		if strings.Contains(err.Error(), "no response from stream") {
			return nil
		}
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	p.metrics.RecordNATSMessagePublished(string(event.Type()))
	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// ForwardFrom subscribes to every mapped event type on the bus and
// republishes committed events to NATS
func (p *NATSEventPublisher) ForwardFrom(bus *events.Bus) {
	bus.SubscribeAll(p.subjectMapper.EventTypes(), func(ctx context.Context, event events.Event) {
		if err := p.PublishContext(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to forward event to NATS")
		}
	})
}

// EnsureRaffleEventStream ensures the raffle event stream exists with every published subject
func EnsureRaffleEventStream(client *NATSClient, subjectMapper *EventSubjectMapper) error {
	return client.EnsureStream(RaffleEventStream, subjectMapper.GetAllSubjects(), "Raffle lifecycle and randomness events")
}
