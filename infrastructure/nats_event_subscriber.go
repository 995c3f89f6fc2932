package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"raffle/events"
	"raffle/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// MessageSubscriber delivers raw payloads for a subject
type MessageSubscriber interface {
	Subscribe(subject string, handler func([]byte) error) error
}

// EventHandler handles a decoded event; an error requests redelivery
type EventHandler func(ctx context.Context, event events.Event) error

// NATSEventSubscriber subscribes to NATS subjects and deserializes events for application handlers
type NATSEventSubscriber struct {
	client        MessageSubscriber
	subjectMapper *EventSubjectMapper
	metrics       *observability.MetricsProvider
	handlers      map[string]EventHandler
}

// NewNATSEventSubscriber creates a new NATS event subscriber
func NewNATSEventSubscriber(client MessageSubscriber, subjectMapper *EventSubjectMapper, metrics *observability.MetricsProvider) *NATSEventSubscriber {
	return &NATSEventSubscriber{
		client:        client,
		subjectMapper: subjectMapper,
		metrics:       metrics,
		handlers:      make(map[string]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (s *NATSEventSubscriber) Subscribe(eventType events.EventType, handler func(context.Context, events.Event) error) error {
	subject := s.subjectMapper.SubjectFor(eventType)
	s.handlers[subject] = handler

	log.WithFields(log.Fields{
		"eventType": eventType,
		"subject":   subject,
	}).Info("Registering event handler for subject")

	return s.client.Subscribe(subject, func(data []byte) error {
		return s.handleMessage(context.Background(), subject, data)
	})
}

// handleMessage deserializes a NATS message and routes it to the registered handler
func (s *NATSEventSubscriber) handleMessage(ctx context.Context, subject string, data []byte) error {
	var envelope EventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	event, err := envelope.DecodeEvent()
	if err != nil {
		log.WithFields(log.Fields{
			"subject":     subject,
			"eventType":   envelope.EventType,
			"eventId":     envelope.EventID,
			"payloadSize": len(envelope.Payload),
			"error":       err,
		}).Error("Failed to deserialize event payload")
		return fmt.Errorf("failed to deserialize event payload: %w", err)
	}
	s.metrics.RecordNATSMessageReceived(envelope.EventType)

	handler, exists := s.handlers[subject]
	if !exists {
		return fmt.Errorf("no handler registered for subject %s", subject)
	}

	if err := handler(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"subject":   subject,
			"eventType": envelope.EventType,
			"eventId":   envelope.EventID,
			"error":     err,
		}).Error("Event handler failed")
		return err
	}

	log.WithFields(log.Fields{
		"subject":   subject,
		"eventType": envelope.EventType,
		"eventId":   envelope.EventID,
	}).Debug("Successfully processed NATS event")

	return nil
}
