package infrastructure

import (
	"encoding/json"
	"fmt"
	"time"

	"raffle/events"

	"github.com/google/uuid"
)

// SourceService identifies this process in published envelopes
const SourceService = "raffle"

// EventEnvelope wraps an event payload on the wire
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope serializes the event into a fresh envelope
func NewEventEnvelope(event events.Event, now time.Time) (*EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     now.UTC(),
		SourceService: SourceService,
		Payload:       payload,
	}, nil
}

// DecodeEvent deserializes the payload based on the envelope's event type
func (e *EventEnvelope) DecodeEvent() (events.Event, error) {
	switch events.EventType(e.EventType) {
	case events.EventTypeRaffleEnter:
		return decodePayload[events.RaffleEnterEvent](e.Payload)
	case events.EventTypeRequestedRaffleWinner:
		return decodePayload[events.RequestedRaffleWinnerEvent](e.Payload)
	case events.EventTypeWinnerPicked:
		return decodePayload[events.WinnerPickedEvent](e.Payload)
	case events.EventTypeRandomWordsRequested:
		return decodePayload[events.RandomWordsRequestedEvent](e.Payload)
	case events.EventTypeRandomWordsFulfilled:
		return decodePayload[events.RandomWordsFulfilledEvent](e.Payload)
	case events.EventTypeBalanceChange:
		return decodePayload[events.BalanceChangeEvent](e.Payload)
	default:
		return nil, fmt.Errorf("unknown event type: %s", e.EventType)
	}
}

func decodePayload[T events.Event](payload []byte) (events.Event, error) {
	var event T
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return event, nil
}
