package infrastructure

import (
	"fmt"

	"raffle/events"
)

// RaffleEventStream is the JetStream stream carrying every raffle event
const RaffleEventStream = "raffle_events"

var subjectsByType = map[events.EventType]string{
	events.EventTypeRaffleEnter:           "raffle.entered",
	events.EventTypeRequestedRaffleWinner: "raffle.winner_requested",
	events.EventTypeWinnerPicked:          "raffle.winner_picked",
	events.EventTypeRandomWordsRequested:  "vrf.words_requested",
	events.EventTypeRandomWordsFulfilled:  "vrf.words_fulfilled",
	events.EventTypeBalanceChange:         "accounts.balance_changed",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct {
	typesBySubject map[string]events.EventType
}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	typesBySubject := make(map[string]events.EventType, len(subjectsByType))
	for eventType, subject := range subjectsByType {
		typesBySubject[subject] = eventType
	}
	return &EventSubjectMapper{typesBySubject: typesBySubject}
}

// SubjectFor returns the NATS subject of an event type
func (m *EventSubjectMapper) SubjectFor(eventType events.EventType) string {
	if subject, ok := subjectsByType[eventType]; ok {
		return subject
	}
	return fmt.Sprintf("unknown.%s", eventType)
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	if eventType, ok := m.typesBySubject[subject]; ok {
		return eventType
	}
	return events.EventType(subject)
}

// EventTypes returns every event type that is forwarded to NATS
func (m *EventSubjectMapper) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeRaffleEnter,
		events.EventTypeRequestedRaffleWinner,
		events.EventTypeWinnerPicked,
		events.EventTypeRandomWordsRequested,
		events.EventTypeRandomWordsFulfilled,
		events.EventTypeBalanceChange,
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	types := m.EventTypes()
	subjects := make([]string, 0, len(types))
	for _, eventType := range types {
		subjects = append(subjects, subjectsByType[eventType])
	}
	return subjects
}
