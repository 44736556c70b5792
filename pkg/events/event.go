package events

import "time"

const (
	EscalationSuggested = "ESCALATION_SUGGESTED"
	HandoverRequested   = "HANDOVER_REQUESTED"
	KBChanged           = "KB_CHANGED"
)

// Event defines the contract for everything published on the chatbot bus.
type Event interface {
	// EventType returns the unique code for this event (e.g. "HANDOVER_REQUESTED").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
