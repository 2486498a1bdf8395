package outbox

import (
	"encoding/json"
	"fmt"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	TenantID      string
	EventType     string
	Payload       []byte
}

// NewEvent marshals payload as JSON.
func NewEvent(aggregateType, aggregateID, tenantID, eventType string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		TenantID:      tenantID,
		EventType:     eventType,
		Payload:       b,
	}, nil
}
