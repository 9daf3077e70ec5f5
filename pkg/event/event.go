package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// Envelope is the published form of an outbox row.
type Envelope struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	AggregateID uuid.UUID       `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

// New builds a pending outbox row carrying data as its JSON payload.
func New(eventType string, aggregateID uuid.UUID, data interface{}) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &model.OutboxEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payload,
		Status:      model.OutboxStatusPending,
	}, nil
}

// Wrap turns a stored event into the message handed to the broker.
func Wrap(e *model.OutboxEvent) Envelope {
	return Envelope{
		ID:          e.ID,
		Type:        e.EventType,
		AggregateID: e.AggregateID,
		OccurredAt:  e.CreatedAt,
		Data:        e.Payload,
	}
}

// StatusChange is the payload of every *.status_changed event.
type StatusChange struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	ActorID uuid.UUID `json:"actor_id"`
}
