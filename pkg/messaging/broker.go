// Package messaging defines the sink the outbox worker publishes domain
// events to.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
)

// Broker publishes a serialized event under a topic such as
// "appointment.booked".
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// Publisher adapts a Broker for callers holding typed messages.
type Publisher struct {
	broker Broker
}

func NewPublisher(broker Broker) *Publisher {
	return &Publisher{broker: broker}
}

// Publish marshals message to JSON and hands it to the broker.
func (p *Publisher) Publish(ctx context.Context, topic string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return p.broker.Publish(ctx, topic, payload)
}

func (p *Publisher) Close() error {
	return p.broker.Close()
}
