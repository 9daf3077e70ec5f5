package rabbitmq

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
)

const exchangeType = "topic"

type Config struct {
	URL      string
	Exchange string
}

// channel is the subset of *amqp.Channel the broker uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Broker publishes events to a durable topic exchange, routed by event type.
type Broker struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	logger   *logger.Logger
}

var _ messaging.Broker = (*Broker)(nil)

func NewBroker(config Config, log *logger.Logger) (*Broker, error) {
	log.Info("connecting to RabbitMQ", "url", redact(config.URL))

	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		config.Exchange,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Info("declared exchange", "exchange", config.Exchange)
	return &Broker{
		conn:     conn,
		ch:       ch,
		exchange: config.Exchange,
		logger:   log,
	}, nil
}

func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	err := b.ch.PublishWithContext(
		ctx,
		b.exchange,
		topic,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    uuid.NewString(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", topic, err)
	}
	b.logger.Debug("published event", "exchange", b.exchange, "routing_key", topic)
	return nil
}

func (b *Broker) Close() error {
	if b.ch != nil {
		if err := b.ch.Close(); err != nil {
			b.logger.Warn("failed to close RabbitMQ channel", "error", err.Error())
		}
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

// redact strips credentials from an AMQP URL for logging.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "amqp://***"
	}
	if u.User != nil {
		u.User = url.UserPassword("***", "***")
	}
	return u.String()
}
