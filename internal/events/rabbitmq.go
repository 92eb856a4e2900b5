// Package events publishes billing events (invoice created, payment booked)
// to a message broker.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"abo/internal/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// ExchangeName is the topic exchange all billing events go to.
const ExchangeName = "abo.events"

// RabbitMQPublisher publishes events to RabbitMQ.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      zerolog.Logger
	mu       sync.Mutex
}

// NewRabbitMQPublisher connects to url and declares the event exchange.
func NewRabbitMQPublisher(url string) (*RabbitMQPublisher, error) {
	const op = "NewRabbitMQPublisher"
	log := logger.WithComponent("rabbitmq-publisher")

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to RabbitMQ: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: failed to open channel: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: failed to declare exchange: %w", op, err)
	}

	log.Info().Str("exchange", ExchangeName).Msg("RabbitMQ publisher connected")

	return &RabbitMQPublisher{
		conn:     conn,
		channel:  ch,
		exchange: ExchangeName,
		log:      log,
	}, nil
}

// Publish sends payload to the exchange with the given routing key.
func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         payload,
		},
	)
	if err != nil {
		p.log.Error().Err(err).Str("routing_key", routingKey).Msg("Failed to publish message")
		return err
	}

	p.log.Debug().Str("routing_key", routingKey).Int("size", len(payload)).Msg("Message published")
	return nil
}

// Close closes channel and connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn().Err(err).Msg("Error closing channel")
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return err
		}
	}

	p.log.Info().Msg("RabbitMQ publisher closed")
	return nil
}

// NoopPublisher drops all events. Used when no broker is configured.
type NoopPublisher struct {
	log zerolog.Logger
}

// NewNoopPublisher creates a publisher that does nothing.
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{log: logger.WithComponent("noop-publisher")}
}

// Publish logs the message but doesn't publish it.
func (p *NoopPublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.log.Debug().Str("routing_key", routingKey).Int("size", len(payload)).Msg("Noop publish")
	return nil
}

// Close is a no-op.
func (p *NoopPublisher) Close() error {
	return nil
}
