package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
)

// RabbitMQBroker publishes to durable queues named after the channel.
type RabbitMQBroker struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	cb     *circuitbreaker.CircuitBreaker
	logger *logger.Logger

	mu       sync.Mutex
	declared map[string]bool
}

func NewRabbitMQBroker(amqpURL string, log *logger.Logger) (messaging.Broker, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &RabbitMQBroker{
		conn:     conn,
		ch:       ch,
		cb:       circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultSettings("rabbitmq-broker"), log),
		logger:   log,
		declared: make(map[string]bool),
	}, nil
}

// declare is idempotent on the server side; the map only saves round trips.
func (b *RabbitMQBroker) declare(queue string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.declared[queue] {
		return nil
	}
	_, err := b.ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	b.declared[queue] = true
	return nil
}

func (b *RabbitMQBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := b.declare(channel); err != nil {
		return err
	}

	return b.cb.Execute(func() error {
		return b.ch.PublishWithContext(
			ctx,
			"",      // default exchange
			channel, // routing key == queue name
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
			},
		)
	})
}

func (b *RabbitMQBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	if err := b.declare(channel); err != nil {
		return nil, err
	}
	deliveries, err := b.ch.ConsumeWithContext(ctx, channel, "", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s: %w", channel, err)
	}

	out := make(chan []byte, 100)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				select {
				case out <- d.Body:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *RabbitMQBroker) Close() error {
	if b.ch != nil {
		if err := b.ch.Close(); err != nil {
			return err
		}
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
