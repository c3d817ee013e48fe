package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitBridge shares events through a fanout exchange. Each instance binds
// its own exclusive queue.
type RabbitBridge struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	hub      *Hub
	exchange string
	onError  func(error)
}

func NewRabbitBridge(url, exchange string, hub *Hub, onError func(error)) (*RabbitBridge, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &RabbitBridge{conn: conn, ch: ch, hub: hub, exchange: exchange, onError: onError}, nil
}

func (b *RabbitBridge) Run(ctx context.Context) error {
	q, err := b.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := b.ch.QueueBind(q.Name, "", b.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	deliveries, err := b.ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}

	local := b.hub.Subscribe(localOnly(b.hub))
	defer local.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if e, ok := decodeRemote(b.hub, d.Body); ok {
				b.hub.Inject(e)
			}
		case e, ok := <-local.C:
			if !ok {
				return nil
			}
			if err := b.publish(ctx, e); err != nil {
				b.onError(err)
			}
		}
	}
}

func (b *RabbitBridge) publish(ctx context.Context, e ChangeEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return b.ch.PublishWithContext(pubCtx, b.exchange, e.Table, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    e.At,
		Body:         body,
	})
}

func (b *RabbitBridge) Close() error {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
