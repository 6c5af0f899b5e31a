package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// QueuedPush is the JSON body published for each notification when a
// downstream worker owns delivery.
type QueuedPush struct {
	Tokens   []string          `json:"tokens"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	QueuedAt int64             `json:"queued_at"` // Unix milliseconds
}

// publisher is the slice of *amqp.Channel that QueueSender needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// QueueSender hands notifications to a RabbitMQ exchange instead of calling
// a push provider directly.
type QueueSender struct {
	mu         sync.Mutex // amqp channels are not safe for concurrent publishes
	ch         publisher
	exchange   string
	routingKey string
	logger     *slog.Logger
}

// NewQueueSender opens a channel on conn. With an empty exchange the message
// goes to the default exchange, so a durable queue named routingKey is
// declared to receive it.
func NewQueueSender(conn *amqp.Connection, exchange, routingKey string, logger *slog.Logger) (*QueueSender, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if exchange == "" {
		if _, err := ch.QueueDeclare(routingKey, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("declare queue %q: %w", routingKey, err)
		}
	}

	return newQueueSender(ch, exchange, routingKey, logger), nil
}

func newQueueSender(ch publisher, exchange, routingKey string, logger *slog.Logger) *QueueSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueSender{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}
}

// SendMulti publishes the notification as a persistent JSON message.
func (q *QueueSender) SendMulti(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return ErrNoTokens
	}

	now := time.Now()
	raw, err := json.Marshal(QueuedPush{
		Tokens:   tokens,
		Title:    title,
		Body:     body,
		Data:     data,
		QueuedAt: now.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode push: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	err = q.ch.PublishWithContext(ctx, q.exchange, q.routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    now,
		Body:         raw,
	})
	if err != nil {
		return fmt.Errorf("publish push: %w", err)
	}
	q.logger.Debug("Push queued", "exchange", q.exchange, "routing_key", q.routingKey, "tokens", len(tokens))
	return nil
}

// Close releases the channel.
func (q *QueueSender) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ch.Close()
}
