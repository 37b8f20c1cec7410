// Package events delivers import and stage-change notifications to RabbitMQ,
// or to the log when no broker is configured.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/JonMunkholm/leadpipe/internal/core"
)

// publishTimeout bounds a single broker publish.
const publishTimeout = 5 * time.Second

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events as persistent JSON messages to a topic
// exchange. The routing key is the event type.
type AMQPPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       channel
	exchange string
}

var _ core.EventPublisher = (*AMQPPublisher)(nil)

// Dial connects to url and declares exchange as a durable topic exchange.
func Dial(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func newAMQPPublisher(ch channel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange}
}

// Publish sends ev. The message id is a fresh UUID so consumers can dedupe.
func (p *AMQPPublisher) Publish(ctx context.Context, ev core.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    ev.At,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// LogPublisher writes every event to a logger.
type LogPublisher struct {
	logger *slog.Logger
}

var _ core.EventPublisher = LogPublisher{}

// NewLogPublisher returns a LogPublisher; a nil logger uses slog.Default.
func NewLogPublisher(logger *slog.Logger) LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return LogPublisher{logger: logger}
}

func (p LogPublisher) Publish(ctx context.Context, ev core.Event) error {
	attrs := []any{"owner_id", ev.OwnerID}
	if ev.LeadID != "" {
		attrs = append(attrs, "lead_id", ev.LeadID, "from", ev.FromStage, "to", ev.Stage)
	}
	if ev.Type == core.EventImportCompleted {
		attrs = append(attrs, "count", ev.Count)
	}
	p.logger.InfoContext(ctx, "event "+string(ev.Type), attrs...)
	return nil
}
