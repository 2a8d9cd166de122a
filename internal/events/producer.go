// Package events publishes ledger events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RoutingKeyTransactionPosted is used for every committed transaction.
const RoutingKeyTransactionPosted = "transaction.posted"

// TransactionPostedEvent is published after a transaction has been committed.
type TransactionPostedEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	TransactionID int64     `json:"transaction_id"`
	Sender        string    `json:"sender"`
	Recipient     string    `json:"recipient"`
	Value         int64     `json:"value"`
	SenderBalance int64     `json:"sender_balance"`
	CreatedAt     time.Time `json:"created_at"`
}

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	PublishTransactionPosted(ctx context.Context, event TransactionPostedEvent) error
	Close()
}

// EventProducerFallback is a no-op publisher used when RabbitMQ is not configured or unreachable.
type EventProducerFallback struct {
	logger *zap.Logger
}

func NewEventProducerFallback(logger *zap.Logger) *EventProducerFallback {
	return &EventProducerFallback{logger: logger.Named("events")}
}

func (p *EventProducerFallback) PublishTransactionPosted(ctx context.Context, event TransactionPostedEvent) error {
	p.logger.Debug("publish skipped, no broker",
		zap.String("routing_key", RoutingKeyTransactionPosted),
		zap.Int64("transaction_id", event.TransactionID),
	)
	return nil
}

func (p *EventProducerFallback) Close() {}

// EventProducer holds the RabbitMQ connection and channel for publishing messages.
type EventProducer struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   *zap.Logger
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer dials RabbitMQ and declares the durable topic exchange.
func NewEventProducer(amqpURL, exchange string, logger *zap.Logger) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &EventProducer{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger.Named("events"),
	}, nil
}

// NewPublisher returns a RabbitMQ producer, or the fallback when url is empty
// or the broker cannot be reached.
func NewPublisher(amqpURL, exchange string, logger *zap.Logger) Publisher {
	if strings.TrimSpace(amqpURL) == "" {
		return NewEventProducerFallback(logger)
	}
	producer, err := NewEventProducer(amqpURL, exchange, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable, events will not be published", zap.Error(err))
		return NewEventProducerFallback(logger)
	}
	return producer
}

func (p *EventProducer) PublishTransactionPosted(ctx context.Context, event TransactionPostedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    event.EventID.String(),
		Timestamp:    time.Now(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, RoutingKeyTransactionPosted, false, false, msg)
	if err == nil {
		return nil
	}

	p.logger.Warn("publish failed, reopening channel", zap.String("exchange", p.exchange), zap.Error(err))
	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return chErr
	}
	p.channel = ch
	return p.channel.PublishWithContext(ctx, p.exchange, RoutingKeyTransactionPosted, false, false, msg)
}

// Close gracefully closes the channel and connection to RabbitMQ.
func (p *EventProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
