// Package broker fans audit records out to a RabbitMQ topic exchange after
// they are stored.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
)

const routingPrefix = "ledger.audit."

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher is an audit.Sink that stores through next and then publishes the
// stored record. Publishing is best effort: a broker failure is logged and
// never undoes or fails the append.
type Publisher struct {
	next     audit.Sink
	channel  Channel
	exchange string
	conn     *amqp.Connection
}

func NewPublisher(next audit.Sink, channel Channel, exchange string) *Publisher {
	return &Publisher{next: next, channel: channel, exchange: exchange}
}

// Dial connects to url and declares exchange as a durable topic exchange.
func Dial(url, exchange string, next audit.Sink) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()

		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	p := NewPublisher(next, ch, exchange)
	p.conn = conn

	return p, nil
}

type event struct {
	ID                int64      `json:"id"`
	EventType         string     `json:"eventType"`
	TransactionID     *uuid.UUID `json:"transactionId,omitempty"`
	TransactionNumber string     `json:"transactionNumber,omitempty"`
	TransactionType   string     `json:"transactionType,omitempty"`
	Amount            *string    `json:"amount,omitempty"`
	UserID            *uuid.UUID `json:"userId,omitempty"`
	AccountNumber     string     `json:"accountNumber,omitempty"`
	PreviousStatus    string     `json:"previousStatus,omitempty"`
	NewStatus         string     `json:"newStatus,omitempty"`
	Description       string     `json:"description,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func toEvent(rec *audit.Record) event {
	e := event{
		ID:                rec.ID,
		EventType:         string(rec.EventType),
		TransactionID:     rec.TransactionID,
		TransactionNumber: rec.TransactionNumber,
		TransactionType:   rec.TransactionType,
		UserID:            rec.UserID,
		AccountNumber:     rec.AccountNumber,
		PreviousStatus:    rec.PreviousStatus,
		NewStatus:         rec.NewStatus,
		Description:       rec.Description,
		CreatedAt:         rec.CreatedAt,
	}

	if rec.Amount.Valid {
		e.Amount = new(rec.Amount.Decimal.StringFixed(2))
	}

	return e
}

// RoutingKey is the topic a record is published under, e.g.
// ledger.audit.transaction_failed.
func RoutingKey(event audit.EventType) string {
	return routingPrefix + strings.ToLower(string(event))
}

func (p *Publisher) Append(ctx context.Context, rec *audit.Record) error {
	if err := p.next.Append(ctx, rec); err != nil {
		return err
	}

	body, err := json.Marshal(toEvent(rec))
	if err != nil {
		slog.Warn("failed to encode audit event", "error", err, "id", rec.ID)
		return nil
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, RoutingKey(rec.EventType), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    rec.CreatedAt,
		Body:         body,
	})
	if err != nil {
		slog.Warn("failed to publish audit event", "error", err, "id", rec.ID, "event", rec.EventType)
	}

	return nil
}

func (p *Publisher) Close() error {
	err := p.channel.Close()

	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	return err
}
