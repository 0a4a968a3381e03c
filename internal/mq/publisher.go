package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Leadflow/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// MessageTypeFollowupSend — задача отправки follow-up.
const MessageTypeFollowupSend MessageType = "followup.send"

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload json.RawMessage `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// FollowupSendPayload — payload сообщения followup.send.
type FollowupSendPayload struct {
	LeadID uuid.UUID `json:"lead_id"`
	RuleID uuid.UUID `json:"rule_id"`
}

// Pair возвращает пару из payload.
func (p FollowupSendPayload) Pair() domain.Pair {
	return domain.Pair{LeadID: p.LeadID, RuleID: p.RuleID}
}

// NewMessage собирает конверт с JSON payload.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// EnqueueFollowup публикует задачу отправки follow-up для пары.
// Потребитель: leadflow-worker.
func (p *Publisher) EnqueueFollowup(ctx context.Context, pair domain.Pair) error {
	msg, err := NewMessage(MessageTypeFollowupSend, FollowupSendPayload{LeadID: pair.LeadID, RuleID: pair.RuleID})
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeFollowups, RoutingKeySend, msg)
}
