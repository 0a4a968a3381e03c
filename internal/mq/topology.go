package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeFollowups Exchange = "leadflow.followups"
	ExchangeDLQ       Exchange = "leadflow.dlq"
)

// Queues — имена очередей.
const (
	QueueFollowupsSend Queue = "followups.send"
	QueueDLQFollowups  Queue = "dlq.followups"
)

// Routing keys.
const (
	RoutingKeySend         RoutingKey = "send"
	RoutingKeyDLQFollowups RoutingKey = "followups"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// topology — полное описание объектов RabbitMQ.
func topology() ([]exchangeDecl, []queueDecl, []bindingDecl) {
	exchanges := []exchangeDecl{
		{ExchangeFollowups, "direct"},
		{ExchangeDLQ, "direct"},
	}

	// Отклонённые без requeue сообщения (битый JSON) уходят в DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQFollowups),
	}
	queues := []queueDecl{
		{QueueFollowupsSend, dlqArgs},
		{QueueDLQFollowups, nil},
	}

	bindings := []bindingDecl{
		{QueueFollowupsSend, RoutingKeySend, ExchangeFollowups},
		{QueueDLQFollowups, RoutingKeyDLQFollowups, ExchangeDLQ},
	}

	return exchanges, queues, bindings
}

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	exchanges, queues, bindings := topology()

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range exchanges {
			err := ch.ExchangeDeclare(
				string(ex.name), // name
				ex.kind,         // type
				true,            // durable
				false,           // auto-deleted
				false,           // internal
				false,           // no-wait
				nil,             // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range queues {
			_, err := ch.QueueDeclare(
				string(q.name), // name
				true,           // durable
				false,          // delete when unused
				false,          // exclusive
				false,          // no-wait
				q.args,         // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range bindings {
			err := ch.QueueBind(
				string(b.queue),      // queue name
				string(b.routingKey), // routing key
				string(b.exchange),   // exchange
				false,                // no-wait
				nil,                  // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Leadflow RabbitMQ Topology:

    leadflow.followups (direct)
    └── followups.send [routing: send]
            Consumer: leadflow-worker
            DLQ: dlq.followups

    leadflow.dlq (direct)
    └── dlq.followups [routing: followups]
            Manual processing
  `
}
