// Package mq доставляет задачи follow-up через RabbitMQ.
//
// Топология:
//
//	leadflow.followups --send--> followups.send
//	leadflow.dlq --followups--> dlq.followups
//
// Scheduler публикует сообщение followup.send на каждую застрявшую пару
// (lead, rule), worker читает followups.send. Сообщения, которые нельзя
// обработать (неизвестный тип, битый payload), уходят в dlq.followups.
// Соединение переподключается само, consumer после этого заново
// подписывается на очередь.
package mq
