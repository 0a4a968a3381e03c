// Package worker отправляет follow-up сообщения лидам.
//
// FollowupSender выполняет отправку для одной пары (lead, rule):
//
//  1. Загружает лида и правило (нет в БД → ErrLeadNotFound / ErrRuleNotFound)
//  2. Атомарно проверяет, что по паре не было follow-up за repeatThreshold,
//     и создаёт запись (иначе — "skip followup", ничего не отправляется)
//  3. Отправляет SMS с таймаутом (ошибка → ErrSendFailed, запись остаётся)
//
// Worker потребляет очередь followups.send и вызывает FollowupSender
// параллельно, не более Concurrency сообщений одновременно.
//
// InlineEnqueuer выполняет FollowupSender в горутине того же процесса.
// Используется scheduler'ом, когда RabbitMQ не настроен.
//
//	sender := worker.NewFollowupSender(worker.SenderConfig{
//	    Leads:           leadRepo,
//	    Rules:           ruleRepo,
//	    Followups:       followupRepo,
//	    SMS:             sms.NewLogSender(logger),
//	    RepeatThreshold: 24 * time.Hour,
//	    Logger:          logger,
//	})
//
//	w := worker.New(worker.Config{Sender: sender, Conn: mqConn, Concurrency: 4, Logger: logger})
//	w.Start(ctx)
//	defer w.Stop()
//
// Политика подтверждения сообщений: ack при успехе, пропуске, отсутствии
// лида или правила и при ошибке отправки; повтор (requeue) только при
// ошибках БД. Повторная доставка безопасна: её отсечёт проверка
// repeatThreshold.
package worker
