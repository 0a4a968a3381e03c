// Package scheduler находит «застрявших» лидов и ставит follow-up в очередь.
//
// Структура:
//   - scanner.go    — Scanner: поиск пар (lead, rule) в одном снимке БД
//   - dispatcher.go — Dispatcher: постановка follow-up в очередь по одной паре
//   - scheduler.go  — Scheduler: scan + dispatch под execution lock
//   - trigger.go    — Trigger: периодический запуск Tick через robfig/cron
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Locker:     lock.New(lockRepo, logger),
//	    Scanner:    scheduler.NewScanner(scanRepo, repeatThreshold, logger),
//	    Dispatcher: scheduler.NewDispatcher(publisher, logger),
//	    LockName:   "leadflow.collect_followups",
//	    LockTimeout: 5 * time.Minute,
//	    Logger:     logger,
//	})
//
//	trigger, err := scheduler.NewTrigger("@every 20s", sched, logger)
//	trigger.Start()
//	defer trigger.Stop()
//
// Несколько экземпляров scheduler могут работать одновременно:
// scan + dispatch выполняет только владелец блокировки, остальные
// пропускают тик. Блокировка снимается сразу после dispatch, отправка
// SMS выполняется воркерами уже без неё.
package scheduler
