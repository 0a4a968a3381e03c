package worker

import "errors"

// Ошибки воркера.
var (
	// ErrLeadNotFound — лид удалён между сканом и отправкой.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrRuleNotFound — правило удалено между сканом и отправкой.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrSendFailed — эффект отправки SMS завершился ошибкой.
	// Запись follow-up при этом остаётся.
	ErrSendFailed = errors.New("send failed")

	// ErrInlineBusy — in-process очередь заполнена.
	ErrInlineBusy = errors.New("inline enqueuer is busy")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")
)
