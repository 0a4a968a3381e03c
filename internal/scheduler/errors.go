package scheduler

import "errors"

var (
	// ErrDispatch — не удалось поставить в очередь часть follow-up.
	ErrDispatch = errors.New("dispatch followups")

	// ErrInvalidTriggerSpec — некорректное cron-выражение триггера.
	ErrInvalidTriggerSpec = errors.New("invalid trigger spec")
)
