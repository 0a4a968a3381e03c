package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shaiso/Leadflow/internal/domain"
	"github.com/shaiso/Leadflow/internal/telemetry"
)

// Enqueuer ставит одну пару в очередь на отправку follow-up.
// Реализации: mq.Publisher, worker.InlineEnqueuer.
type Enqueuer interface {
	EnqueueFollowup(ctx context.Context, pair domain.Pair) error
}

// Dispatcher превращает найденные пары в независимые единицы работы.
type Dispatcher struct {
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewDispatcher создаёт Dispatcher.
func NewDispatcher(enqueuer Enqueuer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{enqueuer: enqueuer, logger: logger}
}

// Dispatch ставит в очередь по одной задаче на пару.
// Возвращает число поставленных задач.
//
// Ошибка одной пары не останавливает остальные: все ошибки
// собираются в одну, обёрнутую в ErrDispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, pairs []domain.Pair) (int, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	var (
		enqueued int
		errs     []error
	)
	for _, pair := range pairs {
		if err := d.enqueuer.EnqueueFollowup(ctx, pair); err != nil {
			telemetry.Dispatched.WithLabelValues(telemetry.ResultFailed).Inc()
			d.logger.Error("failed to enqueue followup",
				"lead_id", pair.LeadID,
				"rule_id", pair.RuleID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("pair %s: %w", pair, err))
			continue
		}
		telemetry.Dispatched.WithLabelValues(telemetry.ResultSent).Inc()
		enqueued++
	}

	if len(errs) > 0 {
		return enqueued, fmt.Errorf("%w: %d of %d failed: %w", ErrDispatch, len(errs), len(pairs), errors.Join(errs...))
	}
	return enqueued, nil
}
