package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/shaiso/Leadflow/internal/domain"
)

// InlineEnqueuer выполняет отправку follow-up в горутинах текущего процесса.
//
// EnqueueFollowup не ждёт отправки: scheduler снимает блокировку сразу
// после постановки задач. Если заняты все слоты, пара не ставится и
// будет найдена сканером на следующем тике.
type InlineEnqueuer struct {
	sender *FollowupSender
	sem    *semaphore.Weighted
	logger *slog.Logger

	wg sync.WaitGroup
}

// NewInlineEnqueuer создаёт InlineEnqueuer с concurrency слотами.
func NewInlineEnqueuer(sender *FollowupSender, concurrency int, logger *slog.Logger) *InlineEnqueuer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InlineEnqueuer{
		sender: sender,
		sem:    semaphore.NewWeighted(int64(concurrency)),
		logger: logger,
	}
}

// EnqueueFollowup запускает отправку для пары в отдельной горутине.
func (e *InlineEnqueuer) EnqueueFollowup(ctx context.Context, pair domain.Pair) error {
	if !e.sem.TryAcquire(1) {
		return fmt.Errorf("%w: pair %s", ErrInlineBusy, pair)
	}

	// Отправка переживает контекст тика
	sendCtx := context.WithoutCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.sem.Release(1)

		err := e.sender.SendFollowup(sendCtx, pair.LeadID, pair.RuleID)
		if err != nil && !errors.Is(err, ErrSendFailed) {
			e.logger.Warn("inline followup failed",
				"lead_id", pair.LeadID,
				"rule_id", pair.RuleID,
				"error", err,
			)
		}
	}()
	return nil
}

// Wait дожидается завершения всех запущенных отправок.
func (e *InlineEnqueuer) Wait() {
	e.wg.Wait()
}
