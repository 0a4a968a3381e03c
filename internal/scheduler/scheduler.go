package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Leadflow/internal/lock"
	"github.com/shaiso/Leadflow/internal/telemetry"
)

// Значения по умолчанию.
const (
	DefaultLockName    = "leadflow.collect_followups"
	DefaultLockTimeout = 5 * time.Minute
)

// Scheduler выполняет один цикл scan + dispatch под execution lock.
type Scheduler struct {
	locker      *lock.Locker
	scanner     *Scanner
	dispatcher  *Dispatcher
	lockName    string
	lockTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// Config — конфигурация Scheduler.
type Config struct {
	Locker      *lock.Locker
	Scanner     *Scanner
	Dispatcher  *Dispatcher
	LockName    string        // default: DefaultLockName
	LockTimeout time.Duration // default: DefaultLockTimeout
	Now         func() time.Time
	Logger      *slog.Logger
}

// New создаёт Scheduler.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		locker:      cfg.Locker,
		scanner:     cfg.Scanner,
		dispatcher:  cfg.Dispatcher,
		lockName:    cfg.LockName,
		lockTimeout: cfg.LockTimeout,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
	if s.lockName == "" {
		s.lockName = DefaultLockName
	}
	if s.lockTimeout <= 0 {
		s.lockTimeout = DefaultLockTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Tick выполняет один тик планировщика.
//
// 1. Захватывает блокировку (занята другим экземпляром: пропуск тика)
// 2. Находит застрявшие пары (lead, rule)
// 3. Ставит follow-up в очередь
// 4. Освобождает блокировку
//
// Возвращает false, если тик пропущен из-за занятой блокировки.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	enqueued, ran, err := lock.Exclusive(ctx, s.locker, s.lockName, s.lockTimeout, s.collectAndDispatch)
	switch {
	case err != nil:
		telemetry.SchedulerTicks.WithLabelValues(telemetry.ResultFailed).Inc()
	case !ran:
		telemetry.SchedulerTicks.WithLabelValues(telemetry.ResultSkipped).Inc()
	default:
		telemetry.SchedulerTicks.WithLabelValues(telemetry.ResultRan).Inc()
		if enqueued > 0 {
			s.logger.Info("scheduler tick completed", "enqueued", enqueued)
		}
	}
	return ran, err
}

// Run — Tick без признака пропуска, для Trigger.
func (s *Scheduler) Run(ctx context.Context) error {
	_, err := s.Tick(ctx)
	return err
}

// collectAndDispatch возвращает число поставленных в очередь follow-up.
func (s *Scheduler) collectAndDispatch(ctx context.Context) (int, error) {
	pairs, err := s.scanner.CollectStalledPairs(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("collect stalled pairs: %w", err)
	}

	if len(pairs) == 0 {
		s.logger.Debug("no stalled leads")
		return 0, nil
	}

	enqueued, err := s.dispatcher.Dispatch(ctx, pairs)
	s.logger.Debug("stalled pairs dispatched", "stalled", len(pairs), "enqueued", enqueued)
	return enqueued, err
}
