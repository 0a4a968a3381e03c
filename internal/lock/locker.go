package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Leadflow/internal/domain"
	"github.com/shaiso/Leadflow/internal/telemetry"
)

// releaseTimeout — время на освобождение блокировки после завершения тела.
const releaseTimeout = 10 * time.Second

// Store — хранилище именованных блокировок.
// Реализация: repo.LockRepo.
type Store interface {
	// TryAcquire захватывает блокировку name, если она свободна
	// или протухла (удерживается дольше timeout). Не ждёт живого владельца.
	TryAcquire(ctx context.Context, name string, timeout time.Duration) (domain.LockAttempt, error)

	// Release освобождает блокировку, захваченную в lockedAt.
	// Возвращает false, если блокировку уже перехватили.
	Release(ctx context.Context, name string, lockedAt time.Time) (bool, error)
}

// Locker выполняет функции под именованной блокировкой.
type Locker struct {
	store  Store
	logger *slog.Logger
}

// New создаёт Locker.
func New(store Store, logger *slog.Logger) *Locker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locker{store: store, logger: logger}
}

// WithLock выполняет body, если удалось захватить блокировку name.
//
// Возвращает (false, nil), если блокировку держит другой живой владелец:
// это штатный пропуск, а не ошибка. Ошибка body возвращается после
// освобождения блокировки.
func (l *Locker) WithLock(ctx context.Context, name string, timeout time.Duration, body func(ctx context.Context) error) (bool, error) {
	logger := telemetry.WithLockName(l.logger, name)

	attempt, err := l.store.TryAcquire(ctx, name, timeout)
	if err != nil {
		telemetry.LockAttempts.WithLabelValues(name, telemetry.ResultFailed).Inc()
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}

	if !attempt.Acquired {
		telemetry.LockAttempts.WithLabelValues(name, telemetry.ResultBusy).Inc()
		logger.Debug("task skipped: lock is held", "locked_at", attempt.LockedAt)
		return false, nil
	}

	if attempt.Recovered {
		telemetry.LockAttempts.WithLabelValues(name, telemetry.ResultStale).Inc()
		logger.Info("recovered stale lock", "timeout", timeout)
	} else {
		telemetry.LockAttempts.WithLabelValues(name, telemetry.ResultAcquired).Inc()
	}

	defer l.release(ctx, logger, name, attempt.LockedAt)

	return true, body(ctx)
}

// release освобождает блокировку. Контекст вызывающего может быть уже
// отменён, поэтому используется context.WithoutCancel с собственным таймаутом.
func (l *Locker) release(ctx context.Context, logger *slog.Logger, name string, lockedAt time.Time) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	released, err := l.store.Release(releaseCtx, name, lockedAt)
	if err != nil {
		// Блокировка протухнет через timeout и будет перехвачена
		logger.Error("failed to release lock", "error", err)
		return
	}
	if !released {
		logger.Warn("lock was taken over before release", "locked_at", lockedAt)
	}
}

// Exclusive выполняет fn под блокировкой и возвращает её результат.
// ok=false означает, что блокировка занята и fn не выполнялась.
func Exclusive[T any](ctx context.Context, l *Locker, name string, timeout time.Duration, fn func(ctx context.Context) (T, error)) (result T, ok bool, err error) {
	ok, err = l.WithLock(ctx, name, timeout, func(ctx context.Context) error {
		var bodyErr error
		result, bodyErr = fn(ctx)
		return bodyErr
	})
	return result, ok, err
}
