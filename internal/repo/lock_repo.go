package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Leadflow/internal/domain"
)

// LockRepo — персистентные блокировки периодических задач (execution_locks).
//
// Взаимное исключение держится на строковой блокировке SELECT ... FOR UPDATE:
// конкурирующие захваты одного имени сериализуются до commit/rollback.
// Время берётся из БД (now()), чтобы часы процессов не влияли на протухание.
type LockRepo struct {
	pool *pgxpool.Pool
}

// NewLockRepo создаёт новый LockRepo.
func NewLockRepo(pool *pgxpool.Pool) *LockRepo {
	return &LockRepo{pool: pool}
}

// TryAcquire пытается захватить блокировку name.
//
// Если блокировка удерживается живым владельцем, возвращает
// Acquired=false сразу, не дожидаясь его завершения.
func (r *LockRepo) TryAcquire(ctx context.Context, name string, timeout time.Duration) (domain.LockAttempt, error) {
	var attempt domain.LockAttempt

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return attempt, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Строка создаётся лениво при первой попытке
	if _, err := tx.Exec(ctx, `
		INSERT INTO execution_locks (name, locked_at) VALUES ($1, NULL)
		ON CONFLICT (name) DO NOTHING
	`, name); err != nil {
		return attempt, fmt.Errorf("ensure lock row: %w", err)
	}

	prev := &domain.ExecutionLock{Name: name}
	var now time.Time
	if err := tx.QueryRow(ctx, `
		SELECT locked_at, now() FROM execution_locks WHERE name = $1 FOR UPDATE
	`, name).Scan(&prev.LockedAt, &now); err != nil {
		return attempt, fmt.Errorf("select lock row: %w", err)
	}

	if prev.IsHeld(now, timeout) {
		attempt.LockedAt = *prev.LockedAt
		return attempt, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE execution_locks SET locked_at = $2 WHERE name = $1
	`, name, now); err != nil {
		return attempt, fmt.Errorf("set locked_at: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return attempt, fmt.Errorf("commit: %w", err)
	}
	return domain.LockAttempt{
		Acquired:  true,
		LockedAt:  now,
		Recovered: prev.IsStale(now, timeout),
	}, nil
}

// Release снимает блокировку, захваченную в момент lockedAt.
//
// Если за это время блокировку перехватили как протухшую, чужой
// locked_at не трогается и возвращается false.
func (r *LockRepo) Release(ctx context.Context, name string, lockedAt time.Time) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE execution_locks SET locked_at = NULL
		WHERE name = $1 AND locked_at = $2
	`, name, lockedAt)
	if err != nil {
		return false, fmt.Errorf("release lock: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// List возвращает все блокировки (для просмотра администратором).
func (r *LockRepo) List(ctx context.Context) ([]domain.ExecutionLock, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, locked_at FROM execution_locks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}
	defer rows.Close()

	var locks []domain.ExecutionLock
	for rows.Next() {
		var l domain.ExecutionLock
		if err := rows.Scan(&l.Name, &l.LockedAt); err != nil {
			return nil, fmt.Errorf("scan lock: %w", err)
		}
		locks = append(locks, l)
	}
	return locks, rows.Err()
}
