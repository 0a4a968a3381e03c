// Package lock реализует взаимное исключение периодических задач
// между процессами через персистентную блокировку (execution_locks).
//
// Locker оборачивает тело задачи: захват → выполнение → освобождение.
// Освобождение выполняется на любом пути выхода (ошибка, паника,
// отмена контекста). Протухшая блокировка упавшего владельца
// перехватывается после timeout.
//
// Использование:
//
//	locker := lock.New(repo.NewLockRepo(pool), logger)
//
//	acquired, err := locker.WithLock(ctx, "leadflow.collect_followups", 5*time.Minute,
//	    func(ctx context.Context) error {
//	        return collect(ctx)
//	    })
//
//	// или с результатом тела
//	enqueued, ran, err := lock.Exclusive(ctx, locker, "leadflow.collect_followups", 5*time.Minute, collect)
package lock
