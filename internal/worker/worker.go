package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shaiso/Leadflow/internal/mq"
)

// DefaultConcurrency — число параллельно обрабатываемых сообщений.
const DefaultConcurrency = 4

// Worker потребляет очередь followups.send.
//
// Workers масштабируются горизонтально: несколько экземпляров могут
// потреблять из одной очереди, общий для них только guard в БД.
type Worker struct {
	sender      *FollowupSender
	conn        *mq.Connection
	concurrency int

	consumer *mq.Consumer

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	Sender *FollowupSender
	Conn   *mq.Connection

	// Concurrency — параллельные отправки (default: 4).
	Concurrency int

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		sender:      cfg.Sender,
		conn:        cfg.Conn,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Start запускает consumer в фоне.
func (w *Worker) Start(ctx context.Context) error {
	if w.IsStopped() {
		return ErrWorkerStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:       mq.QueueFollowupsSend,
		Handler:     w.handleFollowupSend,
		Concurrency: w.concurrency,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("followup consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started", "concurrency", w.concurrency)
	return nil
}

// Stop останавливает Worker и ждёт завершения текущих отправок.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
