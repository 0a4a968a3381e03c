package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTriggerSpec — период запуска Tick по умолчанию.
const DefaultTriggerSpec = "@every 20s"

// Runner — периодически запускаемая работа.
type Runner interface {
	Run(ctx context.Context) error
}

// Trigger запускает Runner по cron-расписанию.
//
// Если предыдущий запуск ещё не завершился, очередной пропускается
// (SkipIfStillRunning): внутри одного процесса тики не накладываются.
type Trigger struct {
	cron   *cron.Cron
	runner Runner
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// ValidateSpec проверяет cron-выражение (5 полей или @-дескриптор).
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidTriggerSpec, spec, err)
	}
	return nil
}

// NextFire возвращает время следующего срабатывания после from.
func NextFire(spec string, from time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %w", ErrInvalidTriggerSpec, spec, err)
	}
	return schedule.Next(from), nil
}

// NewTrigger создаёт Trigger. Пустой spec означает DefaultTriggerSpec.
func NewTrigger(spec string, runner Runner, logger *slog.Logger) (*Trigger, error) {
	if spec == "" {
		spec = DefaultTriggerSpec
	}
	if logger == nil {
		logger = slog.Default()
	}

	cronLogger := cronLogAdapter{logger: logger}
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	t := &Trigger{cron: c, runner: runner, logger: logger}
	if _, err := c.AddFunc(spec, t.fire); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidTriggerSpec, spec, err)
	}
	return t, nil
}

// Start запускает расписание. ctx передаётся в каждый запуск Runner.
func (t *Trigger) Start(ctx context.Context) {
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.cron.Start()
	t.logger.Info("trigger started", "entries", len(t.cron.Entries()))
}

// Stop останавливает расписание и ждёт завершения текущего запуска
// или истечения ctx.
func (t *Trigger) Stop(ctx context.Context) {
	done := t.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		t.logger.Warn("trigger stop timed out, cancelling running tick")
	}
	if t.cancel != nil {
		t.cancel()
	}
}

// fire — один запуск по расписанию.
func (t *Trigger) fire() {
	if err := t.runner.Run(t.ctx); err != nil {
		t.logger.Error("scheduled run failed", "error", err)
	}
}

// cronLogAdapter выводит сообщения robfig/cron в slog.
type cronLogAdapter struct {
	logger *slog.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug("cron: "+msg, keysAndValues...)
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...any) {
	a.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
