// Leadflow Scheduler — периодически находит застрявших лидов и ставит
// follow-up в очередь.
//
// Каждый тик выполняется под execution lock, поэтому можно запускать
// несколько экземпляров. Без RABBITMQ_URL follow-up отправляются прямо
// из процесса планировщика.
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Leadflow/internal/config"
	"github.com/shaiso/Leadflow/internal/lock"
	"github.com/shaiso/Leadflow/internal/mq"
	"github.com/shaiso/Leadflow/internal/repo"
	"github.com/shaiso/Leadflow/internal/scheduler"
	"github.com/shaiso/Leadflow/internal/sms"
	"github.com/shaiso/Leadflow/internal/telemetry"
	"github.com/shaiso/Leadflow/internal/worker"
)

// mqConnectAttempts — попытки подключения к брокеру при старте.
const mqConnectAttempts = 5

func main() {
	startTime := time.Now()

	logger := telemetry.SetupLogger("leadflow-scheduler")
	logger.Info("starting leadflow-scheduler")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	enqueuer, cleanup, err := newEnqueuer(ctx, cfg, pool, logger)
	if err != nil {
		logger.Error("failed to set up follow-up delivery", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	sched := scheduler.New(scheduler.Config{
		Locker:      lock.New(repo.NewLockRepo(pool), logger),
		Scanner:     scheduler.NewScanner(repo.NewScanRepo(pool), cfg.RepeatThreshold, logger),
		Dispatcher:  scheduler.NewDispatcher(enqueuer, logger),
		LockName:    cfg.LockName,
		LockTimeout: cfg.LockTimeout,
		Logger:      logger,
	})

	trigger, err := scheduler.NewTrigger(cfg.SchedulerSpec, sched, logger)
	if err != nil {
		logger.Error("invalid scheduler spec", "error", err)
		os.Exit(1)
	}
	if next, err := scheduler.NextFire(cfg.SchedulerSpec, time.Now()); err == nil {
		logger.Info("first tick", "at", next.Format(time.RFC3339), "spec", cfg.SchedulerSpec)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return telemetry.Serve(gctx, net.JoinHostPort("", cfg.SchedPort), telemetry.NewOpsMux(startTime), logger)
	})
	g.Go(func() error {
		trigger.Start(gctx)
		<-gctx.Done()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), telemetry.ShutdownTimeout)
		defer stopCancel()
		trigger.Stop(stopCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("leadflow-scheduler failed", "error", err)
		os.Exit(1)
	}
	logger.Info("leadflow-scheduler stopped")
}

// newEnqueuer выбирает способ доставки follow-up: очередь RabbitMQ
// или отправка внутри процесса.
func newEnqueuer(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) (scheduler.Enqueuer, func(), error) {
	if cfg.RabbitMQURL != "" {
		conn, err := mq.NewConnection(ctx, cfg.RabbitMQURL, mqConnectAttempts, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := mq.SetupTopology(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		logger.Info("RabbitMQ connected", "topology", mq.TopologyInfo())
		return mq.NewPublisher(conn, logger), func() { _ = conn.Close() }, nil
	}

	smsSender, err := sms.New(sms.HTTPSenderConfig{
		URL:     cfg.SMSGatewayURL,
		Token:   cfg.SMSGatewayToken,
		Timeout: cfg.SendTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	sender := worker.NewFollowupSender(worker.SenderConfig{
		Leads:           repo.NewLeadRepo(pool),
		Rules:           repo.NewRuleRepo(pool),
		Followups:       repo.NewFollowupRepo(pool),
		SMS:             smsSender,
		RepeatThreshold: cfg.RepeatThreshold,
		SendTimeout:     cfg.SendTimeout,
		Logger:          logger,
	})
	inline := worker.NewInlineEnqueuer(sender, cfg.WorkerConcurrency, logger)
	logger.Info("RABBITMQ_URL not set, sending follow-ups in process")
	return inline, inline.Wait, nil
}
