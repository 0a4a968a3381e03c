// Leadflow Worker — получает follow-up из RabbitMQ и отправляет SMS.
//
// Перед отправкой проверяет, не было ли follow-up той же пары
// (lead, rule) за последние FOLLOWUP_REPEAT_THRESHOLD. Workers
// масштабируются горизонтально.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Leadflow/internal/config"
	"github.com/shaiso/Leadflow/internal/mq"
	"github.com/shaiso/Leadflow/internal/repo"
	"github.com/shaiso/Leadflow/internal/sms"
	"github.com/shaiso/Leadflow/internal/telemetry"
	"github.com/shaiso/Leadflow/internal/worker"
)

// mqConnectAttempts — попытки подключения к брокеру при старте.
const mqConnectAttempts = 10

func main() {
	startTime := time.Now()

	logger := telemetry.SetupLogger("leadflow-worker")
	logger.Info("starting leadflow-worker")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	mqURL := cfg.RabbitMQURL
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	conn, err := mq.NewConnection(ctx, mqURL, mqConnectAttempts, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := mq.SetupTopology(ctx, conn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}
	logger.Info("RabbitMQ connected", "topology", mq.TopologyInfo())

	smsSender, err := sms.New(sms.HTTPSenderConfig{
		URL:     cfg.SMSGatewayURL,
		Token:   cfg.SMSGatewayToken,
		Timeout: cfg.SendTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to create sms sender", "error", err)
		os.Exit(1)
	}

	wk := worker.New(worker.Config{
		Sender: worker.NewFollowupSender(worker.SenderConfig{
			Leads:           repo.NewLeadRepo(pool),
			Rules:           repo.NewRuleRepo(pool),
			Followups:       repo.NewFollowupRepo(pool),
			SMS:             smsSender,
			RepeatThreshold: cfg.RepeatThreshold,
			SendTimeout:     cfg.SendTimeout,
			Logger:          logger,
		}),
		Conn:        conn,
		Concurrency: cfg.WorkerConcurrency,
		Logger:      logger,
	})

	if err := wk.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	mux := telemetry.NewOpsMux(startTime)
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !conn.IsConnected() || wk.IsStopped() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ready"))
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return telemetry.Serve(gctx, net.JoinHostPort("", cfg.WorkerPort), mux, logger)
	})

	err = g.Wait()

	// Stop прекращает приём сообщений и дожидается начатых отправок:
	// они идут без отмены (ограничены SEND_TIMEOUT), затем закрываются соединения
	wk.Stop()
	if err != nil {
		logger.Error("leadflow-worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("leadflow-worker stopped")
}
