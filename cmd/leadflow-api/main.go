// Leadflow API — HTTP API для лидов, правил follow-up и наблюдения за
// отправками.
//
// При старте может применить схему БД (DB_AUTO_MIGRATE) и загрузить
// правила из YAML файла (RULES_FILE).
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Leadflow/internal/api"
	"github.com/shaiso/Leadflow/internal/config"
	"github.com/shaiso/Leadflow/internal/repo"
	"github.com/shaiso/Leadflow/internal/telemetry"
)

func main() {
	startTime := time.Now()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger("leadflow-api")
	logger.Info("starting leadflow-api")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx, pool); err != nil {
			logger.Error("failed to migrate", "error", err)
			os.Exit(1)
		}
		logger.Info("schema applied")
	}

	ruleRepo := repo.NewRuleRepo(pool)
	if cfg.RulesFile != "" {
		if err := seedRules(ctx, ruleRepo, cfg.RulesFile, logger); err != nil {
			logger.Error("failed to load rules", "error", err)
			os.Exit(1)
		}
	}

	handler := api.NewHandler(api.Config{
		Leads:       repo.NewLeadRepo(pool),
		Rules:       ruleRepo,
		Followups:   repo.NewFollowupRepo(pool),
		Locks:       repo.NewLockRepo(pool),
		LockTimeout: cfg.LockTimeout,
		Logger:      logger,
	})

	// Health, metrics и API маршруты на одном порту
	mux := telemetry.NewOpsMux(startTime)
	handler.RegisterRoutes(mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return telemetry.Serve(gctx, net.JoinHostPort("", cfg.APIPort), mux, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error("leadflow-api failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

// seedRules загружает правила из YAML. Существующие (status, delay)
// обновляются.
func seedRules(ctx context.Context, rules *repo.RuleRepo, path string, logger *slog.Logger) error {
	specs, err := config.LoadRules(path)
	if err != nil {
		return err
	}
	for i := range specs {
		if err := rules.Upsert(ctx, &specs[i]); err != nil {
			return err
		}
	}
	logger.Info("rules loaded", "file", path, "count", len(specs))
	return nil
}
