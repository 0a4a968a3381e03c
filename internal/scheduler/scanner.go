package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Leadflow/internal/domain"
	"github.com/shaiso/Leadflow/internal/telemetry"
)

// Snapshotter открывает согласованный read-only снимок БД.
// Реализация: repo.ScanRepo.
type Snapshotter interface {
	Snapshot(ctx context.Context, fn func(ctx context.Context, view domain.StallView) error) error
}

// Scanner ищет лидов, которым нужен follow-up.
type Scanner struct {
	source          Snapshotter
	repeatThreshold time.Duration
	logger          *slog.Logger
}

// NewScanner создаёт Scanner.
// repeatThreshold — минимальный интервал между follow-up одной пары.
func NewScanner(source Snapshotter, repeatThreshold time.Duration, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		source:          source,
		repeatThreshold: repeatThreshold,
		logger:          logger,
	}
}

// CollectStalledPairs возвращает пары (lead, rule), для которых пора
// отправить follow-up.
//
// Для каждого включённого правила лид попадает в выборку, если он в
// статусе правила дольше delay и по этой паре нет follow-up, созданного
// после входа лида в статус и не раньше now - repeatThreshold.
// Все правила читаются из одного снимка. Порядок пар не определён.
func (s *Scanner) CollectStalledPairs(ctx context.Context, now time.Time) ([]domain.Pair, error) {
	started := time.Now()
	defer func() {
		telemetry.ScanDuration.Observe(time.Since(started).Seconds())
	}()

	now = now.UTC()
	repeatSince := now.Add(-s.repeatThreshold)

	var pairs []domain.Pair
	err := s.source.Snapshot(ctx, func(ctx context.Context, view domain.StallView) error {
		rules, err := view.ListEnabledRules(ctx)
		if err != nil {
			return fmt.Errorf("list enabled rules: %w", err)
		}

		seen := make(map[domain.Pair]struct{})
		for _, rule := range rules {
			leadIDs, err := view.ListStalledLeadIDs(ctx, rule, rule.Cutoff(now), repeatSince)
			if err != nil {
				return fmt.Errorf("list stalled leads for rule %s: %w", rule.ID, err)
			}

			for _, leadID := range leadIDs {
				pair := domain.Pair{LeadID: leadID, RuleID: rule.ID}
				if _, dup := seen[pair]; dup {
					continue
				}
				seen[pair] = struct{}{}
				pairs = append(pairs, pair)
			}

			if len(leadIDs) > 0 {
				s.logger.Debug("stalled leads found",
					"rule_id", rule.ID,
					"status", rule.Status,
					"delay", rule.Delay(),
					"count", len(leadIDs),
				)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.StalledPairs.Add(float64(len(pairs)))
	return pairs, nil
}
