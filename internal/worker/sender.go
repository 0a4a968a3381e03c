package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Leadflow/internal/domain"
	"github.com/shaiso/Leadflow/internal/repo"
	"github.com/shaiso/Leadflow/internal/sms"
	"github.com/shaiso/Leadflow/internal/telemetry"
)

// Значения по умолчанию.
const (
	DefaultRepeatThreshold = 24 * time.Hour
	DefaultSendTimeout     = 10 * time.Second
)

// LeadGetter — чтение лида. Реализация: repo.LeadRepo.
type LeadGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
}

// RuleGetter — чтение правила. Реализация: repo.RuleRepo.
type RuleGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FollowupRule, error)
}

// FollowupStore — запись follow-up с дедупликацией. Реализация: repo.FollowupRepo.
type FollowupStore interface {
	CreateUnlessRecent(ctx context.Context, f *domain.Followup, since time.Time) (bool, error)
}

// FollowupSender отправляет один follow-up.
type FollowupSender struct {
	leads           LeadGetter
	rules           RuleGetter
	followups       FollowupStore
	sms             sms.Sender
	repeatThreshold time.Duration
	sendTimeout     time.Duration
	now             func() time.Time
	logger          *slog.Logger
}

// SenderConfig — конфигурация FollowupSender.
type SenderConfig struct {
	Leads     LeadGetter
	Rules     RuleGetter
	Followups FollowupStore
	SMS       sms.Sender

	RepeatThreshold time.Duration // default: 24h
	SendTimeout     time.Duration // default: 10s

	Now    func() time.Time
	Logger *slog.Logger
}

// NewFollowupSender создаёт FollowupSender.
func NewFollowupSender(cfg SenderConfig) *FollowupSender {
	s := &FollowupSender{
		leads:           cfg.Leads,
		rules:           cfg.Rules,
		followups:       cfg.Followups,
		sms:             cfg.SMS,
		repeatThreshold: cfg.RepeatThreshold,
		sendTimeout:     cfg.SendTimeout,
		now:             cfg.Now,
		logger:          cfg.Logger,
	}
	if s.repeatThreshold <= 0 {
		s.repeatThreshold = DefaultRepeatThreshold
	}
	if s.sendTimeout <= 0 {
		s.sendTimeout = DefaultSendTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.sms == nil {
		s.sms = sms.NewLogSender(s.logger)
	}
	return s
}

// SendFollowup отправляет follow-up по правилу ruleID лиду leadID.
//
// Если по паре уже был follow-up за последние repeatThreshold, ничего
// не делает и возвращает nil. Запись создаётся до отправки, поэтому
// ошибка отправки (ErrSendFailed) не приводит к повтору.
func (s *FollowupSender) SendFollowup(ctx context.Context, leadID, ruleID uuid.UUID) error {
	logger := telemetry.WithPair(s.logger, leadID.String(), ruleID.String())

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			telemetry.Followups.WithLabelValues(telemetry.ResultNotFound).Inc()
			return fmt.Errorf("%w: %s", ErrLeadNotFound, leadID)
		}
		return fmt.Errorf("get lead: %w", err)
	}

	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			telemetry.Followups.WithLabelValues(telemetry.ResultNotFound).Inc()
			return fmt.Errorf("%w: %s", ErrRuleNotFound, ruleID)
		}
		return fmt.Errorf("get rule: %w", err)
	}

	now := s.now()
	followup := domain.NewFollowup(lead.ID, rule.ID, now)
	created, err := s.followups.CreateUnlessRecent(ctx, followup, now.Add(-s.repeatThreshold))
	if err != nil {
		return fmt.Errorf("create followup: %w", err)
	}
	if !created {
		telemetry.Followups.WithLabelValues(telemetry.ResultSkipped).Inc()
		logger.Info("skip followup", "repeat_threshold", s.repeatThreshold)
		return nil
	}

	if err := s.send(ctx, lead.Phone, rule.Text); err != nil {
		telemetry.Followups.WithLabelValues(telemetry.ResultFailed).Inc()
		logger.Error("followup send failed", "followup_id", followup.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	telemetry.Followups.WithLabelValues(telemetry.ResultSent).Inc()
	logger.Info("followup sent", "followup_id", followup.ID, "status", lead.Status)
	return nil
}

// send вызывает эффект отправки с таймаутом.
func (s *FollowupSender) send(ctx context.Context, phone, text string) error {
	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	started := time.Now()
	defer func() {
		telemetry.SendDuration.Observe(time.Since(started).Seconds())
	}()

	return s.sms.Send(ctx, phone, text)
}
