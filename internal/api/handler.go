package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Leadflow/internal/domain"
	"github.com/shaiso/Leadflow/internal/repo"
)

// LeadStore — хранилище лидов. Реализация: repo.LeadRepo.
type LeadStore interface {
	Create(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	List(ctx context.Context, params repo.ListParams) ([]domain.Lead, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus, now time.Time) (*domain.LeadEvent, error)
	ListEvents(ctx context.Context, params repo.ListParams) ([]domain.LeadEvent, error)
}

// RuleStore — хранилище правил. Реализация: repo.RuleRepo.
type RuleStore interface {
	Create(ctx context.Context, rule *domain.FollowupRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FollowupRule, error)
	List(ctx context.Context, params repo.ListParams) ([]domain.FollowupRule, error)
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}

// FollowupLister — чтение follow-up. Реализация: repo.FollowupRepo.
type FollowupLister interface {
	List(ctx context.Context, params repo.ListParams) ([]domain.Followup, error)
}

// LockLister — чтение execution locks. Реализация: repo.LockRepo.
type LockLister interface {
	List(ctx context.Context) ([]domain.ExecutionLock, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	leads       LeadStore
	rules       RuleStore
	followups   FollowupLister
	locks       LockLister
	lockTimeout time.Duration
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Leads     LeadStore
	Rules     RuleStore
	Followups FollowupLister
	Locks     LockLister

	// LockTimeout — для вычисления признака held в /locks.
	LockTimeout time.Duration

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		leads:       cfg.Leads,
		rules:       cfg.Rules,
		followups:   cfg.Followups,
		locks:       cfg.Locks,
		lockTimeout: cfg.LockTimeout,
		logger:      logger,
	}
}
