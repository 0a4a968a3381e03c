package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Leadflow/internal/domain"
)

// Lead DTOs

// CreateLeadRequest — запрос на создание лида.
type CreateLeadRequest struct {
	Phone  string `json:"phone"`
	Status string `json:"status,omitempty"` // default: new
}

// SetLeadStatusRequest — запрос на смену статуса лида.
type SetLeadStatusRequest struct {
	Status string `json:"status"`
}

// LeadResponse — ответ с лидом.
type LeadResponse struct {
	ID         uuid.UUID         `json:"id"`
	Phone      string            `json:"phone"`
	Status     domain.LeadStatus `json:"status"`
	UpdatedAt  time.Time         `json:"updated_at"`
	StalledSec int64             `json:"stalled_sec"`
}

// LeadFromDomain конвертирует domain.Lead в LeadResponse.
func LeadFromDomain(l *domain.Lead, now time.Time) LeadResponse {
	return LeadResponse{
		ID:         l.ID,
		Phone:      l.Phone,
		Status:     l.Status,
		UpdatedAt:  l.UpdatedAt,
		StalledSec: int64(l.StalledFor(now).Seconds()),
	}
}

// LeadEventResponse — ответ с событием смены статуса.
type LeadEventResponse struct {
	ID        uuid.UUID         `json:"id"`
	LeadID    uuid.UUID         `json:"lead_id"`
	Status    domain.LeadStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// LeadEventFromDomain конвертирует domain.LeadEvent в LeadEventResponse.
func LeadEventFromDomain(e *domain.LeadEvent) LeadEventResponse {
	return LeadEventResponse{
		ID:        e.ID,
		LeadID:    e.LeadID,
		Status:    e.Status,
		CreatedAt: e.CreatedAt,
	}
}

// Rule DTOs

// CreateRuleRequest — запрос на создание правила.
type CreateRuleRequest struct {
	Status    string `json:"status"`
	Delay     int    `json:"delay"` // минуты
	Text      string `json:"text"`
	IsEnabled *bool  `json:"is_enabled,omitempty"` // default: true
}

// SetEnabledRequest — запрос на включение/выключение правила.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// RuleResponse — ответ с правилом.
type RuleResponse struct {
	ID        uuid.UUID         `json:"id"`
	Status    domain.LeadStatus `json:"status"`
	Delay     int               `json:"delay"`
	Text      string            `json:"text"`
	IsEnabled bool              `json:"is_enabled"`
}

// RuleFromDomain конвертирует domain.FollowupRule в RuleResponse.
func RuleFromDomain(r *domain.FollowupRule) RuleResponse {
	return RuleResponse{
		ID:        r.ID,
		Status:    r.Status,
		Delay:     r.DelayMinutes,
		Text:      r.Text,
		IsEnabled: r.IsEnabled,
	}
}

// Followup DTOs

// FollowupResponse — ответ с записью follow-up.
type FollowupResponse struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"lead_id"`
	RuleID    uuid.UUID `json:"rule_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FollowupFromDomain конвертирует domain.Followup в FollowupResponse.
func FollowupFromDomain(f *domain.Followup) FollowupResponse {
	return FollowupResponse{
		ID:        f.ID,
		LeadID:    f.LeadID,
		RuleID:    f.RuleID,
		CreatedAt: f.CreatedAt,
	}
}

// Lock DTOs

// LockResponse — ответ с execution lock.
type LockResponse struct {
	Name     string     `json:"name"`
	LockedAt *time.Time `json:"locked_at"`
	Held     bool       `json:"held"`
}

// LockFromDomain конвертирует domain.ExecutionLock в LockResponse.
func LockFromDomain(l *domain.ExecutionLock, now time.Time, timeout time.Duration) LockResponse {
	return LockResponse{
		Name:     l.Name,
		LockedAt: l.LockedAt,
		Held:     l.IsHeld(now, timeout),
	}
}
