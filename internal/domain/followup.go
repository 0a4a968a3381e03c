package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Followup — факт отправки (или попытки отправки) follow-up сообщения.
// Записи только добавляются, не изменяются и не удаляются.
type Followup struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"lead_id"`
	RuleID    uuid.UUID `json:"rule_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewFollowup создаёт запись follow-up для пары.
func NewFollowup(leadID, ruleID uuid.UUID, now time.Time) *Followup {
	return &Followup{
		ID:        uuid.New(),
		LeadID:    leadID,
		RuleID:    ruleID,
		CreatedAt: now.UTC(),
	}
}

// Pair — пара (лид, правило), для которой нужен follow-up.
type Pair struct {
	LeadID uuid.UUID `json:"lead_id"`
	RuleID uuid.UUID `json:"rule_id"`
}

// String возвращает "lead_id/rule_id" для логов.
func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.LeadID, p.RuleID)
}

// StallView — согласованный снимок данных для одного прохода сканера.
//
// Реализация в repo работает внутри read-only транзакции,
// поэтому все правила видят одно и то же состояние лидов.
type StallView interface {
	// ListEnabledRules возвращает включённые правила.
	ListEnabledRules(ctx context.Context) ([]FollowupRule, error)

	// ListStalledLeadIDs возвращает лидов в статусе rule.Status с
	// updated_at <= cutoff, у которых нет follow-up по этому правилу,
	// созданного после updated_at и не раньше repeatSince.
	ListStalledLeadIDs(ctx context.Context, rule FollowupRule, cutoff, repeatSince time.Time) ([]uuid.UUID, error)
}
