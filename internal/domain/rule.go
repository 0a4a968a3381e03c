package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxRuleTextLen — максимальная длина текста SMS в символах.
const MaxRuleTextLen = 140

// FollowupRule — правило автоматического follow-up.
//
// Если лид находится в статусе Status дольше DelayMinutes минут,
// ему отправляется SMS с текстом Text.
// Пара (Status, DelayMinutes) уникальна.
type FollowupRule struct {
	ID uuid.UUID `json:"id"`

	// Status — статус лида, для которого срабатывает правило.
	Status LeadStatus `json:"status"`

	// DelayMinutes — сколько минут лид может оставаться в статусе.
	DelayMinutes int `json:"delay"`

	// Text — шаблон сообщения, не длиннее MaxRuleTextLen символов.
	Text string `json:"text"`

	// IsEnabled — выключенные правила scheduler игнорирует.
	IsEnabled bool `json:"is_enabled"`
}

// NewFollowupRule создаёт и валидирует правило.
func NewFollowupRule(status LeadStatus, delayMinutes int, text string, enabled bool) (*FollowupRule, error) {
	rule := &FollowupRule{
		ID:           uuid.New(),
		Status:       status,
		DelayMinutes: delayMinutes,
		Text:         text,
		IsEnabled:    enabled,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

// Validate проверяет инварианты правила.
func (r *FollowupRule) Validate() error {
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRule, r.Status)
	}
	if r.DelayMinutes <= 0 {
		return fmt.Errorf("%w: delay must be positive, got %d", ErrInvalidRule, r.DelayMinutes)
	}
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidRule)
	}
	if n := utf8.RuneCountInString(r.Text); n > MaxRuleTextLen {
		return fmt.Errorf("%w: text is %d characters, max %d", ErrInvalidRule, n, MaxRuleTextLen)
	}
	return nil
}

// Delay возвращает задержку правила как time.Duration.
func (r *FollowupRule) Delay() time.Duration {
	return time.Duration(r.DelayMinutes) * time.Minute
}

// Cutoff — граница: лиды с UpdatedAt <= Cutoff(now) просрочены.
func (r *FollowupRule) Cutoff(now time.Time) time.Time {
	return now.Add(-r.Delay())
}
