package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxPhoneLen — максимальная длина телефона.
const MaxPhoneLen = 32

// Lead — потенциальный клиент, движущийся по воронке статусов.
type Lead struct {
	// ID — уникальный идентификатор лида.
	ID uuid.UUID `json:"id"`

	// Phone — номер телефона, уникален среди всех лидов.
	Phone string `json:"phone"`

	// Status — текущий статус.
	Status LeadStatus `json:"status"`

	// UpdatedAt — время перехода в текущий статус.
	// Scheduler считает от него время «застоя».
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLead создаёт лида в статусе new (если статус не задан).
func NewLead(phone string, status LeadStatus, now time.Time) (*Lead, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || len(phone) > MaxPhoneLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	if status == "" {
		status = LeadStatusNew
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return &Lead{
		ID:        uuid.New(),
		Phone:     phone,
		Status:    status,
		UpdatedAt: now.UTC(),
	}, nil
}

// SetStatus меняет статус.
// UpdatedAt обновляется только при реальной смене статуса.
// Возвращает true, если статус изменился.
func (l *Lead) SetStatus(status LeadStatus, now time.Time) bool {
	if l.Status == status {
		return false
	}
	l.Status = status
	l.UpdatedAt = now.UTC()
	return true
}

// StalledFor возвращает, сколько лид находится в текущем статусе.
func (l *Lead) StalledFor(now time.Time) time.Duration {
	return now.Sub(l.UpdatedAt)
}

// LeadEvent — запись истории смены статусов лида.
type LeadEvent struct {
	ID        uuid.UUID  `json:"id"`
	LeadID    uuid.UUID  `json:"lead_id"`
	Status    LeadStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewLeadEvent создаёт событие смены статуса.
func NewLeadEvent(leadID uuid.UUID, status LeadStatus, now time.Time) *LeadEvent {
	return &LeadEvent{
		ID:        uuid.New(),
		LeadID:    leadID,
		Status:    status,
		CreatedAt: now.UTC(),
	}
}
