package domain

import (
	"fmt"
	"strings"
)

// LeadStatus — статус лида в воронке продаж.
//
// Жизненный цикл (не навязывается системой):
//
//	new → submitted → verified → paid
//	   ↘         ↘          ↘
//	                lost (из любого нефинального статуса)
//
// Scheduler не проверяет переходы, он реагирует только на текущий статус.
type LeadStatus string

const (
	// LeadStatusNew — лид только что создан.
	LeadStatusNew LeadStatus = "new"

	// LeadStatusSubmitted — лид отправил заявку.
	LeadStatusSubmitted LeadStatus = "submitted"

	// LeadStatusVerified — заявка проверена.
	LeadStatusVerified LeadStatus = "verified"

	// LeadStatusPaid — лид оплатил.
	LeadStatusPaid LeadStatus = "paid"

	// LeadStatusLost — лид потерян.
	LeadStatusLost LeadStatus = "lost"
)

// LeadStatuses — все допустимые статусы в порядке воронки.
var LeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusSubmitted,
	LeadStatusVerified,
	LeadStatusPaid,
	LeadStatusLost,
}

// IsValid проверяет, что статус входит в перечисление.
func (s LeadStatus) IsValid() bool {
	for _, known := range LeadStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// String возвращает строковое представление LeadStatus.
func (s LeadStatus) String() string {
	return string(s)
}

// ParseLeadStatus парсит строку в LeadStatus (регистр не важен).
func ParseLeadStatus(s string) (LeadStatus, error) {
	status := LeadStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}
