package domain

import "errors"

// Ошибки валидации доменных сущностей.
var (
	// ErrInvalidStatus — неизвестный статус лида.
	ErrInvalidStatus = errors.New("invalid lead status")

	// ErrInvalidRule — правило follow-up не прошло валидацию.
	ErrInvalidRule = errors.New("invalid followup rule")

	// ErrInvalidPhone — пустой или слишком длинный телефон.
	ErrInvalidPhone = errors.New("invalid phone")
)
