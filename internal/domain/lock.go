package domain

import "time"

// ExecutionLock — персистентная блокировка именованной периодической задачи.
//
// Строка создаётся при первой попытке захвата и никогда не удаляется;
// LockedAt переключается между nil и временем захвата.
type ExecutionLock struct {
	Name     string     `json:"name"`
	LockedAt *time.Time `json:"locked_at,omitempty"`
}

// IsHeld проверяет, удерживается ли блокировка живым владельцем.
// Блокировка старше timeout считается протухшей и может быть перехвачена.
func (l *ExecutionLock) IsHeld(now time.Time, timeout time.Duration) bool {
	if l.LockedAt == nil {
		return false
	}
	return now.Sub(*l.LockedAt) <= timeout
}

// IsStale — блокировка выставлена, но владелец не снял её дольше timeout.
func (l *ExecutionLock) IsStale(now time.Time, timeout time.Duration) bool {
	return l.LockedAt != nil && !l.IsHeld(now, timeout)
}

// LockAttempt — результат попытки захвата ExecutionLock.
type LockAttempt struct {
	// Acquired — блокировка захвачена вызывающим.
	Acquired bool

	// LockedAt — время захвата (ключ для освобождения) при Acquired,
	// иначе время захвата текущим владельцем.
	LockedAt time.Time

	// Recovered — захвачена протухшая блокировка упавшего владельца.
	Recovered bool
}
