package api

import (
	"net/http"
	"time"
)

// ListFollowups возвращает отправленные follow-up, новые первыми.
// GET /api/v1/followups?limit=...&offset=...
func (h *Handler) ListFollowups(w http.ResponseWriter, r *http.Request) {
	followups, err := h.followups.List(r.Context(), parseListParams(r))
	if HandleRepoError(w, r, err, "") {
		return
	}

	result := make([]FollowupResponse, len(followups))
	for i := range followups {
		result[i] = FollowupFromDomain(&followups[i])
	}

	List(w, result, len(result))
}

// ListLocks возвращает состояние execution locks.
// GET /api/v1/locks
func (h *Handler) ListLocks(w http.ResponseWriter, r *http.Request) {
	locks, err := h.locks.List(r.Context())
	if HandleRepoError(w, r, err, "") {
		return
	}

	now := time.Now()
	result := make([]LockResponse, len(locks))
	for i := range locks {
		result[i] = LockFromDomain(&locks[i], now, h.lockTimeout)
	}

	List(w, result, len(result))
}
