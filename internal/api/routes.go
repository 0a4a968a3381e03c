package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		RequestID(h.logger),
		Recovery(),
		Metrics(),
		Logging(),
	)

	// Leads
	mux.Handle("GET /api/v1/leads", chain(http.HandlerFunc(h.ListLeads)))
	mux.Handle("POST /api/v1/leads", chain(http.HandlerFunc(h.CreateLead)))
	mux.Handle("GET /api/v1/leads/{id}", chain(http.HandlerFunc(h.GetLead)))
	mux.Handle("POST /api/v1/leads/{id}/status", chain(http.HandlerFunc(h.SetLeadStatus)))
	mux.Handle("GET /api/v1/lead-events", chain(http.HandlerFunc(h.ListLeadEvents)))

	// Follow-up rules
	mux.Handle("GET /api/v1/followup-rules", chain(http.HandlerFunc(h.ListRules)))
	mux.Handle("POST /api/v1/followup-rules", chain(http.HandlerFunc(h.CreateRule)))
	mux.Handle("PUT /api/v1/followup-rules/{id}/enabled", chain(http.HandlerFunc(h.SetRuleEnabled)))

	// Read-only
	mux.Handle("GET /api/v1/followups", chain(http.HandlerFunc(h.ListFollowups)))
	mux.Handle("GET /api/v1/locks", chain(http.HandlerFunc(h.ListLocks)))
}
