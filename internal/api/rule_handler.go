package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/Leadflow/internal/domain"
	"github.com/shaiso/Leadflow/internal/telemetry"
)

// ListRules возвращает правила follow-up.
// GET /api/v1/followup-rules?limit=...&offset=...
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context(), parseListParams(r))
	if HandleRepoError(w, r, err, "") {
		return
	}

	result := make([]RuleResponse, len(rules))
	for i := range rules {
		result[i] = RuleFromDomain(&rules[i])
	}

	List(w, result, len(result))
}

// CreateRule создаёт правило.
// POST /api/v1/followup-rules
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status, err := domain.ParseLeadStatus(req.Status)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}

	rule, err := domain.NewFollowupRule(status, req.Delay, req.Text, enabled)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	if HandleRepoError(w, r, h.rules.Create(r.Context(), rule), "") {
		return
	}

	telemetry.FromContext(r.Context()).Info("followup rule created", "rule_id", rule.ID, "status", rule.Status, "delay", rule.Delay())
	Created(w, RuleFromDomain(rule))
}

// SetRuleEnabled включает или выключает правило.
// PUT /api/v1/followup-rules/{id}/enabled
func (h *Handler) SetRuleEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid rule id")
		return
	}

	var req SetEnabledRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if HandleRepoError(w, r, h.rules.SetEnabled(r.Context(), id, req.Enabled), "rule not found") {
		return
	}

	rule, err := h.rules.GetByID(r.Context(), id)
	if HandleRepoError(w, r, err, "rule not found") {
		return
	}

	Success(w, RuleFromDomain(rule))
}
