package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Leadflow/internal/domain"
	"github.com/shaiso/Leadflow/internal/telemetry"
)

// ListLeads возвращает список лидов.
// GET /api/v1/leads?limit=...&offset=...&order_by=...&order_dir=...
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leads.List(r.Context(), parseListParams(r))
	if HandleRepoError(w, r, err, "") {
		return
	}

	now := time.Now()
	result := make([]LeadResponse, len(leads))
	for i := range leads {
		result[i] = LeadFromDomain(&leads[i], now)
	}

	List(w, result, len(result))
}

// CreateLead создаёт лида.
// POST /api/v1/leads
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var status domain.LeadStatus
	if req.Status != "" {
		parsed, err := domain.ParseLeadStatus(req.Status)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
		status = parsed
	}

	now := time.Now()
	lead, err := domain.NewLead(req.Phone, status, now)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	if HandleRepoError(w, r, h.leads.Create(r.Context(), lead), "") {
		return
	}

	telemetry.FromContext(r.Context()).Info("lead created", "lead_id", lead.ID, "status", lead.Status)
	Created(w, LeadFromDomain(lead, now))
}

// GetLead возвращает лида по ID.
// GET /api/v1/leads/{id}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid lead id")
		return
	}

	lead, err := h.leads.GetByID(r.Context(), id)
	if HandleRepoError(w, r, err, "lead not found") {
		return
	}

	Success(w, LeadFromDomain(lead, time.Now()))
}

// SetLeadStatus меняет статус лида и записывает событие.
// POST /api/v1/leads/{id}/status
func (h *Handler) SetLeadStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid lead id")
		return
	}

	var req SetLeadStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status, err := domain.ParseLeadStatus(req.Status)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	event, err := h.leads.SetStatus(r.Context(), id, status, time.Now())
	if HandleRepoError(w, r, err, "lead not found") {
		return
	}

	telemetry.FromContext(r.Context()).Info("lead status set", "lead_id", id, "status", status)
	Created(w, LeadEventFromDomain(event))
}

// ListLeadEvents возвращает историю смены статусов.
// GET /api/v1/lead-events?limit=...&offset=...
func (h *Handler) ListLeadEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.leads.ListEvents(r.Context(), parseListParams(r))
	if HandleRepoError(w, r, err, "") {
		return
	}

	result := make([]LeadEventResponse, len(events))
	for i := range events {
		result[i] = LeadEventFromDomain(&events[i])
	}

	List(w, result, len(result))
}
