package handler

import (
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/go-chi/chi/v5"
)

func callerOf(r *http.Request) model.Caller {
	c, _ := CallerFrom(r.Context())
	return c
}

// CreateEvent handles POST /events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badBody(w, err)
		return
	}

	event, err := h.registry.CreateEvent(r.Context(), callerOf(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Query: search, approval, lifecycle, organizer_id, window, from, to, sort, order, limit.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	f, err := parseEventFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	events, err := h.registry.ListEvents(r.Context(), callerOf(r), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.registry.GetEvent(r.Context(), callerOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PATCH /events/{id}
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badBody(w, err)
		return
	}

	event, err := h.registry.UpdateEvent(r.Context(), callerOf(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteEvent(r.Context(), callerOf(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DecideEvent handles POST /events/{id}/decision
func (h *Handler) DecideEvent(w http.ResponseWriter, r *http.Request) {
	var req model.DecisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badBody(w, err)
		return
	}

	event, err := h.registry.DecideEvent(r.Context(), callerOf(r), chi.URLParam(r, "id"), req.Decision)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Register handles POST /events/{id}/register
// Registers the calling student; capacity is enforced atomically.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registry.RegisterForEvent(r.Context(), callerOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// ListEventRegistrations handles GET /events/{id}/registrations
func (h *Handler) ListEventRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registry.ListEventRegistrations(r.Context(), callerOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// ListRegistrations handles GET /registrations
// Query: event_id, status, search, order.
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.RegistrationFilter{
		EventID: q.Get("event_id"),
		Search:  strings.TrimSpace(q.Get("search")),
		Order:   model.ParseSortOrder(q.Get("order"), model.OrderDesc),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := model.ParseRegistrationStatus(raw)
		if err != nil {
			verr := &model.ValidationError{}
			verr.Add("status", err.Error())
			h.writeError(w, r, verr)
			return
		}
		f.Status = status
	}

	regs, err := h.registry.ListRegistrations(r.Context(), callerOf(r), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// CancelRegistration handles POST /registrations/{id}/cancel
func (h *Handler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registry.CancelRegistration(r.Context(), callerOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// UpdateRegistrationStatus handles PATCH /registrations/{id}/status
func (h *Handler) UpdateRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	var req model.RegistrationStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badBody(w, err)
		return
	}

	reg, err := h.registry.UpdateRegistrationStatus(r.Context(), callerOf(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func parseEventFilter(r *http.Request) (model.EventFilter, error) {
	q := r.URL.Query()
	verr := &model.ValidationError{}
	f := model.EventFilter{
		Search:      strings.TrimSpace(q.Get("search")),
		OrganizerID: q.Get("organizer_id"),
		Window:      model.DateWindow(q.Get("window")),
		Sort:        model.ParseEventSort(q.Get("sort")),
		Order:       model.ParseSortOrder(q.Get("order"), model.OrderAsc),
	}

	if raw := q.Get("approval"); raw != "" {
		if a, err := model.ParseApprovalStatus(raw); err != nil {
			verr.Add("approval", err.Error())
		} else {
			f.Approval = a
		}
	}
	if raw := q.Get("lifecycle"); raw != "" {
		if l, err := model.ParseLifecycleStatus(raw); err != nil {
			verr.Add("lifecycle", err.Error())
		} else {
			f.Lifecycle = l
		}
	}
	for key, dst := range map[string]**model.Date{"from": &f.From, "to": &f.To} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		d, err := model.ParseDate(raw)
		if err != nil {
			verr.Add(key, "must be formatted as YYYY-MM-DD")
			continue
		}
		*dst = &d
	}
	if limit, ok := queryInt(r, "limit"); ok {
		f.Limit = limit
	} else {
		verr.Add("limit", "limit must be a non-negative integer")
	}
	return f, verr.OrNil()
}
