package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/go-chi/chi/v5"
)

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Signup handles POST /auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badBody(w, err)
		return
	}

	user, err := h.users.Signup(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badBody(w, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	token, expires, err := h.tokens.Issue(user)
	if err != nil {
		h.writeError(w, r, model.Persistence("issue token", err))
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires, User: user})
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), callerOf(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListUsers handles GET /users
// Query: role, search, order.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.UserFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Order:  model.ParseSortOrder(q.Get("order"), model.OrderDesc),
	}
	if raw := q.Get("role"); raw != "" {
		role, err := model.ParseRole(raw)
		if err != nil {
			verr := &model.ValidationError{}
			verr.Add("role", err.Error())
			h.writeError(w, r, verr)
			return
		}
		f.Role = role
	}

	users, err := h.users.ListUsers(r.Context(), callerOf(r), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badBody(w, err)
		return
	}

	user, err := h.users.CreateUser(r.Context(), callerOf(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// ChangeRole handles PATCH /users/{id}/role
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req model.RoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badBody(w, err)
		return
	}

	user, err := h.users.ChangeRole(r.Context(), callerOf(r), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), callerOf(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReportsOverview handles GET /reports/overview
func (h *Handler) ReportsOverview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Overview(r.Context(), callerOf(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// OrganizerAnalytics handles GET /reports/organizer
func (h *Handler) OrganizerAnalytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.OrganizerAnalytics(r.Context(), callerOf(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
