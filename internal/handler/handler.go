// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/logger"
	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"go.uber.org/zap"
)

// Handler holds all HTTP handlers for the campus events API.
type Handler struct {
	registry *service.EventRegistry
	users    *service.UserService
	reports  *service.ReportService
	tokens   *auth.Tokens
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// Deps are the collaborators a Handler needs.
type Deps struct {
	Registry *service.EventRegistry
	Users    *service.UserService
	Reports  *service.ReportService
	Tokens   *auth.Tokens
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

// New constructs a Handler.
func New(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		registry: d.Registry,
		users:    d.Users,
		reports:  d.Reports,
		tokens:   d.Tokens,
		log:      log,
		metrics:  d.Metrics,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrUnauthenticated), errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrAlreadyRegistered),
		errors.Is(err, model.ErrCapacityExceeded),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrLastAdmin),
		errors.Is(err, model.ErrDuplicateAccount):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotApproved),
		errors.Is(err, model.ErrEventClosed),
		errors.Is(err, model.ErrTooLate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a service error. Persistence failures are logged and
// reported without their cause.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := model.ErrorResponse{Error: err.Error(), Code: model.Code(err)}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Error = "validation failed"
		resp.Details = verr.Fields()
	}
	if status == http.StatusInternalServerError {
		h.log.WithContext(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		resp.Error = "internal server error"
	}
	writeJSON(w, status, resp)
}

func (h *Handler) badBody(w http.ResponseWriter, err error) {
	writeErrorCode(w, http.StatusBadRequest, model.CodeBadRequest, "invalid request body: "+err.Error())
}

func queryInt(r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil && n >= 0
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
