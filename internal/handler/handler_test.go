package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t      *testing.T
	router http.Handler
	users  *service.UserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemory()
	m := metrics.New()
	clock := service.WithClock(func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	})

	users := service.NewUserService(store, clock)
	h := New(Deps{
		Registry: service.NewEventRegistry(store, store, clock, service.WithMetrics(m)),
		Users:    users,
		Reports:  service.NewReportService(store, clock),
		Tokens:   auth.NewTokens(config.JWTConfig{Secret: "test-secret", TokenTTL: time.Hour, Issuer: "campus-events"}),
		Metrics:  m,
	})

	_, err := users.CreateAdmin(context.Background(), model.SignupRequest{
		Name: "Root", Email: "root@campus.test", Username: "root", Password: "rootpass",
	})
	require.NoError(t, err)
	return &testServer{t: t, router: h.Routes(), users: users}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(username string, role model.Role) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/auth/signup", "", model.SignupRequest{
		Name: username, Email: username + "@campus.test", Username: username, Password: "secret123", Role: role,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/auth/login", "", model.LoginRequest{Username: username, Password: password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp LoginResponse
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "campus_events_http_requests_total")
}

func TestAuthenticate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MISSING_TOKEN", decodeError(t, rec).Code)

	rec = s.do(http.MethodGet, "/events", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", decodeError(t, rec).Code)

	rec = s.do(http.MethodPost, "/auth/login", "", model.LoginRequest{Username: "root", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, model.CodeInvalidCredentials, decodeError(t, rec).Code)

	token := s.login("root", "rootpass")
	rec = s.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, model.RoleAdmin, me.Role)
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	s.signup("stud_a", model.RoleStudent)
	student := s.login("stud_a", "secret123")
	admin := s.login("root", "rootpass")

	rec := s.do(http.MethodGet, "/users", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodGet, "/reports/overview", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodPost, "/events", student, model.CreateEventRequest{Title: "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)

	// signup cannot mint admins
	rec = s.do(http.MethodPost, "/auth/signup", "", model.SignupRequest{
		Name: "Eve", Email: "eve@campus.test", Username: "eve", Password: "secret123", Role: model.RoleAdmin,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEvent_Validation(t *testing.T) {
	s := newTestServer(t)
	s.signup("org_a", model.RoleOrganizer)
	organizer := s.login("org_a", "secret123")

	rec := s.do(http.MethodPost, "/events", organizer, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, model.CodeValidationFailed, resp.Code)
	assert.Contains(t, resp.Details, "title")
	assert.Contains(t, resp.Details, "date")

	rec = s.do(http.MethodPost, "/events", organizer, map[string]any{"venue": "nowhere"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, model.CodeBadRequest, decodeError(t, rec).Code)

	rec = s.do(http.MethodGet, "/events?limit=-1", organizer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Details, "limit")

	rec = s.do(http.MethodGet, "/events/not-a-uuid", organizer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegistrationFlow(t *testing.T) {
	s := newTestServer(t)
	s.signup("org_a", model.RoleOrganizer)
	s.signup("stud_a", model.RoleStudent)
	s.signup("stud_b", model.RoleStudent)
	organizer := s.login("org_a", "secret123")
	studentA := s.login("stud_a", "secret123")
	studentB := s.login("stud_b", "secret123")
	admin := s.login("root", "rootpass")

	capacity := 1
	rec := s.do(http.MethodPost, "/events", organizer, model.CreateEventRequest{
		Title:       "Robotics Demo",
		Description: "Lab open house",
		Date:        "2026-03-20",
		Time:        "14:00",
		Location:    "Lab 3",
		Capacity:    &capacity,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var event model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, model.ApprovalPending, event.ApprovalStatus)

	rec = s.do(http.MethodPost, "/events/"+event.ID+"/register", studentA, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, model.CodeNotApproved, decodeError(t, rec).Code)

	rec = s.do(http.MethodPost, "/events/"+event.ID+"/decision", organizer, model.DecisionRequest{Decision: model.DecisionApprove})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodPost, "/events/"+event.ID+"/decision", admin, model.DecisionRequest{Decision: model.DecisionApprove})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/events/"+event.ID+"/register", studentA, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg model.Registration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Equal(t, model.RegistrationRegistered, reg.Status)

	rec = s.do(http.MethodPost, "/events/"+event.ID+"/register", studentA, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, model.CodeAlreadyRegistered, decodeError(t, rec).Code)

	rec = s.do(http.MethodPost, "/events/"+event.ID+"/register", studentB, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, model.CodeCapacityExceeded, decodeError(t, rec).Code)

	rec = s.do(http.MethodGet, "/events/"+event.ID, studentB, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary model.EventSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 0, summary.Remaining)
	assert.False(t, summary.IsRegistered)

	rec = s.do(http.MethodGet, "/events/"+event.ID+"/registrations", organizer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var regs []model.RegistrationDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regs))
	require.Len(t, regs, 1)
	assert.Equal(t, "stud_a", regs[0].StudentName)

	rec = s.do(http.MethodPost, "/registrations/"+reg.ID+"/cancel", studentB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodPost, "/registrations/"+reg.ID+"/cancel", studentA, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/events/"+event.ID+"/register", studentB, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/registrations?status=bogus", studentA, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, rec.Body.String(), `campus_events_registration_attempts_total{outcome="CAPACITY_EXCEEDED"} 1`)
}

func TestLastAdminGuard(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("root", "rootpass")

	rec := s.do(http.MethodGet, "/auth/me", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))

	rec = s.do(http.MethodPatch, "/users/"+me.ID+"/role", admin, model.RoleRequest{Role: model.RoleStudent})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, model.CodeLastAdmin, decodeError(t, rec).Code)

	rec = s.do(http.MethodDelete, "/users/"+me.ID, admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
