package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.RegistrationOutcome("accepted")
	m.RegistrationOutcome("accepted")
	m.RegistrationOutcome("CAPACITY_EXCEEDED")
	m.Decision("approved")
	m.ObserveRequest("/events/{id}", http.MethodGet, http.StatusOK, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.registrations.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrations.WithLabelValues("CAPACITY_EXCEEDED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/events/{id}", "GET", "200")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RegistrationOutcome("accepted")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `campus_events_registration_attempts_total{outcome="accepted"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RegistrationOutcome("accepted")
		m.Decision("rejected")
		m.ObserveRequest("/", http.MethodGet, http.StatusOK, time.Millisecond)
	})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
