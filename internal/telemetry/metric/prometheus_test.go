package metric

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_ObserveRequest(t *testing.T) {
	r := NewRegistry()

	r.ObserveRequest("/system/status", "GET", 200, 5*time.Millisecond)
	r.ObserveRequest("/system/status", "GET", 200, 5*time.Millisecond)
	r.ObserveRequest("/system/status", "GET", 401, time.Millisecond)

	if got := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("/system/status", "GET", "200")); got != 2 {
		t.Errorf("requests{200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("/system/status", "GET", "401")); got != 1 {
		t.Errorf("requests{401} = %v, want 1", got)
	}
}

func TestRegistry_SessionsAndAuth(t *testing.T) {
	r := NewRegistry()
	r.SetSessions(3)
	r.AuthFailed("bad_credentials")
	r.SessionCreated()
	r.HandlerPanicked()

	if got := testutil.ToFloat64(r.SessionsCreated); got != 1 {
		t.Errorf("sessions created = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.HandlerPanics); got != 1 {
		t.Errorf("handler panics = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.SessionsActive); got != 3 {
		t.Errorf("sessions active = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.AuthFailures.WithLabelValues("bad_credentials")); got != 1 {
		t.Errorf("auth failures = %v, want 1", got)
	}
}

func TestRegistry_NilSafe(t *testing.T) {
	var r *Registry
	r.ObserveRequest("x", "GET", 200, time.Second)
	r.SetSessions(1)
	r.AuthFailed("x")
	r.SessionCreated()
	r.HandlerPanicked()
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.SetSessions(1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "statehttpd_sessions_active 1") {
		t.Errorf("exposition missing session gauge:\n%s", rec.Body.String())
	}
}
