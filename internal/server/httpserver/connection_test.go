package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/internal/telemetry/metric"
)

func TestConnection_GetLifecycle(t *testing.T) {
	m := metric.NewRegistry()
	s := newTestServer(t, WithMetrics(m))
	var during Stage
	s.RegisterUnauthHandler(&fnEndpoint{path: "/x", get: func(_ context.Context, c *Connection) (int, error) {
		during = c.Stage()
		c.Write([]byte("hello"))
		return http.StatusOK, nil
	}})

	rec := httptest.NewRecorder()
	c, sig := s.Begin(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if sig != SignalReady {
		t.Fatalf("signal = %v, want SignalReady", sig)
	}
	if c.Stage() != StageCreated {
		t.Fatalf("stage = %s", c.Stage())
	}
	if err := s.Feed(c, []byte("x")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("feed on GET: err = %v", err)
	}

	s.Ready(c)
	if during != StageStreaming {
		t.Errorf("stage during stream = %s", during)
	}
	s.Complete(c)
	s.Complete(c)

	if c.Stage() != StageCompleted {
		t.Errorf("stage = %s", c.Stage())
	}
	if rec.Body.String() != "hello" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := testutil.CollectAndCount(m.RequestsTotal); got != 1 {
		t.Errorf("request series = %d, want 1", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues(routeUnauth, "GET", "200")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
}

func TestConnection_ChunkedPost(t *testing.T) {
	s := newTestServer(t)
	var user, pass string
	var during Stage
	s.RegisterUnauthHandler(&fnEndpoint{path: "/login", post: func(_ context.Context, c *Connection) (int, error) {
		during = c.Stage()
		user, _ = c.Variables().Get("user")
		pass, _ = c.Variables().Get("pass")
		return http.StatusNoContent, nil
	}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c, sig := s.Begin(rec, req)
	if sig != SignalBody {
		t.Fatalf("signal = %v, want SignalBody", sig)
	}
	if c.Stage() != StageAccumulating {
		t.Fatalf("stage = %s", c.Stage())
	}
	for _, chunk := range []string{"us", "er=a", "&pass=b"} {
		if err := s.Feed(c, []byte(chunk)); err != nil {
			t.Fatal(err)
		}
	}
	if c.Document() != nil {
		t.Error("document parsed before the body completed")
	}
	s.Ready(c)
	s.Complete(c)

	if during != StagePostComplete {
		t.Errorf("stage during post = %s", during)
	}
	if user != "a" || pass != "b" {
		t.Errorf("user = %q pass = %q", user, pass)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if err := s.Feed(c, []byte("late")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("feed after complete: err = %v", err)
	}
}

func TestConnection_InvalidJSONBody(t *testing.T) {
	s := newTestServer(t)
	called := false
	s.RegisterUnauthHandler(&fnEndpoint{path: "/x", post: func(context.Context, *Connection) (int, error) {
		called = true
		return http.StatusOK, nil
	}})

	rec := serve(s, http.MethodPost, "/x", `{"broken":`, withHeader("Content-Type", "application/json"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if called {
		t.Error("PostComplete ran with an unparseable body")
	}
}

func TestVariableCacheAs(t *testing.T) {
	s := newTestServer(t)
	type result struct {
		n    int
		on   bool
		rate float64
		err  error
	}
	var got result
	s.RegisterUnauthHandler(&fnEndpoint{path: "/x", post: func(_ context.Context, c *Connection) (int, error) {
		got = result{}
		if got.n, got.err = VariableCacheAs[int](c, "n"); got.err != nil {
			return 0, got.err
		}
		if got.on, got.err = VariableCacheAs[bool](c, "on"); got.err != nil {
			return 0, got.err
		}
		got.rate, got.err = VariableCacheAs[float64](c, "rate")
		return http.StatusOK, got.err
	}})

	tests := []struct {
		name    string
		body    string
		wantErr error
		want    result
	}{
		{"form", "n=7&on=true&rate=0.5", nil, result{n: 7, on: true, rate: 0.5}},
		{"json", `{"n": 3, "on": false, "rate": 2}`, nil, result{n: 3, rate: 2}},
		{"missing", "on=true&rate=1", domain.ErrVariableMissing, result{}},
		{"invalid", "n=seven", domain.ErrVariableInvalid, result{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, http.MethodPost, "/x", tt.body)
			if tt.wantErr != nil {
				if !errors.Is(got.err, tt.wantErr) {
					t.Errorf("err = %v, want %v", got.err, tt.wantErr)
				}
				if rec.Code != http.StatusBadRequest {
					t.Errorf("status = %d, want 400", rec.Code)
				}
				return
			}
			if got.err != nil {
				t.Fatalf("err = %v", got.err)
			}
			if got.n != tt.want.n || got.on != tt.want.on || got.rate != tt.want.rate {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConnection_LocksReleasedOnComplete(t *testing.T) {
	s := newTestServer(t)
	var mu, other sync.Mutex
	s.RegisterUnauthHandler(&fnEndpoint{path: "/x", get: func(_ context.Context, c *Connection) (int, error) {
		c.AcquireLock(&mu)
		c.AcquireLock(&other)
		c.ReleaseLock(&other)
		c.ReleaseLock(&other)
		return http.StatusOK, nil
	}})
	s.RegisterUnauthHandler(&fnEndpoint{path: "/fail", get: func(_ context.Context, c *Connection) (int, error) {
		c.AcquireLock(&mu)
		return 0, domain.ErrBadRequest
	}})

	for _, p := range []string{"/x", "/fail"} {
		serve(s, http.MethodGet, p, "")
		if !mu.TryLock() {
			t.Fatalf("%s: lock held after completion", p)
		}
		mu.Unlock()
		if !other.TryLock() {
			t.Fatalf("%s: released lock double-unlocked or held", p)
		}
		other.Unlock()
	}
}

func TestConnection_State(t *testing.T) {
	s := newTestServer(t)
	ep := &fnEndpoint{path: "/x"}
	ep.get = func(_ context.Context, c *Connection) (int, error) {
		if _, ok := c.State(ep); ok {
			t.Error("state present before SetState")
		}
		c.SetState(ep, 42)
		if n, ok := StateAs[int](c, ep); !ok || n != 42 {
			t.Errorf("StateAs = %v, %v", n, ok)
		}
		if _, ok := StateAs[string](c, ep); ok {
			t.Error("StateAs with wrong type succeeded")
		}
		return http.StatusOK, nil
	}
	s.RegisterUnauthHandler(ep)
	serve(s, http.MethodGet, "/x", "")
}

func TestConnection_Finalize(t *testing.T) {
	s := newTestServer(t)
	s.RegisterUnauthHandler(&fnEndpoint{path: "/export", get: func(_ context.Context, c *Connection) (int, error) {
		c.MimeURL = "/export.json"
		c.OptionalFilename = "devices.json"
		if !c.Finalize(false) {
			t.Error("first Finalize reported no work")
		}
		if c.Finalize(true) {
			t.Error("second Finalize reported work")
		}
		c.Write([]byte("{}"))
		return http.StatusOK, nil
	}})
	s.RegisterUnauthHandler(&fnEndpoint{path: "/page", get: text("<p>hi</p>")})

	rec := serve(s, http.MethodGet, "/export", "")
	h := rec.Header()
	if h.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", h.Get("Content-Type"))
	}
	if h.Get("Content-Disposition") != `attachment; filename=devices.json` {
		t.Errorf("Content-Disposition = %q", h.Get("Content-Disposition"))
	}
	if h.Get("Last-Modified") == "" || h.Get("Cache-Control") != "no-cache" {
		t.Errorf("headers = %v", h)
	}

	rec = serve(s, http.MethodGet, "/page", "")
	if ct := rec.Header().Get("Content-Type"); ct != "text/html" {
		t.Errorf("default Content-Type = %q", ct)
	}
}

func TestConnection_ErrorAfterFlush(t *testing.T) {
	s := newTestServer(t)
	s.RegisterUnauthHandler(&fnEndpoint{path: "/x", get: func(_ context.Context, c *Connection) (int, error) {
		c.Write([]byte("streamed"))
		c.Flush()
		return 0, domain.ErrBadRequest
	}})

	rec := serve(s, http.MethodGet, "/x", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "streamed") {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), domain.ErrBadRequest.Code) {
		t.Error("error envelope appended to committed output")
	}
}

func TestConnection_ServesAsResponseWriter(t *testing.T) {
	s := newTestServer(t)
	s.RegisterUnauthHandler(&fnEndpoint{path: "/wrapped", get: func(_ context.Context, c *Connection) (int, error) {
		h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusTeapot)
			w.Write([]byte("short and stout"))
		})
		h.ServeHTTP(c, c.Request())
		return 0, nil
	}})

	rec := serve(s, http.MethodGet, "/wrapped", "")
	if rec.Code != http.StatusTeapot || rec.Body.String() != "short and stout" {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "text/plain" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}
