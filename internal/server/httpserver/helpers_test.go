package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/yndnr/statehttpd/internal/server/config"
	"github.com/yndnr/statehttpd/internal/telemetry/logger"
)

// fnEndpoint matches one exact path and delegates to funcs.
type fnEndpoint struct {
	path   string
	method string
	get    func(ctx context.Context, c *Connection) (int, error)
	post   func(ctx context.Context, c *Connection) (int, error)
}

func (e *fnEndpoint) VerifyPath(p, method string) bool {
	if e.method != "" && e.method != method {
		return false
	}
	return p == e.path
}

func (e *fnEndpoint) CreateStreamResponse(ctx context.Context, c *Connection) (int, error) {
	if e.get == nil {
		return http.StatusOK, nil
	}
	return e.get(ctx, c)
}

func (e *fnEndpoint) PostComplete(ctx context.Context, c *Connection) (int, error) {
	if e.post == nil {
		return http.StatusOK, nil
	}
	return e.post(ctx, c)
}

func text(body string) func(context.Context, *Connection) (int, error) {
	return func(_ context.Context, c *Connection) (int, error) {
		_, err := c.Write([]byte(body))
		return http.StatusOK, err
	}
}

func testConfig() config.HTTPDSection {
	return config.HTTPDSection{
		Addr:           "127.0.0.1:0",
		Username:       "admin",
		Password:       "secret",
		Realm:          "test",
		SessionCookie:  "KISMET",
		SessionTimeout: time.Hour,
		DefaultMime:    "text/html",
	}
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	return newTestServerWith(t, testConfig(), opts...)
}

func newTestServerWith(t *testing.T, cfg config.HTTPDSection, opts ...Option) *Server {
	t.Helper()
	return New(cfg, append([]Option{WithLogger(logger.Discard())}, opts...)...)
}

type reqOpt func(*http.Request)

func withBasic(user, pass string) reqOpt {
	return func(r *http.Request) { r.SetBasicAuth(user, pass) }
}

func withCookie(ck *http.Cookie) reqOpt {
	return func(r *http.Request) { r.AddCookie(ck) }
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func serve(s *Server, method, target, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := gojson.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	t.Fatalf("no %s cookie in %v", name, rec.Header().Values("Set-Cookie"))
	return nil
}
