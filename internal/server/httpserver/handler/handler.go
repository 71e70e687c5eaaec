package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/internal/server/config"
	"github.com/yndnr/statehttpd/internal/server/httpserver"
	"github.com/yndnr/statehttpd/internal/server/httpserver/endpoint"
	"github.com/yndnr/statehttpd/internal/telemetry/metric"
)

// Handler owns the built-in endpoints.
type Handler struct {
	srv        *httpserver.Server
	metrics    *metric.Registry
	metricsCfg config.MetricsSection
	now        func() time.Time
	started    time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics exposes m at /metrics as configured by cfg.
func WithMetrics(m *metric.Registry, cfg config.MetricsSection) Option {
	return func(h *Handler) {
		h.metrics = m
		h.metricsCfg = cfg
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// New creates the built-in endpoints for srv.
func New(srv *httpserver.Server, opts ...Option) *Handler {
	h := &Handler{srv: srv, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	h.started = h.now()
	return h
}

// Register adds every built-in endpoint to the server.
func (h *Handler) Register() {
	h.srv.RegisterUnauthHandler(endpoint.NewUnauthTrackedFunc("/health", h.health, nil))
	h.srv.RegisterUnauthHandler(&builtin{path: "/session/check_session", serve: h.checkSession})
	h.srv.RegisterUnauthHandler(&builtin{path: "/session/check_login", serve: h.checkLogin})
	h.srv.RegisterHandler(&builtin{path: "/session/invalidate", post: true, serve: h.invalidate})
	h.srv.RegisterHandler(endpoint.NewTrackedFunc("/system/status", h.status, nil))

	if h.metrics != nil && h.metricsCfg.Enabled {
		ep := &metricsEndpoint{handler: h.metrics.Handler()}
		if h.metricsCfg.AuthRequired {
			h.srv.RegisterHandler(ep)
		} else {
			h.srv.RegisterUnauthHandler(ep)
		}
	}
}

// builtin is a fixed-path endpoint whose result depends on the
// connection. A nil result with a nil error means serve already wrote
// the response.
type builtin struct {
	path  string
	post  bool
	serve func(ctx context.Context, conn *httpserver.Connection) (any, error)
}

func (b *builtin) VerifyPath(path, method string) bool {
	if b.post != (method == http.MethodPost) {
		return false
	}
	return httpserver.HasSerializer(httpserver.GetSuffix(path)) && httpserver.StripSuffix(path) == b.path
}

func (b *builtin) CreateStreamResponse(ctx context.Context, conn *httpserver.Connection) (int, error) {
	if b.post {
		return 0, domain.ErrMethodNotAllowed
	}
	return b.reply(ctx, conn)
}

func (b *builtin) PostComplete(ctx context.Context, conn *httpserver.Connection) (int, error) {
	if !b.post {
		return 0, domain.ErrMethodNotAllowed
	}
	return b.reply(ctx, conn)
}

func (b *builtin) reply(ctx context.Context, conn *httpserver.Connection) (int, error) {
	v, err := b.serve(ctx, conn)
	if err != nil || v == nil {
		return 0, err
	}
	return endpoint.WriteValue(conn, v, nil, true)
}
