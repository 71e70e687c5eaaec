package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/internal/infra/buildinfo"
	"github.com/yndnr/statehttpd/internal/server/httpserver"
)

// Health is the /health body.
type Health struct {
	Status string `json:"status" yaml:"status"`
	Time   string `json:"time" yaml:"time"`
}

func (h *Handler) health() (any, error) {
	return Health{Status: "healthy", Time: h.now().UTC().Format(time.RFC3339)}, nil
}

// Status is the /system/status body.
type Status struct {
	Build         buildinfo.Info `json:"build" yaml:"build"`
	StartTime     string         `json:"start_time" yaml:"start_time"`
	UptimeSeconds int64          `json:"uptime_seconds" yaml:"uptime_seconds"`
	Sessions      int            `json:"sessions" yaml:"sessions"`
	Goroutines    int            `json:"goroutines" yaml:"goroutines"`
	Port          int            `json:"port" yaml:"port"`
	TLS           bool           `json:"tls" yaml:"tls"`
}

func (h *Handler) status() (any, error) {
	return Status{
		Build:         buildinfo.Get(),
		StartTime:     h.started.UTC().Format(time.RFC3339),
		UptimeSeconds: int64(h.now().Sub(h.started) / time.Second),
		Sessions:      h.srv.Sessions().Len(),
		Goroutines:    runtime.NumGoroutine(),
		Port:          h.srv.Port(),
		TLS:           h.srv.UsingTLS(),
	}, nil
}

// metricsEndpoint serves the Prometheus exposition through the
// connection.
type metricsEndpoint struct {
	handler http.Handler
}

func (m *metricsEndpoint) VerifyPath(path, method string) bool {
	return method == http.MethodGet && path == "/metrics"
}

func (m *metricsEndpoint) CreateStreamResponse(_ context.Context, conn *httpserver.Connection) (int, error) {
	m.handler.ServeHTTP(conn, conn.Request())
	return 0, nil
}

func (m *metricsEndpoint) PostComplete(context.Context, *httpserver.Connection) (int, error) {
	return 0, domain.ErrMethodNotAllowed
}
