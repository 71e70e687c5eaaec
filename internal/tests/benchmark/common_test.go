package benchmark

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/internal/core/service"
	"github.com/yndnr/statehttpd/internal/server/config"
	"github.com/yndnr/statehttpd/internal/server/httpserver"
	"github.com/yndnr/statehttpd/internal/telemetry/logger"
)

// SessionCounts defines the session counts for benchmarking.
var SessionCounts = []int{1000, 10000, 50000, 100000}

// SmallSessionCounts for quick benchmarks.
var SmallSessionCounts = []int{100, 1000, 10000}

// newStore creates an in-memory session store.
func newStore() *service.SessionStore {
	return service.NewSessionStore(service.WithLogger(logger.Discard()))
}

// prefillStore prefills a store with sessions.
func prefillStore(ctx context.Context, store *service.SessionStore, count int) []*domain.Session {
	sessions := make([]*domain.Session, count)
	for i := 0; i < count; i++ {
		s, err := store.Create(ctx, 24*time.Hour)
		if err != nil {
			panic(fmt.Sprintf("create session: %v", err))
		}
		sessions[i] = s
	}
	return sessions
}

func benchConfig() config.HTTPDSection {
	return config.HTTPDSection{
		Addr:           "127.0.0.1:0",
		Username:       "admin",
		Password:       "secret",
		Realm:          "bench",
		SessionCookie:  "KISMET",
		SessionTimeout: time.Hour,
		DefaultMime:    "text/html",
	}
}

// newServer creates a server backed by store.
func newServer(store *service.SessionStore) *httpserver.Server {
	return httpserver.New(benchConfig(),
		httpserver.WithLogger(logger.Discard()),
		httpserver.WithSessionStore(store),
	)
}

// doRequest serves one request and fails the benchmark on an unexpected
// status.
func doRequest(b *testing.B, srv *httpserver.Server, req *http.Request, want int) {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != want {
		b.Fatalf("%s %s: status %d, want %d: %s", req.Method, req.URL.Path, rec.Code, want, rec.Body.String())
	}
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.HeapAlloc)/1024/1024, prefix+"_heap_MB")
}
