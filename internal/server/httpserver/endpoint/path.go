package endpoint

import (
	"context"
	"net/http"
	"sync"

	"github.com/yndnr/statehttpd/internal/server/httpserver"
)

// PathMatcher decides whether the path segments address this endpoint.
// It must be cheap and free of side effects.
type PathMatcher func(segments []string) bool

// PathGenerator produces the value addressed by the path segments.
type PathGenerator func(segments []string) (any, error)

// PathTracked serves values addressed by path segments, such as
// /devices/by-key/<key>/device.
type PathTracked struct {
	match PathMatcher
	gen   PathGenerator
	lock  sync.Locker
}

// NewPathTracked builds a path-parameterized endpoint. Segments exclude
// the format suffix.
func NewPathTracked(match PathMatcher, gen PathGenerator, lock sync.Locker) *PathTracked {
	return &PathTracked{match: match, gen: gen, lock: lock}
}

// VerifyPath delegates to the matcher.
func (p *PathTracked) VerifyPath(path, method string) bool {
	if method != http.MethodGet && method != http.MethodPost {
		return false
	}
	if !httpserver.HasSerializer(httpserver.GetSuffix(path)) {
		return false
	}
	return p.match(httpserver.PathSegments(httpserver.StripSuffix(path)))
}

// CreateStreamResponse serializes the addressed value.
func (p *PathTracked) CreateStreamResponse(_ context.Context, conn *httpserver.Connection) (int, error) {
	return respond(conn, p.generator(conn), p.lock, true, nil)
}

// PostComplete serializes the addressed value summarized by the posted
// document.
func (p *PathTracked) PostComplete(_ context.Context, conn *httpserver.Connection) (int, error) {
	return respond(conn, p.generator(conn), p.lock, true, conn.Document())
}

func (p *PathTracked) generator(conn *httpserver.Connection) Generator {
	segs := httpserver.PathSegments(httpserver.StripSuffix(conn.URL))
	return func() (any, error) { return p.gen(segs) }
}
