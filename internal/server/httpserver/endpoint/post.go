package endpoint

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/yndnr/statehttpd/internal/core/structured"
	"github.com/yndnr/statehttpd/internal/server/httpserver"
)

// PostFunc handles a complete POST body. It writes the response to w and
// returns the status. Errors such as a failed variable conversion become
// error responses.
type PostFunc func(w io.Writer, uri string, doc *structured.Document, vars *httpserver.VariableCache) (int, error)

// PathPostFunc is PostFunc with the path split into segments.
type PathPostFunc func(w io.Writer, uri string, segments []string, doc *structured.Document, vars *httpserver.VariableCache) (int, error)

// Post is a POST-only endpoint at one fixed URI.
type Post struct {
	uri  string
	fn   PostFunc
	lock sync.Locker
}

// NewPost builds a POST endpoint. lock, if non-nil, is held while fn runs.
func NewPost(uri string, fn PostFunc, lock sync.Locker) *Post {
	return &Post{uri: httpserver.StripSuffix(uri), fn: fn, lock: lock}
}

// VerifyPath matches POST to the URI.
func (p *Post) VerifyPath(path, method string) bool {
	return method == http.MethodPost && httpserver.StripSuffix(path) == p.uri
}

// CreateStreamResponse is never reached through dispatch.
func (p *Post) CreateStreamResponse(context.Context, *httpserver.Connection) (int, error) {
	return methodNotAllowed()
}

// PostComplete runs the handler on the parsed body.
func (p *Post) PostComplete(_ context.Context, conn *httpserver.Connection) (int, error) {
	conn.AcquireLock(p.lock)
	defer conn.ReleaseLock(p.lock)

	conn.Finalize(true)
	return p.fn(conn, conn.URL, conn.Document(), conn.Variables())
}

// PathPost is a POST-only endpoint matched over path segments.
type PathPost struct {
	match PathMatcher
	fn    PathPostFunc
	lock  sync.Locker
}

// NewPathPost builds a path-parameterized POST endpoint.
func NewPathPost(match PathMatcher, fn PathPostFunc, lock sync.Locker) *PathPost {
	return &PathPost{match: match, fn: fn, lock: lock}
}

// VerifyPath delegates to the matcher for POST requests.
func (p *PathPost) VerifyPath(path, method string) bool {
	if method != http.MethodPost {
		return false
	}
	return p.match(httpserver.PathSegments(httpserver.StripSuffix(path)))
}

// CreateStreamResponse is never reached through dispatch.
func (p *PathPost) CreateStreamResponse(context.Context, *httpserver.Connection) (int, error) {
	return methodNotAllowed()
}

// PostComplete runs the handler on the parsed body.
func (p *PathPost) PostComplete(_ context.Context, conn *httpserver.Connection) (int, error) {
	conn.AcquireLock(p.lock)
	defer conn.ReleaseLock(p.lock)

	conn.Finalize(true)
	segs := httpserver.PathSegments(httpserver.StripSuffix(conn.URL))
	return p.fn(conn, conn.URL, segs, conn.Document(), conn.Variables())
}
