package endpoint

import (
	"context"
	"net/http"
	"sync"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/internal/core/structured"
	"github.com/yndnr/statehttpd/internal/core/summarize"
	"github.com/yndnr/statehttpd/internal/server/httpserver"
)

// Generator produces the current value of a tracked object.
type Generator func() (any, error)

// Content returns a Generator that always yields v. v is read at
// request time, under the endpoint lock.
func Content(v any) Generator {
	return func() (any, error) { return v, nil }
}

// Tracked serves a value at one fixed URI.
type Tracked struct {
	uri      string
	gen      Generator
	lock     sync.Locker
	standard bool
}

// NewTracked serves content at uri. lock, if non-nil, guards content
// while it is read and serialized.
func NewTracked(uri string, content any, lock sync.Locker) *Tracked {
	return NewTrackedFunc(uri, Content(content), lock)
}

// NewTrackedFunc serves the result of gen at uri.
func NewTrackedFunc(uri string, gen Generator, lock sync.Locker) *Tracked {
	return &Tracked{uri: httpserver.StripSuffix(uri), gen: gen, lock: lock, standard: true}
}

// NewUnauthTracked is NewTracked for the unauthenticated registry.
func NewUnauthTracked(uri string, content any, lock sync.Locker) *Tracked {
	return NewUnauthTrackedFunc(uri, Content(content), lock)
}

// NewUnauthTrackedFunc is NewTrackedFunc for the unauthenticated
// registry.
func NewUnauthTrackedFunc(uri string, gen Generator, lock sync.Locker) *Tracked {
	t := NewTrackedFunc(uri, gen, lock)
	t.standard = false
	return t
}

// URI returns the matched path without suffix.
func (t *Tracked) URI() string { return t.uri }

// VerifyPath matches the URI with any known format suffix.
func (t *Tracked) VerifyPath(path, method string) bool {
	if method != http.MethodGet && method != http.MethodPost {
		return false
	}
	return httpserver.HasSerializer(httpserver.GetSuffix(path)) && httpserver.StripSuffix(path) == t.uri
}

// CreateStreamResponse serializes the current value.
func (t *Tracked) CreateStreamResponse(_ context.Context, conn *httpserver.Connection) (int, error) {
	return respond(conn, t.gen, t.lock, t.standard, nil)
}

// PostComplete serializes the value summarized by the posted document.
func (t *Tracked) PostComplete(_ context.Context, conn *httpserver.Connection) (int, error) {
	return respond(conn, t.gen, t.lock, t.standard, conn.Document())
}

// respond runs generation and serialization under lock.
func respond(conn *httpserver.Connection, gen Generator, lock sync.Locker, standard bool, spec *structured.Document) (int, error) {
	conn.AcquireLock(lock)
	defer conn.ReleaseLock(lock)

	v, err := gen()
	if err != nil {
		return 0, err
	}

	var renames summarize.RenameMap
	if spec != nil {
		v, renames, err = summarize.Summarize(v, spec)
		if err != nil {
			return 0, err
		}
	}

	return WriteValue(conn, v, renames, standard)
}

// WriteValue serializes v in the format named by the request suffix,
// JSON when there is none. refreshCookie renews the session cookie.
func WriteValue(conn *httpserver.Connection, v any, renames summarize.RenameMap, refreshCookie bool) (int, error) {
	suffix := httpserver.GetSuffix(conn.URL)
	if suffix == "" {
		conn.MimeURL = conn.URL + "." + httpserver.DefaultFormat
	}
	conn.Finalize(refreshCookie)
	if err := httpserver.Serialize(conn, suffix, v, renames); err != nil {
		return 0, err
	}
	return http.StatusOK, nil
}

// methodNotAllowed answers GET on POST-only endpoints.
func methodNotAllowed() (int, error) {
	return 0, domain.ErrMethodNotAllowed.WithDetails("endpoint accepts POST only")
}
