package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/internal/core/structured"
)

// Method is the request method kind seen by endpoints. HEAD is treated
// as GET.
type Method int

const (
	MethodGet Method = iota + 1
	MethodPost
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return http.MethodGet
	case MethodPost:
		return http.MethodPost
	default:
		return "UNKNOWN"
	}
}

// Stage is the lifecycle position of a connection.
type Stage int

const (
	StageCreated Stage = iota
	StageStreaming
	StageAccumulating
	StagePostComplete
	StageCompleted
)

func (s Stage) String() string {
	switch s {
	case StageCreated:
		return "created"
	case StageStreaming:
		return "streaming"
	case StageAccumulating:
		return "accumulating"
	case StagePostComplete:
		return "post_complete"
	case StageCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned for out-of-order connection operations.
var ErrInvalidTransition = errors.New("httpserver: invalid connection state transition")

const outputBufferSize = 32 << 10

// Connection is the per-request context threaded through dispatch.
//
// It implements http.ResponseWriter. Output is buffered; headers are
// committed with the status in HTTPCode on the first flush to the client.
type Connection struct {
	URL              string
	MimeURL          string
	Method           Method
	HTTPCode         int
	OptionalFilename string

	// Session is set once the request is authenticated by cookie or
	// credentials.
	Session *domain.Session

	server *Server
	req    *http.Request
	rw     http.ResponseWriter
	out    *bufio.Writer

	headersSent bool
	finalized   bool
	cookieSet   bool

	stage    Stage
	body     bytes.Buffer
	doc      *structured.Document
	vars     *VariableCache
	endpoint Endpoint
	route    string
	start    time.Time

	lock  sync.Mutex
	mu    sync.Mutex
	held  []sync.Locker
	slots map[Endpoint]any

	completeOnce sync.Once
}

func newConnection(s *Server, w http.ResponseWriter, r *http.Request) *Connection {
	c := &Connection{
		HTTPCode: http.StatusOK,
		server:   s,
		req:      r,
		rw:       w,
		stage:    StageCreated,
		vars:     newVariableCache(nil),
		route:    "none",
		start:    time.Now(),
	}
	c.out = bufio.NewWriterSize(commitWriter{c}, outputBufferSize)
	return c
}

// commitWriter sends headers before the first body byte reaches the client.
type commitWriter struct{ c *Connection }

func (w commitWriter) Write(p []byte) (int, error) {
	w.c.sendHeaders()
	return w.c.rw.Write(p)
}

// Request returns the underlying request.
func (c *Connection) Request() *http.Request { return c.req }

// Context returns the request context.
func (c *Connection) Context() context.Context { return c.req.Context() }

// Server returns the owning server.
func (c *Connection) Server() *Server { return c.server }

// Stage returns the lifecycle stage.
func (c *Connection) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Endpoint returns the bound endpoint, or nil.
func (c *Connection) Endpoint() Endpoint { return c.endpoint }

// Document returns the parsed POST body. It is nil before post-complete.
func (c *Connection) Document() *structured.Document { return c.doc }

// Variables returns the cached POST fields.
func (c *Connection) Variables() *VariableCache { return c.vars }

// HasCachedVariable reports whether the POST body carried key.
func (c *Connection) HasCachedVariable(key string) bool { return c.vars.Has(key) }

func (c *Connection) transition(from, to Stage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != from {
		return fmt.Errorf("%w: %s -> %s from %s", ErrInvalidTransition, from, to, c.stage)
	}
	c.stage = to
	return nil
}

// Header implements http.ResponseWriter.
func (c *Connection) Header() http.Header { return c.rw.Header() }

// WriteHeader records the status. It takes effect only until headers are
// committed.
func (c *Connection) WriteHeader(code int) {
	if !c.headersSent {
		c.HTTPCode = code
	}
}

// Write implements http.ResponseWriter. The first write finalizes the
// response headers if the endpoint has not.
func (c *Connection) Write(p []byte) (int, error) {
	if !c.finalized {
		c.Finalize(false)
	}
	return c.out.Write(p)
}

// Flush pushes buffered output to the client, committing headers.
func (c *Connection) Flush() {
	c.sendHeaders()
	if err := c.out.Flush(); err != nil {
		return
	}
	if f, ok := c.rw.(http.Flusher); ok {
		f.Flush()
	}
}

func (c *Connection) sendHeaders() {
	if c.headersSent {
		return
	}
	c.headersSent = true
	c.rw.WriteHeader(c.HTTPCode)
}

// discardOutput drops buffered output so an error response can replace
// it. It fails once anything has reached the client.
func (c *Connection) discardOutput() bool {
	if c.headersSent {
		return false
	}
	c.out.Reset(commitWriter{c})
	return true
}

// Finalize appends the standard response headers: timestamp, content
// type from MimeURL, attachment filename and, when refreshCookie is set
// and the request carries a session, a renewed session cookie. It runs
// once per request and reports whether this call did the work.
func (c *Connection) Finalize(refreshCookie bool) bool {
	if c.finalized {
		return false
	}
	c.finalized = true

	h := c.rw.Header()
	h.Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	h.Set("Cache-Control", "no-cache")
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", c.server.mime.ForPath(c.MimeURL))
	}
	if c.OptionalFilename != "" {
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
			"filename": c.OptionalFilename,
		}))
	}
	if refreshCookie && c.Session != nil && !c.cookieSet {
		h.Add("Set-Cookie", c.server.sessionCookie(c.Session.ID, c.Session.Lifetime).String())
		c.cookieSet = true
	}
	return true
}

// Lock takes the connection's exclusive lock.
func (c *Connection) Lock() { c.lock.Lock() }

// Unlock releases the connection's exclusive lock.
func (c *Connection) Unlock() { c.lock.Unlock() }

// AcquireLock takes l on behalf of this connection. Locks still held when
// the connection completes are released then.
func (c *Connection) AcquireLock(l sync.Locker) {
	if l == nil {
		return
	}
	l.Lock()
	c.mu.Lock()
	c.held = append(c.held, l)
	c.mu.Unlock()
}

// ReleaseLock releases a lock taken with AcquireLock. Unknown locks are
// ignored.
func (c *Connection) ReleaseLock(l sync.Locker) {
	if l == nil {
		return
	}
	c.mu.Lock()
	found := false
	for i := len(c.held) - 1; i >= 0; i-- {
		if c.held[i] == l {
			c.held = append(c.held[:i], c.held[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if found {
		l.Unlock()
	}
}

func (c *Connection) releaseAll() {
	c.mu.Lock()
	held := c.held
	c.held = nil
	c.mu.Unlock()
	for i := len(held) - 1; i >= 0; i-- {
		held[i].Unlock()
	}
}

// SetState stores per-endpoint state for the lifetime of the connection.
func (c *Connection) SetState(ep Endpoint, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slots == nil {
		c.slots = make(map[Endpoint]any)
	}
	c.slots[ep] = v
}

// State returns the state stored for ep.
func (c *Connection) State(ep Endpoint) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.slots[ep]
	return v, ok
}

// StateAs returns the state stored for ep if it has type T.
func StateAs[T any](c *Connection, ep Endpoint) (T, bool) {
	var zero T
	v, ok := c.State(ep)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

func (c *Connection) feed(chunk []byte, limit int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != StageAccumulating {
		return fmt.Errorf("%w: feed in %s", ErrInvalidTransition, c.stage)
	}
	if limit > 0 && int64(c.body.Len()+len(chunk)) > limit {
		return domain.ErrBodyTooLarge.WithDetails("limit " + strconv.FormatInt(limit, 10) + " bytes")
	}
	c.body.Write(chunk)
	return nil
}

// parseBody parses the accumulated body once, after the last chunk.
func (c *Connection) parseBody() error {
	data := c.body.Bytes()

	mediaType, _, _ := mime.ParseMediaType(c.req.Header.Get("Content-Type"))
	var (
		doc *structured.Document
		err error
	)
	switch {
	case mediaType == "application/json", mediaType == "" && looksLikeJSON(data):
		doc, err = structured.Parse(data)
	default:
		doc, err = structured.ParseForm(data)
	}
	if err != nil {
		return err
	}
	c.doc = doc
	c.vars = newVariableCache(doc)
	return nil
}

func looksLikeJSON(data []byte) bool {
	t := bytes.TrimSpace(data)
	return len(t) > 0 && (t[0] == '{' || t[0] == '[')
}
