package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/internal/telemetry/logger"
)

// Signal tells the transport what Begin needs next.
type Signal int

const (
	// SignalDone means the response is already produced; only Complete
	// remains.
	SignalDone Signal = iota
	// SignalBody means the body must be pushed with Feed before Ready.
	SignalBody
	// SignalReady means Ready may be called immediately.
	SignalReady
)

// ChunkSize is the size of body chunks pushed by the net/http adapter.
const ChunkSize = 32 << 10

var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, ChunkSize)
		return &b
	},
}

// Routes reported to metrics.
const (
	routeNone     = "none"
	routeStatic   = "static"
	routeUnauth   = "unauth"
	routeAuth     = "auth"
	routeRejected = "rejected"
)

// Begin resolves the request to a static file, an endpoint, or an error
// response.
func (s *Server) Begin(w http.ResponseWriter, r *http.Request) (*Connection, Signal) {
	c := newConnection(s, w, r)

	p, ok := s.trimPrefix(r.URL.Path)
	if !ok {
		s.writeError(c, domain.ErrNotFound.WithDetails(r.URL.Path))
		return c, SignalDone
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		c.Method = MethodGet
	case http.MethodPost:
		c.Method = MethodPost
	default:
		c.Header().Set("Allow", "GET, HEAD, POST")
		s.writeError(c, domain.ErrMethodNotAllowed.WithDetails(r.Method))
		return c, SignalDone
	}

	p = s.reg.rewrite(p)
	c.URL, c.MimeURL = p, p
	method := c.Method.String()

	if c.Method == MethodGet {
		if dir, rest, ok := s.reg.static(p); ok && s.serveStatic(c, dir, rest) {
			c.route = routeStatic
			return c, SignalDone
		}
	}

	ep := s.reg.match(false, p, method)
	c.route = routeUnauth
	if ep == nil {
		if !s.HasValidSession(c, true) {
			c.route = routeRejected
			return c, SignalDone
		}
		ep = s.reg.match(true, p, method)
		c.route = routeAuth
	}
	if ep == nil {
		c.route = routeNone
		s.writeError(c, domain.ErrNotFound.WithDetails(p))
		return c, SignalDone
	}

	c.endpoint = ep
	if c.Method == MethodPost {
		if err := c.transition(StageCreated, StageAccumulating); err != nil {
			s.writeError(c, err)
			return c, SignalDone
		}
		return c, SignalBody
	}
	return c, SignalReady
}

// Feed appends one body chunk. Chunk boundaries are irrelevant; the body
// is parsed once in Ready.
func (s *Server) Feed(c *Connection, chunk []byte) error {
	return c.feed(chunk, s.maxBody)
}

// Ready produces the response: CreateStreamResponse for GET, or parse the
// body and PostComplete for POST. Endpoint errors and panics become error
// responses here.
func (s *Server) Ready(c *Connection) {
	if c.endpoint == nil {
		return
	}
	switch c.Method {
	case MethodGet:
		if err := c.transition(StageCreated, StageStreaming); err != nil {
			s.logger.Warn("stream rejected", "url", c.URL, "error", err)
			return
		}
		s.invoke(c, c.endpoint.CreateStreamResponse)

	case MethodPost:
		if err := c.transition(StageAccumulating, StagePostComplete); err != nil {
			s.logger.Warn("post completion rejected", "url", c.URL, "error", err)
			return
		}
		if err := c.parseBody(); err != nil {
			s.writeError(c, err)
			return
		}
		s.invoke(c, c.endpoint.PostComplete)
	}
}

// Complete releases the connection: held endpoint locks are dropped,
// output is flushed and the request is recorded. Only the first call has
// any effect.
func (s *Server) Complete(c *Connection) {
	c.completeOnce.Do(func() {
		c.releaseAll()

		if !c.finalized {
			c.Finalize(false)
		}
		c.sendHeaders()
		if err := c.out.Flush(); err != nil {
			s.logger.Debug("flush failed", "url", c.URL, "error", err)
		}

		c.mu.Lock()
		c.stage = StageCompleted
		c.body.Reset()
		c.mu.Unlock()
		c.doc = nil

		s.metrics.ObserveRequest(c.route, c.Method.String(), c.HTTPCode, time.Since(c.start))
	})
}

func (s *Server) reqLogger(c *Connection) *slog.Logger {
	if id := logger.RequestIDFromContext(c.Context()); id != "" {
		return s.logger.With("request_id", id)
	}
	return s.logger
}

type phaseFunc func(ctx context.Context, c *Connection) (int, error)

func (s *Server) invoke(c *Connection, fn phaseFunc) {
	status, err := s.safeCall(c, fn)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if status != 0 {
		c.WriteHeader(status)
	}
}

func (s *Server) safeCall(c *Connection, fn phaseFunc) (status int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.metrics.HandlerPanicked()
			s.reqLogger(c).Error("endpoint panic",
				"url", c.URL,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			err = domain.ErrInternalServer.WithCause(fmt.Errorf("panic: %v", rec))
		}
	}()
	return fn(c.Context(), c)
}

// serveHTTP adapts net/http onto Begin/Feed/Ready/Complete.
func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if s.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}

	c, sig := s.Begin(w, r)
	defer s.Complete(c)

	if sig == SignalBody {
		if err := s.pump(c, r.Body); err != nil {
			return
		}
		sig = SignalReady
	}
	if sig == SignalReady {
		s.Ready(c)
	}
}

func (s *Server) pump(c *Connection, body io.Reader) error {
	bp := chunkPool.Get().(*[]byte)
	defer chunkPool.Put(bp)
	buf := *bp

	for {
		n, err := body.Read(buf)
		if n > 0 {
			if ferr := s.Feed(c, buf[:n]); ferr != nil {
				s.writeError(c, ferr)
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				s.writeError(c, domain.ErrBodyTooLarge)
			} else {
				s.logger.Debug("request body aborted", "url", c.URL, "error", err)
			}
			return err
		}
	}
}

func (s *Server) trimPrefix(p string) (string, bool) {
	prefix := s.cfg.URIPrefix
	if prefix == "" {
		return p, true
	}
	rest, ok := matchPrefix(p, strings.TrimSuffix(prefix, "/"))
	if !ok {
		return "", false
	}
	if rest == "" {
		rest = "/"
	}
	return rest, true
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// errorResponse maps err to a status and envelope. Server errors carry
// no detail; client-derived text is HTML-escaped.
func errorResponse(err error) (int, errorBody) {
	status := domain.HTTPStatus(err)
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return status, errorBody{Code: domain.ErrInternalServer.Code, Message: domain.ErrInternalServer.Message}
	}
	body := errorBody{Code: de.Code, Message: de.Message}
	if status < http.StatusInternalServerError {
		body.Details = EscapeHTML(de.Details)
	}
	return status, body
}

func (s *Server) writeError(c *Connection, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.reqLogger(c).Error("request failed", "url", c.URL, "error", err)
	} else {
		s.reqLogger(c).Debug("request rejected", "url", c.URL, "code", body.Code)
	}

	if !c.discardOutput() {
		s.logger.Warn("error after response committed", "url", c.URL, "error", err)
		return
	}
	c.finalized = true

	h := c.Header()
	h.Del("Content-Disposition")
	h.Del("Content-Length")
	h.Set("Content-Type", "application/json")
	h.Set("X-Error-Code", body.Code)
	c.HTTPCode = status
	if encErr := gojson.NewEncoder(c.out).Encode(body); encErr != nil {
		s.logger.Debug("error response not written", "error", encErr)
	}
}

// writeHTTPError writes an error envelope outside of dispatch, for
// middleware that rejects before a connection exists.
func writeHTTPError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", body.Code)
	w.WriteHeader(status)
	gojson.NewEncoder(w).Encode(body)
}
