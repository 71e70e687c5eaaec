package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/internal/core/service"
	"github.com/yndnr/statehttpd/internal/infra/tlsroots"
	"github.com/yndnr/statehttpd/internal/server/config"
	"github.com/yndnr/statehttpd/internal/telemetry/metric"
)

// DefaultMaxBodySize caps accumulated POST bodies.
const DefaultMaxBodySize int64 = 8 << 20

// Server is the explicit context shared by every request: registries,
// session store, configuration and lifecycle.
type Server struct {
	cfg      config.HTTPDSection
	logger   *slog.Logger
	metrics  *metric.Registry
	sessions *service.SessionStore
	mime     *MimeTable
	proxies  ProxyList
	reg      registry
	maxBody  int64
	extra    []Middleware
	handler  http.Handler

	mu          sync.Mutex
	httpServer  *http.Server
	certWatcher *tlsroots.Watcher
	serveDone   chan struct{}

	// Read by request handlers while Stop holds mu.
	running   atomic.Bool
	usingTLS  atomic.Bool
	boundAddr atomic.Pointer[string]
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records requests, sessions and panics.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSessionStore replaces the default in-memory session store.
func WithSessionStore(st *service.SessionStore) Option {
	return func(s *Server) { s.sessions = st }
}

// WithMaxBodySize caps POST bodies. Zero or less disables the cap.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// WithMiddleware appends middleware inside the built-in chain.
func WithMiddleware(mw ...Middleware) Option {
	return func(s *Server) { s.extra = append(s.extra, mw...) }
}

// New builds a server from the httpd configuration. Configured aliases,
// mime types and, with ServeFiles, static directories are registered.
func New(cfg config.HTTPDSection, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  slog.Default(),
		maxBody: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = service.NewSessionStore(service.WithLogger(s.logger))
	}

	def := cfg.DefaultMime
	if def == "" {
		def = config.DefaultMimeType
	}
	s.mime = NewMimeTable(def)
	for suffix, mt := range cfg.MimeTypes {
		s.mime.Register(suffix, mt)
	}
	for _, a := range cfg.Aliases {
		s.RegisterAlias(a.Alias, a.Dest)
	}
	if cfg.ServeFiles {
		for _, d := range cfg.StaticDirs {
			s.RegisterStaticDir(d.Prefix, d.Path)
		}
	}

	proxies, err := ParseProxyList(cfg.TrustedProxies)
	if err != nil {
		s.logger.Warn("ignoring trusted proxies", "error", err)
	}
	s.proxies = proxies

	chain := []Middleware{Recover(s.logger, s.metrics), RequestID()}
	if len(cfg.AllowedOrigins) > 0 {
		chain = append(chain, CORS(cfg.AllowedOrigins))
	}
	if cfg.RateLimit > 0 {
		chain = append(chain, RateLimit(cfg.RateLimit, cfg.RateBurst, s.proxies))
	}
	chain = append(chain, Audit(s.logger, s.proxies))
	chain = append(chain, s.extra...)
	s.handler = Chain(http.HandlerFunc(s.serveHTTP), chain...)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Sessions returns the session store.
func (s *Server) Sessions() *service.SessionStore { return s.sessions }

// Config returns the httpd configuration.
func (s *Server) Config() config.HTTPDSection { return s.cfg }

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger { return s.logger }

// Start loads TLS material, listens and serves in the background. A TLS
// load failure aborts the start; the server never falls back to plain
// HTTP when TLS is configured.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return domain.ErrServerRunning
	}

	tlsCfg, err := s.loadTLS()
	if err != nil {
		return err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		if s.certWatcher != nil {
			s.certWatcher.Stop()
			s.certWatcher = nil
		}
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.httpServer = srv
	addr := ln.Addr().String()
	s.boundAddr.Store(&addr)
	s.usingTLS.Store(tlsCfg != nil)
	s.running.Store(true)
	s.serveDone = make(chan struct{})
	s.sessions.Start()

	done := s.serveDone
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", "error", err)
		}
	}()

	s.logger.Info("http server started", "addr", ln.Addr().String(), "tls", tlsCfg != nil)
	return nil
}

func (s *Server) loadTLS() (*tls.Config, error) {
	if s.cfg.TLSCertFile == "" && s.cfg.TLSKeyFile == "" {
		return nil, nil
	}
	if s.cfg.TLSCertFile == "" || s.cfg.TLSKeyFile == "" {
		return nil, domain.ErrTLSLoad.WithDetails("both certificate and key are required")
	}
	if !s.cfg.TLSReload {
		return tlsroots.ServerConfig(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	}
	w, err := tlsroots.NewWatcher(s.cfg.TLSCertFile, s.cfg.TLSKeyFile, tlsroots.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	w.StartAsync()
	s.certWatcher = w
	return w.TLSConfig(), nil
}

// Stop shuts the listener down gracefully, then writes sessions.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return nil
	}

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	<-s.serveDone
	if s.certWatcher != nil {
		s.certWatcher.Stop()
		s.certWatcher = nil
	}
	if err := s.sessions.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	s.running.Store(false)
	s.boundAddr.Store(nil)
	s.logger.Info("http server stopped")
	return errors.Join(errs...)
}

// Running reports whether the server is serving.
func (s *Server) Running() bool { return s.running.Load() }

// UsingTLS reports whether the listener is TLS.
func (s *Server) UsingTLS() bool { return s.usingTLS.Load() }

// Addr returns the bound listen address, or the configured one before
// Start.
func (s *Server) Addr() string {
	if p := s.boundAddr.Load(); p != nil {
		return *p
	}
	return s.cfg.Addr
}

// Port returns the bound port, or the configured port before Start.
func (s *Server) Port() int {
	_, port, err := net.SplitHostPort(s.Addr())
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}
