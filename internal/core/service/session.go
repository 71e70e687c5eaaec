package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/pkg/token"
)

// SessionRepository persists the full session set.
type SessionRepository interface {
	// Load returns every persisted session.
	Load(ctx context.Context) ([]*domain.Session, error)

	// Save replaces the persisted set with sessions.
	Save(ctx context.Context, sessions []*domain.Session) error
}

// SessionObserver is notified with the active session count after each
// mutation. Used for metrics.
type SessionObserver func(active int)

// SessionStore holds login sessions keyed by id.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	dirty    bool
	gen      uint64

	// writeMu orders repository writes; written is the last persisted generation.
	writeMu sync.Mutex
	written uint64

	repo     SessionRepository
	now      func() time.Time
	logger   *slog.Logger
	observer SessionObserver

	// lifeMu guards stopCh across Start/Close cycles.
	lifeMu        sync.Mutex
	sweepInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithRepository sets the persistence backend.
func WithRepository(repo SessionRepository) SessionOption {
	return func(s *SessionStore) { s.repo = repo }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *SessionStore) { s.logger = logger }
}

// WithObserver registers a callback receiving the active session count.
func WithObserver(fn SessionObserver) SessionOption {
	return func(s *SessionStore) { s.observer = fn }
}

// WithSweepInterval enables a background janitor purging expired sessions.
// Zero disables it; expiry is then only enforced on lookup.
func WithSweepInterval(d time.Duration) SessionOption {
	return func(s *SessionStore) { s.sweepInterval = d }
}

// NewSessionStore creates an empty store.
func NewSessionStore(opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory map with the repository contents.
// Sessions already expired at load time are dropped.
func (s *SessionStore) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	loaded, err := s.repo.Load(ctx)
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}

	now := s.now()
	s.mu.Lock()
	s.sessions = make(map[string]*domain.Session, len(loaded))
	dropped := 0
	for _, sess := range loaded {
		if sess == nil || sess.ID == "" {
			continue
		}
		if !sess.Valid(now) {
			dropped++
			continue
		}
		s.sessions[sess.ID] = sess.Clone()
	}
	s.dirty = dropped > 0
	count := len(s.sessions)
	s.mu.Unlock()

	s.logger.Info("sessions loaded", "count", count, "expired", dropped)
	s.notify(count)
	return nil
}

// Create issues a new session with the given idle lifetime and persists
// the store. A persistence failure is logged; the session stays valid.
func (s *SessionStore) Create(ctx context.Context, lifetime time.Duration) (*domain.Session, error) {
	sess, err := domain.NewSession(s.now(), lifetime)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.markDirtyLocked()
	count := len(s.sessions)
	s.mu.Unlock()

	s.logger.Debug("session created", "session", token.Fingerprint(sess.ID), "lifetime", lifetime)
	s.notify(count)
	s.persist(ctx)
	return sess.Clone(), nil
}

// Find looks up a session. An expired session is removed and reported as
// not found; a valid one has LastSeen refreshed.
func (s *SessionStore) Find(ctx context.Context, id string) (*domain.Session, bool) {
	if id == "" {
		return nil, false
	}

	now := s.now()
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	if !sess.Valid(now) {
		delete(s.sessions, id)
		s.markDirtyLocked()
		count := len(s.sessions)
		s.mu.Unlock()

		s.logger.Debug("session expired", "session", token.Fingerprint(id))
		s.notify(count)
		s.persist(ctx)
		return nil, false
	}
	// The refresh is written at the next mutation or at Close, not per hit.
	sess.Touch(now)
	s.markDirtyLocked()
	out := sess.Clone()
	s.mu.Unlock()
	return out, true
}

// Delete removes a session. It reports whether the id was present.
func (s *SessionStore) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		s.markDirtyLocked()
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.logger.Debug("session deleted", "session", token.Fingerprint(id))
	s.notify(count)
	s.persist(ctx)
	return true
}

// Len returns the number of sessions held in memory, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Dirty reports whether there are unpersisted changes.
func (s *SessionStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Purge removes every expired session and returns how many were removed.
func (s *SessionStore) Purge(ctx context.Context) int {
	now := s.now()
	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if !sess.Valid(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.markDirtyLocked()
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("expired sessions purged", "count", removed)
		s.notify(count)
		s.persist(ctx)
	}
	return removed
}

// WriteSessions persists a consistent snapshot of the map.
//
// The snapshot is taken under the store lock; repository I/O runs outside
// it. A snapshot older than one already written is skipped. Failures leave
// the in-memory state untouched and the store dirty.
func (s *SessionStore) WriteSessions(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	// 1. Snapshot under the map lock
	s.mu.Lock()
	gen := s.gen
	snapshot := make([]*domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		snapshot = append(snapshot, sess.Clone())
	}
	s.mu.Unlock()

	// 2. Write outside it
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if gen < s.written {
		return nil
	}
	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.logger.Error("failed to write sessions", "error", err, "count", len(snapshot))
		return domain.ErrStorage.WithCause(err)
	}
	s.written = gen

	// 3. Clear dirty if nothing changed meanwhile
	s.mu.Lock()
	if s.gen == gen {
		s.dirty = false
	}
	s.mu.Unlock()
	return nil
}

// Start launches the janitor if a sweep interval was configured. A store
// may be started again after Close; a second Start while running is a
// no-op.
func (s *SessionStore) Start() {
	if s.sweepInterval <= 0 {
		return
	}
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.sweepLoop(s.stopCh)
	s.logger.Debug("session janitor started", "interval", s.sweepInterval)
}

// Close stops the janitor and writes the store if it is dirty. Refreshed
// LastSeen times count as dirty, so active sessions survive a restart.
func (s *SessionStore) Close(ctx context.Context) error {
	s.lifeMu.Lock()
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.lifeMu.Unlock()
	s.wg.Wait()

	if !s.Dirty() {
		return nil
	}
	return s.WriteSessions(ctx)
}

func (s *SessionStore) sweepLoop(stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Purge(context.Background())
		case <-stop:
			return
		}
	}
}

func (s *SessionStore) markDirtyLocked() {
	s.dirty = true
	s.gen++
}

func (s *SessionStore) persist(ctx context.Context) {
	// Errors are already logged by WriteSessions and must not block serving.
	_ = s.WriteSessions(ctx)
}

func (s *SessionStore) notify(count int) {
	if s.observer != nil {
		s.observer(count)
	}
}
