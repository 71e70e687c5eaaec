package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/pkg/crypto/adaptive"
)

// sessionFileAAD binds sealed session files to their purpose.
var sessionFileAAD = []byte("statehttpd/sessions/v1")

// sessionRecord is the persisted form of a session.
type sessionRecord struct {
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	LastSeen time.Time `json:"last_seen"`
	Lifetime string    `json:"lifetime"`
}

func toRecord(s *domain.Session) sessionRecord {
	return sessionRecord{
		ID:       s.ID,
		Created:  s.CreatedAt,
		LastSeen: s.LastSeen,
		Lifetime: s.Lifetime.String(),
	}
}

func (r sessionRecord) session() (*domain.Session, error) {
	lifetime, err := time.ParseDuration(r.Lifetime)
	if err != nil {
		return nil, fmt.Errorf("session lifetime %q: %w", r.Lifetime, err)
	}
	return &domain.Session{
		ID:        r.ID,
		CreatedAt: r.Created,
		LastSeen:  r.LastSeen,
		Lifetime:  lifetime,
	}, nil
}

type sessionFile struct {
	Version  int             `json:"version"`
	Sessions []sessionRecord `json:"sessions"`
}

// FileSessionStore persists sessions to a single file.
type FileSessionStore struct {
	mu     sync.Mutex
	path   string
	key    []byte
	logger *slog.Logger
}

// NewFileSessionStore creates a file-backed repository. A non-nil key
// seals the file contents.
func NewFileSessionStore(path string, key []byte, logger *slog.Logger) *FileSessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSessionStore{path: path, key: key, logger: logger}
}

// Path returns the backing file path.
func (s *FileSessionStore) Path() string {
	return s.path
}

// Load reads the session file. A missing file is an empty store.
func (s *FileSessionStore) Load(ctx context.Context) ([]*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("session file not found, starting empty", "path", s.path)
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	if runtime.GOOS != "windows" {
		if info, statErr := os.Stat(s.path); statErr == nil && info.Mode().Perm()&0077 != 0 {
			s.logger.Warn("session file has too-open permissions, should be 0600",
				"path", s.path, "current_mode", fmt.Sprintf("%04o", info.Mode().Perm()))
		}
	}

	switch {
	case adaptive.IsSealed(data):
		if s.key == nil {
			return nil, errors.New("session file is encrypted but no key is configured")
		}
		data, err = adaptive.Open(s.key, data, sessionFileAAD)
		if err != nil {
			return nil, fmt.Errorf("decrypt session file: %w", err)
		}
	case s.key != nil:
		s.logger.Warn("session file is not encrypted, it will be sealed on next write", "path", s.path)
	}

	var file sessionFile
	if err := gojson.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}

	out := make([]*domain.Session, 0, len(file.Sessions))
	for _, r := range file.Sessions {
		sess, err := r.session()
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// Save atomically replaces the session file: tmp file, fsync, rename.
func (s *FileSessionStore) Save(ctx context.Context, sessions []*domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := sessionFile{Version: 1, Sessions: make([]sessionRecord, 0, len(sessions))}
	for _, sess := range sessions {
		file.Sessions = append(file.Sessions, toRecord(sess))
	}
	data, err := gojson.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	data = append(data, '\n')

	if s.key != nil {
		data, err = adaptive.Seal(s.key, data, sessionFileAAD)
		if err != nil {
			return fmt.Errorf("encrypt sessions: %w", err)
		}
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	if err := s.writeAtomic(data); err != nil {
		return err
	}

	s.logger.Debug("sessions saved", "path", s.path, "count", len(sessions))
	return nil
}

func (s *FileSessionStore) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
