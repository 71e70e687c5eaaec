package domain

import (
	"time"

	"github.com/yndnr/statehttpd/pkg/token"
)

// Session is an authenticated login session referenced by a cookie.
//
// A session is valid while now <= LastSeen + Lifetime. LastSeen moves
// forward on every successful lookup, so the lifetime is an idle timeout.
type Session struct {
	// ID is 32 random bytes, Base64 RawURL encoded.
	ID string `json:"id"`

	// CreatedAt is when the session was first issued.
	CreatedAt time.Time `json:"created_at"`

	// LastSeen is the last successful validation.
	LastSeen time.Time `json:"last_seen"`

	// Lifetime is the idle timeout.
	Lifetime time.Duration `json:"lifetime"`
}

// NewSession creates a session with a fresh random id.
func NewSession(now time.Time, lifetime time.Duration) (*Session, error) {
	id, err := token.Generate()
	if err != nil {
		return nil, ErrInternalServer.WithCause(err)
	}
	return &Session{
		ID:        id,
		CreatedAt: now,
		LastSeen:  now,
		Lifetime:  lifetime,
	}, nil
}

// ExpiresAt returns the instant after which the session is invalid.
func (s *Session) ExpiresAt() time.Time {
	return s.LastSeen.Add(s.Lifetime)
}

// Valid reports whether the session is still usable at now.
func (s *Session) Valid(now time.Time) bool {
	return !now.After(s.ExpiresAt())
}

// Touch refreshes LastSeen.
func (s *Session) Touch(now time.Time) {
	s.LastSeen = now
}

// Clone returns a copy safe to hand outside the store lock.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
