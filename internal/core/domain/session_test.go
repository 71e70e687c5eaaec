package domain

import (
	"testing"
	"time"
)

func TestNewSession(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s, err := NewSession(now, time.Hour)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if len(s.ID) != 43 {
		t.Errorf("len(ID) = %d, want 43", len(s.ID))
	}
	if !s.CreatedAt.Equal(now) || !s.LastSeen.Equal(now) {
		t.Errorf("timestamps = %v/%v, want %v", s.CreatedAt, s.LastSeen, now)
	}
	if s.Lifetime != time.Hour {
		t.Errorf("Lifetime = %v, want %v", s.Lifetime, time.Hour)
	}

	other, _ := NewSession(now, time.Hour)
	if other.ID == s.ID {
		t.Error("two sessions share an id")
	}
}

func TestSession_Valid(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	s := &Session{ID: "x", CreatedAt: base, LastSeen: base, Lifetime: 10 * time.Second}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"at creation", base, true},
		{"inside lifetime", base.Add(5 * time.Second), true},
		{"exactly at boundary", base.Add(10 * time.Second), true},
		{"past boundary", base.Add(10*time.Second + time.Nanosecond), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Valid(tt.at); got != tt.want {
				t.Errorf("Valid(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestSession_TouchExtends(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	s := &Session{ID: "x", CreatedAt: base, LastSeen: base, Lifetime: 10 * time.Second}

	s.Touch(base.Add(8 * time.Second))
	if !s.Valid(base.Add(15 * time.Second)) {
		t.Error("Touch() did not extend the session")
	}
	if !s.CreatedAt.Equal(base) {
		t.Error("Touch() modified CreatedAt")
	}
}

func TestSession_Clone(t *testing.T) {
	s := &Session{ID: "x", Lifetime: time.Minute}
	c := s.Clone()
	c.Lifetime = time.Hour
	if s.Lifetime != time.Minute {
		t.Error("Clone() shares state with original")
	}
	var nilSession *Session
	if nilSession.Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}
