package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/yndnr/statehttpd/internal/core/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memRepo struct {
	mu    sync.Mutex
	saved []*domain.Session
	saves int
	err   error
}

func (r *memRepo) Load(ctx context.Context) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Session, len(r.saved))
	for i, s := range r.saved {
		out[i] = s.Clone()
	}
	return out, nil
}

func (r *memRepo) Save(ctx context.Context, sessions []*domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.err != nil {
		return r.err
	}
	r.saved = sessions
	return nil
}

func TestSessionStore_CreateFind(t *testing.T) {
	clock := newFakeClock()
	store := NewSessionStore(WithClock(clock.Now))
	ctx := context.Background()

	sess, err := store.Create(ctx, 10*time.Second)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, ok := store.Find(ctx, sess.ID)
	if !ok {
		t.Fatal("Find() immediately after Create() = not found")
	}
	if got.ID != sess.ID || got.Lifetime != 10*time.Second {
		t.Errorf("Find() = %+v, want %+v", got, sess)
	}
}

func TestSessionStore_LazyExpiry(t *testing.T) {
	clock := newFakeClock()
	store := NewSessionStore(WithClock(clock.Now))
	ctx := context.Background()

	sess, _ := store.Create(ctx, 10*time.Second)

	clock.Advance(11 * time.Second)
	if _, ok := store.Find(ctx, sess.ID); ok {
		t.Fatal("Find() returned an expired session")
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after expired lookup", store.Len())
	}
}

func TestSessionStore_FindRefreshesLastSeen(t *testing.T) {
	clock := newFakeClock()
	store := NewSessionStore(WithClock(clock.Now))
	ctx := context.Background()

	sess, _ := store.Create(ctx, 10*time.Second)
	for i := 0; i < 3; i++ {
		clock.Advance(8 * time.Second)
		if _, ok := store.Find(ctx, sess.ID); !ok {
			t.Fatalf("Find() #%d failed; lookup should extend the idle timeout", i)
		}
	}
}

func TestSessionStore_Delete(t *testing.T) {
	repo := &memRepo{}
	store := NewSessionStore(WithRepository(repo))
	ctx := context.Background()

	sess, _ := store.Create(ctx, time.Minute)
	if !store.Delete(ctx, sess.ID) {
		t.Fatal("Delete() = false for existing session")
	}
	if store.Delete(ctx, sess.ID) {
		t.Error("Delete() = true for already deleted session")
	}
	if _, ok := store.Find(ctx, sess.ID); ok {
		t.Error("Find() returned a deleted session")
	}
	if len(repo.saved) != 0 {
		t.Errorf("repository holds %d sessions after delete, want 0", len(repo.saved))
	}
}

func TestSessionStore_WriteAndReload(t *testing.T) {
	clock := newFakeClock()
	repo := &memRepo{}
	ctx := context.Background()
	store := NewSessionStore(WithRepository(repo), WithClock(clock.Now))

	a, _ := store.Create(ctx, time.Minute)
	b, _ := store.Create(ctx, time.Hour)
	if err := store.WriteSessions(ctx); err != nil {
		t.Fatalf("WriteSessions() error = %v", err)
	}

	reloaded := NewSessionStore(WithRepository(repo), WithClock(clock.Now))
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for _, want := range []*domain.Session{a, b} {
		got, ok := reloaded.Find(ctx, want.ID)
		if !ok {
			t.Fatalf("session %s missing after reload", want.ID)
		}
		if !got.CreatedAt.Equal(want.CreatedAt) || got.Lifetime != want.Lifetime {
			t.Errorf("reloaded %+v, want %+v", got, want)
		}
	}
}

func TestSessionStore_LoadDropsExpired(t *testing.T) {
	clock := newFakeClock()
	repo := &memRepo{}
	ctx := context.Background()
	store := NewSessionStore(WithRepository(repo), WithClock(clock.Now))

	short, _ := store.Create(ctx, time.Second)
	long, _ := store.Create(ctx, time.Hour)

	clock.Advance(time.Minute)
	reloaded := NewSessionStore(WithRepository(repo), WithClock(clock.Now))
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := reloaded.Find(ctx, short.ID); ok {
		t.Error("expired session survived reload")
	}
	if _, ok := reloaded.Find(ctx, long.ID); !ok {
		t.Error("valid session lost on reload")
	}
}

func TestSessionStore_WriteFailureKeepsMemory(t *testing.T) {
	repo := &memRepo{err: errors.New("disk full")}
	store := NewSessionStore(WithRepository(repo))
	ctx := context.Background()

	sess, err := store.Create(ctx, time.Minute)
	if err != nil {
		t.Fatalf("Create() should not fail on persistence error: %v", err)
	}
	if _, ok := store.Find(ctx, sess.ID); !ok {
		t.Error("session rolled back after write failure")
	}
	if !store.Dirty() {
		t.Error("store should stay dirty after failed write")
	}
	if err := store.WriteSessions(ctx); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("WriteSessions() error = %v, want %s", err, domain.ErrStorage.Code)
	}

	repo.mu.Lock()
	repo.err = nil
	repo.mu.Unlock()
	if err := store.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if store.Dirty() {
		t.Error("Close() should flush a dirty store")
	}
}

func TestSessionStore_Purge(t *testing.T) {
	clock := newFakeClock()
	store := NewSessionStore(WithClock(clock.Now))
	ctx := context.Background()

	store.Create(ctx, time.Second)
	store.Create(ctx, time.Second)
	keep, _ := store.Create(ctx, time.Hour)

	clock.Advance(time.Minute)
	if n := store.Purge(ctx); n != 2 {
		t.Errorf("Purge() = %d, want 2", n)
	}
	if _, ok := store.Find(ctx, keep.ID); !ok {
		t.Error("Purge() removed a valid session")
	}
}

func TestSessionStore_Observer(t *testing.T) {
	var last int
	store := NewSessionStore(WithObserver(func(n int) { last = n }))
	ctx := context.Background()

	a, _ := store.Create(ctx, time.Minute)
	store.Create(ctx, time.Minute)
	if last != 2 {
		t.Errorf("observer count = %d, want 2", last)
	}
	store.Delete(ctx, a.ID)
	if last != 1 {
		t.Errorf("observer count = %d, want 1", last)
	}
}

func TestSessionStore_Janitor(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	store := NewSessionStore(WithClock(clock.Now), WithSweepInterval(5*time.Millisecond))
	ctx := context.Background()

	store.Create(ctx, time.Second)
	clock.Advance(time.Minute)
	store.Start()

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.Len() != 0 {
		t.Error("janitor did not purge expired session")
	}
	if err := store.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestSessionStore_Concurrent(t *testing.T) {
	repo := &memRepo{}
	store := NewSessionStore(WithRepository(repo))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s, err := store.Create(ctx, time.Minute)
				if err != nil {
					t.Errorf("Create() error = %v", err)
					return
				}
				if _, ok := store.Find(ctx, s.ID); !ok {
					t.Error("Find() lost a fresh session")
				}
				if j%2 == 0 {
					store.Delete(ctx, s.ID)
				}
			}
		}()
	}
	wg.Wait()

	if got := store.Len(); got != 16*10 {
		t.Errorf("Len() = %d, want %d", got, 16*10)
	}
	if err := store.WriteSessions(ctx); err != nil {
		t.Fatalf("WriteSessions() error = %v", err)
	}
	if len(repo.saved) != 16*10 {
		t.Errorf("persisted %d sessions, want %d", len(repo.saved), 16*10)
	}
}

func TestSessionStore_RefreshSurvivesRestart(t *testing.T) {
	clock := newFakeClock()
	repo := &memRepo{}
	ctx := context.Background()

	store := NewSessionStore(WithRepository(repo), WithClock(clock.Now))
	sess, err := store.Create(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	clock.Advance(50 * time.Minute)
	if _, ok := store.Find(ctx, sess.ID); !ok {
		t.Fatal("session expired early")
	}
	if !store.Dirty() {
		t.Error("refresh should leave the store dirty")
	}
	clock.Advance(20 * time.Minute)
	if _, ok := store.Find(ctx, sess.ID); !ok {
		t.Fatal("refreshed session expired")
	}
	if err := store.Close(ctx); err != nil {
		t.Fatal(err)
	}

	reloaded := NewSessionStore(WithRepository(repo), WithClock(clock.Now))
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	got, ok := reloaded.Find(ctx, sess.ID)
	if !ok {
		t.Fatal("active session lost across restart")
	}
	if want := sess.CreatedAt.Add(70 * time.Minute); !got.LastSeen.Equal(want) {
		t.Errorf("LastSeen = %v, want %v", got.LastSeen, want)
	}
}

func TestSessionStore_JanitorRestart(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	store := NewSessionStore(WithClock(clock.Now), WithSweepInterval(5*time.Millisecond))
	ctx := context.Background()

	store.Start()
	store.Start()
	if err := store.Close(ctx); err != nil {
		t.Fatal(err)
	}

	store.Create(ctx, time.Second)
	clock.Advance(time.Minute)
	store.Start()
	defer store.Close(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.Len() != 0 {
		t.Error("janitor did not run after restart")
	}
}
