package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/flowchat/internal/store"
	"github.com/vovakirdan/flowchat/internal/store/sqlite"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return NewService(st, NewSessions(0))
}

func TestRegister_RejectsInvalidLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	for _, login := range []string{"ab", " ab ", "bad login", "o'neil"} {
		if _, err := svc.Register(ctx, login, "password123", ""); !errors.Is(err, ErrInvalidLogin) {
			t.Fatalf("Register(%q): expected ErrInvalidLogin, got %v", login, err)
		}
	}
}

func TestRegister_RejectsInvalidPasswordAndName(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "abc", "12345", ""); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if _, err := svc.Register(ctx, "abc", "pass'word", ""); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword for quote, got %v", err)
	}
	if _, err := svc.Register(ctx, "abc", "password123", "D'Artagnan"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestRegister_TrimsLoginAndCreatesUser(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, " alice ", "password123", "")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if user.Login != "alice" || user.Name != "alice" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.PasswordHash == "password123" {
		t.Fatalf("password stored in clear")
	}

	if _, err := svc.Register(ctx, "alice", "password123", "Alice"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginIssuesSession(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "bob", "password123", "Bob"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "bob", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown login, got %v", err)
	}

	sess, err := svc.Login(ctx, "bob", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Login != "bob" || sess.Name != "Bob" {
		t.Fatalf("unexpected session %+v", sess)
	}

	got, ok := svc.Session(sess.Token.String())
	if !ok || got.UserID != sess.UserID {
		t.Fatalf("session lookup failed: %+v %v", got, ok)
	}

	second, err := svc.Login(ctx, "bob", "password123")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if second.Token == sess.Token {
		t.Fatalf("expected a fresh token per login")
	}
	if svc.Sessions().Count() != 2 {
		t.Fatalf("expected 2 sessions, got %d", svc.Sessions().Count())
	}
}

func TestRegister_ConcurrentSameLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	const racers = 8
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, "alice", "password123", "Alice")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		switch {
		case err == nil:
			created++
		case !errors.Is(err, ErrUserExists):
			t.Fatalf("expected ErrUserExists for losing registration, got %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one registration to succeed, got %d", created)
	}
}

func TestSessionsLookupRejectsGarbage(t *testing.T) {
	s := NewSessions(0)
	for _, token := range []string{"", "not-a-uuid", "00000000-0000-0000-0000-000000000000"} {
		if _, ok := s.Lookup(token); ok {
			t.Fatalf("Lookup(%q) succeeded", token)
		}
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestSessionsExpireWhenIdle(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewSessions(time.Hour)
	s.now = clock.now

	idle := s.Issue(&store.User{ID: 1, Login: "idle"})
	busy := s.Issue(&store.User{ID: 2, Login: "busy"})

	clock.advance(40 * time.Minute)
	if _, ok := s.Lookup(busy.Token.String()); !ok {
		t.Fatalf("busy session expired early")
	}
	clock.advance(40 * time.Minute)

	if _, ok := s.Lookup(idle.Token.String()); ok {
		t.Fatalf("idle session still resolves after TTL")
	}
	got, ok := s.Lookup(busy.Token.String())
	if !ok {
		t.Fatalf("refreshed session expired")
	}
	if !got.LastSeen.Equal(clock.t) || !got.IssuedAt.Before(got.LastSeen) {
		t.Fatalf("unexpected timestamps %+v", got)
	}
	if s.Count() != 1 {
		t.Fatalf("expected expired session to be dropped on lookup, count=%d", s.Count())
	}
}

func TestSessionsSweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewSessions(time.Minute)
	s.now = clock.now

	for i := int64(1); i <= 3; i++ {
		s.Issue(&store.User{ID: i})
	}
	if n := s.Sweep(); n != 0 {
		t.Fatalf("sweep of fresh sessions removed %d", n)
	}

	clock.advance(2 * time.Minute)
	fresh := s.Issue(&store.User{ID: 4})
	if n := s.Sweep(); n != 3 {
		t.Fatalf("expected 3 expired sessions, removed %d", n)
	}
	if s.Count() != 1 {
		t.Fatalf("expected 1 session left, got %d", s.Count())
	}
	if _, ok := s.Lookup(fresh.Token.String()); !ok {
		t.Fatalf("fresh session swept")
	}
}

func TestSessionsWithoutTTLNeverExpire(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := NewSessions(0)
	s.now = clock.now

	sess := s.Issue(&store.User{ID: 1})
	clock.advance(365 * 24 * time.Hour)
	if n := s.Sweep(); n != 0 {
		t.Fatalf("sweep removed %d sessions", n)
	}
	if _, ok := s.Lookup(sess.Token.String()); !ok {
		t.Fatalf("session without TTL expired")
	}
}

func TestSessionsRunStopsOnCancel(t *testing.T) {
	s := NewSessions(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestAdminToken(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("test-secret"), Issuer: "flowchat", TTL: time.Hour}

	token, err := GenerateToken(cfg, "ops")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ValidateToken(cfg, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "ops" || claims.Role != RoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}

	other := &JWTConfig{Secret: []byte("test-secret"), Issuer: "someone-else", TTL: time.Hour}
	if _, err := ValidateToken(other, token); err == nil {
		t.Fatalf("expected issuer mismatch")
	}

	expired := &JWTConfig{Secret: []byte("test-secret"), Issuer: "flowchat", TTL: -time.Minute}
	stale, err := GenerateToken(expired, "ops")
	if err != nil {
		t.Fatalf("generate expired: %v", err)
	}
	if _, err := ValidateToken(cfg, stale); err == nil {
		t.Fatalf("expected expired token to fail")
	}

	if _, err := GenerateToken(&JWTConfig{}, "ops"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
