package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/vovakirdan/flowchat/internal/store"
)

// Session is an authenticated protocol session.
type Session struct {
	Token    uuid.UUID
	UserID   int64
	Login    string
	Name     string
	IssuedAt time.Time
	LastSeen time.Time
}

// Sessions is an in-memory token table shared by all transports.
// A session idle for longer than the TTL stops resolving; a zero TTL keeps sessions forever.
type Sessions struct {
	byToken *xsync.MapOf[uuid.UUID, Session]
	ttl     time.Duration
	now     func() time.Time
}

// NewSessions creates an empty session table.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		byToken: xsync.NewMapOf[uuid.UUID, Session](),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue creates a fresh session for user.
func (s *Sessions) Issue(user *store.User) Session {
	now := s.now()
	sess := Session{
		Token:    uuid.New(),
		UserID:   user.ID,
		Login:    user.Login,
		Name:     user.Name,
		IssuedAt: now,
		LastSeen: now,
	}
	s.byToken.Store(sess.Token, sess)
	return sess
}

// Lookup resolves a token in its text form and marks the session as used.
func (s *Sessions) Lookup(token string) (Session, bool) {
	id, err := uuid.Parse(token)
	if err != nil || id == uuid.Nil {
		return Session{}, false
	}
	now := s.now()
	sess, ok := s.byToken.Compute(id, func(old Session, loaded bool) (Session, bool) {
		if !loaded || s.expired(old, now) {
			return old, true
		}
		old.LastSeen = now
		return old, false
	})
	if !ok {
		return Session{}, false
	}
	return sess, true
}

// Sweep drops expired sessions and reports how many were removed.
func (s *Sessions) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.now()
	var stale []uuid.UUID
	s.byToken.Range(func(id uuid.UUID, sess Session) bool {
		if s.expired(sess, now) {
			stale = append(stale, id)
		}
		return true
	})

	removed := 0
	for _, id := range stale {
		// A Lookup may have refreshed the session since Range saw it.
		s.byToken.Compute(id, func(old Session, loaded bool) (Session, bool) {
			if loaded && s.expired(old, now) {
				removed++
				return old, true
			}
			return old, !loaded
		})
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// TTL returns the idle lifetime of a session.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Count returns the number of live sessions.
func (s *Sessions) Count() int {
	return s.byToken.Size()
}

func (s *Sessions) expired(sess Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.LastSeen) > s.ttl
}
