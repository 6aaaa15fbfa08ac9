// Package sessions holds the per-connection mapping from issued token to the
// identity it authenticates. A Store and its expiry timers are scoped to one
// connection and torn down with it; there is no cross-connection sharing.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/billboardcp/billboard-server/users"
)

// DefaultTTL is the session period applied when no explicit duration is
// configured.
const DefaultTTL = 24 * time.Hour

// Session is one issued login session.
type Session struct {
	Token      string
	Username   string
	Permission users.Permission
	ExpiresAt  time.Time
}

type liveSession struct {
	Session
	timer *time.Timer
}

// Store issues, resolves and revokes session tokens. The expiry timers fire
// on background goroutines while the connection's read loop calls Lookup and
// Revoke, so every map access goes through the mutex.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
	ttl      time.Duration
	nowTime  func() time.Time
	onExpiry func(Session)
	closed   bool
}

// Option modifies a Store at construction time.
type Option func(*Store)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithExpiryHook registers a callback invoked after a session is removed by
// natural expiry (not by Revoke or Close). The callback runs on the timer
// goroutine, outside the store lock.
func WithExpiryHook(hook func(Session)) Option {
	return func(s *Store) {
		s.onExpiry = hook
	}
}

// New creates a Store whose sessions expire after ttl. A non-positive ttl
// falls back to DefaultTTL.
func New(ttl time.Duration, options ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		sessions: make(map[string]*liveSession),
		ttl:      ttl,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Issue generates a fresh opaque token for the given identity, records the
// session and schedules its expiry. Two logins for the same username yield
// two independent sessions.
func (s *Store) Issue(username string, permission users.Permission) string {
	token := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return token // connection already torn down, token is dead on arrival
	}

	live := &liveSession{
		Session: Session{
			Token:      token,
			Username:   username,
			Permission: permission,
			ExpiresAt:  s.nowTime().Add(s.ttl),
		},
	}
	live.timer = time.AfterFunc(s.ttl, func() { s.expire(token) })
	s.sessions[token] = live
	return token
}

// Lookup resolves a token to its session.
func (s *Store) Lookup(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, ok := s.sessions[token]
	if !ok {
		return Session{}, false
	}
	return live.Session, true
}

// Revoke removes a session and cancels its pending expiry timer. It reports
// whether a session was actually removed; a revoke racing an expiry either
// wins and cancels the timer, or observes the session already gone.
func (s *Store) Revoke(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, ok := s.sessions[token]
	if !ok {
		return false
	}
	live.timer.Stop()
	delete(s.sessions, token)
	return true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close revokes everything and cancels all pending timers, returning how
// many sessions it removed. Sessions that expired before the lock was taken
// are not counted, so the count and the expiry hook never both account for
// the same session. The store refuses new sessions afterwards. Called when
// the owning connection closes so no background task outlives it.
func (s *Store) Close() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, live := range s.sessions {
		live.timer.Stop()
		delete(s.sessions, token)
		removed++
	}
	s.closed = true
	return removed
}

// expire runs on the timer goroutine when a session reaches the end of its
// period without being revoked.
func (s *Store) expire(token string) {
	s.mu.Lock()
	live, ok := s.sessions[token]
	if ok {
		delete(s.sessions, token)
	}
	s.mu.Unlock()

	if ok && s.onExpiry != nil {
		s.onExpiry(live.Session)
	}
}
