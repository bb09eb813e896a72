// Package session keeps the operator login sessions behind the cookie
// gate. Sessions are in-memory only; a restart logs everyone out, which
// is acceptable for an internal dashboard.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const CookieName = "auth_token"

type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]time.Time // token -> expiry

	now func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *Store) TTL() time.Duration { return s.ttl }

// Create issues a fresh token.
func (s *Store) Create() (token string, expires time.Time) {
	token = uuid.NewString()
	expires = s.now().Add(s.ttl)
	s.mu.Lock()
	s.sessions[token] = expires
	s.mu.Unlock()
	return token, expires
}

// Validate reports whether the token names a live session. Expired
// tokens are removed on sight.
func (s *Store) Validate(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.sessions[token]
	if !ok {
		return false
	}
	if s.now().After(exp) {
		delete(s.sessions, token)
		return false
	}
	return true
}

func (s *Store) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Sweep drops expired sessions and returns how many were removed.
// The janitor calls this periodically so abandoned logins don't pile up.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, exp := range s.sessions {
		if now.After(exp) {
			delete(s.sessions, token)
			n++
		}
	}
	return n
}
