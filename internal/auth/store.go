package auth

import (
	"sync"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/backend"
)

// View is read-only access to the current session and user.
type View interface {
	User() *UserProfile
	Session() *backend.Session
	IsAuthenticated() bool
}

// SessionStore holds the current session and derived user. Only the Manager
// that owns it writes to it.
type SessionStore struct {
	mu      sync.RWMutex
	session *backend.Session
	user    *UserProfile
}

func NewSessionStore() *SessionStore { return &SessionStore{} }

// User returns a copy of the current user, or nil.
func (s *SessionStore) User() *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Session returns a copy of the current session, or nil.
func (s *SessionStore) Session() *backend.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	sess := *s.session
	return &sess
}

// IsAuthenticated is true only when a user profile could be derived.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *SessionStore) set(sess *backend.Session, user *UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
	s.user = user
}

func (s *SessionStore) currentUser() *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}
