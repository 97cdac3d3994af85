package memory

import (
	"sync"

	"trivia-session-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(identity string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[identity] = session
}

func (s *SessionStore) Get(identity string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[identity]
	return session, ok
}

func (s *SessionStore) Delete(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, identity)
}
