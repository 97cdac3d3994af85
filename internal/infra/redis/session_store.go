package redis

import (
	"context"
	"sync"
	"time"

	"trivia-session-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions hold live countdown goroutines, so the session objects stay
//     in a local in-process map.
//   - Redis marks session liveness with a TTL key so other instances (and
//     the admin panel) can see who is mid-game.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(identity string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[identity] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(identity), "1", s.ttl).Err()
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
	_ = s.client.Del(context.Background(), s.key(identity)).Err()
}

func (s *SessionStore) key(identity string) string {
	return "trivia:session:" + identity
}
