// Package memory holds process-local stores used when no database is
// configured.
package memory

import (
	"context"
	"sync"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/google/uuid"
)

type SessionsStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	now      func() time.Time
}

func NewSessionsStore() *SessionsStore {
	return &SessionsStore{sessions: make(map[string]domain.Session), now: time.Now}
}

func (s *SessionsStore) CreateSession(_ context.Context, userID string, expiresAt time.Time, _, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	id := uuid.NewString()
	s.sessions[id] = domain.Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: s.now(),
		ExpiresAt: expiresAt,
	}
	return id, nil
}

func (s *SessionsStore) GetSession(_ context.Context, sessionID string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.RevokedAt != nil || !sess.ExpiresAt.After(s.now()) {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *SessionsStore) RevokeSession(_ context.Context, sessionID string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.RevokedAt != nil {
		return nil
	}
	sess.RevokedAt = &when
	s.sessions[sessionID] = sess
	return nil
}

// pruneLocked drops expired and revoked sessions; callers hold mu.
func (s *SessionsStore) pruneLocked() {
	now := s.now()
	for id, sess := range s.sessions {
		if sess.RevokedAt != nil || !sess.ExpiresAt.After(now) {
			delete(s.sessions, id)
		}
	}
}
