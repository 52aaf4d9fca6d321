package session

import (
	"context"
	"sync"
	"time"

	"UD_contest_bot/internal/model"
)

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*model.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore keeps sessions in process. Sessions idle for longer than ttl are
// treated as expired; a zero ttl keeps them until deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*model.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (*model.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	if s.expired(sess) {
		s.mu.Lock()
		if current, ok := s.sessions[userID]; ok && current == sess {
			delete(s.sessions, userID)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	return sess.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, sess *model.Session) error {
	stored := sess.Clone()
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = stored
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) expired(sess *model.Session) bool {
	return s.ttl > 0 && s.now().Sub(sess.UpdatedAt) > s.ttl
}
