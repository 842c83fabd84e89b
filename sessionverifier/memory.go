package sessionverifier

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]string)}
}

func (s *MemoryStore) Put(sessionID, principalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = principalID
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	principalID, found := s.sessions[sessionID]

	return principalID, found, nil
}
