package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process revocation set. Entries carry the token's
// natural expiry so Cleanup can drop ids that no longer need tracking.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Revoke(_ context.Context, tokenID string, tokenExpiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[tokenID] = tokenExpiresAt

	return nil
}

func (s *MemoryStore) Exists(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.entries[tokenID]

	return exists, nil
}

// Cleanup removes entries whose token would have expired by now and returns
// how many were removed.
func (s *MemoryStore) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for tokenID, expiresAt := range s.entries {
		if !now.Before(expiresAt) {
			delete(s.entries, tokenID)
			removed++
		}
	}

	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}
