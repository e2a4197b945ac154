package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore is the set of token IDs invalidated before their natural expiry.
// Implementations must be safe for concurrent use and Revoke must be idempotent.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// memoryPruneInterval bounds how often Revoke sweeps expired entries.
const memoryPruneInterval = time.Minute

// MemoryRevocationStore keeps revoked token IDs in process memory.
// Its contents are lost on restart, which makes still-unexpired revoked
// tokens valid again. Use the Redis-backed store when that matters.
type MemoryRevocationStore struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	lastPrune time.Time
	now       func() time.Time
}

// NewMemoryRevocationStore creates an empty in-memory revocation set.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke adds tokenID to the set. Entries past their expiry are swept
// at most once per memoryPruneInterval.
func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastPrune) >= memoryPruneInterval {
		for id, exp := range s.entries {
			if !exp.After(now) {
				delete(s.entries, id)
			}
		}
		s.lastPrune = now
	}

	if existing, ok := s.entries[tokenID]; !ok || expiresAt.After(existing) {
		s.entries[tokenID] = expiresAt
	}
	return nil
}

// IsRevoked reports whether tokenID has been revoked.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[tokenID]
	return ok, nil
}

// Len returns the number of tracked token IDs.
func (s *MemoryRevocationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
