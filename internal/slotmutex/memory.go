package slotmutex

import (
	"context"
	"sync"
	"time"
)

// memorySweepInterval bounds how often AcquireAll scans the whole map for
// expired entries.
const memorySweepInterval = time.Minute

// MemoryStore is an in-process Store for single-node deployments and tests.
type MemoryStore struct {
	mu        sync.Mutex
	now       func() time.Time
	entries   map[string]memoryEntry
	lastSweep time.Time
}

type memoryEntry struct {
	owner     string
	expiresAt time.Time
}

// NewMemoryStore constructs an empty store. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now, entries: make(map[string]memoryEntry)}
}

// AcquireAll implements Store. Expired entries are dropped on the way.
func (s *MemoryStore) AcquireAll(_ context.Context, keys []string, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	for _, key := range keys {
		entry, ok := s.entries[key]
		if !ok {
			continue
		}
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			continue
		}
		if entry.owner != owner {
			return false, nil
		}
	}

	expiresAt := now.Add(ttl)
	for _, key := range keys {
		s.entries[key] = memoryEntry{owner: owner, expiresAt: expiresAt}
	}
	return true, nil
}

// sweepLocked removes every expired entry at most once per memorySweepInterval.
func (s *MemoryStore) sweepLocked(now time.Time) {
	if !s.lastSweep.IsZero() && now.Sub(s.lastSweep) < memorySweepInterval {
		return
	}
	s.lastSweep = now
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// ReleaseAll implements Store.
func (s *MemoryStore) ReleaseAll(_ context.Context, keys []string, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if entry, ok := s.entries[key]; ok && entry.owner == owner {
			delete(s.entries, key)
		}
	}
	return nil
}

// Holder returns the live owner of key, if any.
func (s *MemoryStore) Holder(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		return "", false
	}
	return entry.owner, true
}

// Len reports how many entries, live or not yet swept, the store holds.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
