package codestore

import (
	"context"
	"sync"
	"time"

	"go-shortlink/internal/domain"
)

type memoryEntry struct {
	destinationURL string
	expiresAt      time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is an in-process Store. Expired entries are evicted lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// WithClock replaces the clock used for expiry checks.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// lookup returns the live entry for code, evicting it if expired. Caller holds mu.
func (s *MemoryStore) lookup(code string) (memoryEntry, bool) {
	e, ok := s.entries[code]
	if !ok {
		return memoryEntry{}, false
	}
	if e.expired(s.now()) {
		delete(s.entries, code)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) entry(destinationURL string, ttl time.Duration) memoryEntry {
	e := memoryEntry{destinationURL: destinationURL}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return e
}

func (s *MemoryStore) Exists(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookup(code)
	return ok, nil
}

func (s *MemoryStore) SetWithExpiry(ctx context.Context, code, destinationURL string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[code] = s.entry(destinationURL, ttl)
	return nil
}

func (s *MemoryStore) SetIfAbsent(ctx context.Context, code, destinationURL string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(code); ok {
		return false, nil
	}
	s.entries[code] = s.entry(destinationURL, ttl)
	return true, nil
}

func (s *MemoryStore) Get(ctx context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(code)
	if !ok {
		return "", domain.ErrNotFound
	}
	return e.destinationURL, nil
}

func (s *MemoryStore) Delete(ctx context.Context, code string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(code); !ok {
		return 0, nil
	}
	delete(s.entries, code)
	return 1, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
