package throttle

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps failures for the lifetime of the process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]time.Time)}
}

func (s *MemoryStore) Add(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := append(s.entries[key], at)
	if n := len(ts); n > 1 && at.Before(ts[n-2]) {
		sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	}
	s.entries[key] = ts
	return nil
}

func (s *MemoryStore) Window(_ context.Context, key string, from, to time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.entries[key]
	kept := ts[:0]
	for _, t := range ts {
		if !t.Before(from) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(s.entries, key)
		return nil, nil
	}
	s.entries[key] = kept

	out := make([]time.Time, 0, len(kept))
	for _, t := range kept {
		if !t.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len reports how many keys currently hold failures.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
