package scheduler

import (
	"context"
	"sync"
	"time"
)

// Marker records that a sweep item was handled so a second run in the same window skips it.
type Marker interface {
	// MarkOnce returns true when key was not marked yet within ttl.
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key, allowing the item to be retried.
	Release(ctx context.Context, key string) error
}

// MemoryMarker is a process-local Marker. Marks do not survive restarts.
type MemoryMarker struct {
	mu      sync.Mutex
	now     func() time.Time
	expires map[string]time.Time
}

// NewMemoryMarker builds an empty marker.
func NewMemoryMarker() *MemoryMarker {
	return &MemoryMarker{now: time.Now, expires: make(map[string]time.Time)}
}

// MarkOnce implements Marker.
func (m *MemoryMarker) MarkOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if exp, ok := m.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.expires[key] = now.Add(ttl)
	return true, nil
}

// Release implements Marker.
func (m *MemoryMarker) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, key)
	return nil
}
