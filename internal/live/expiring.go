package live

import (
	"sync"
	"time"
)

// ExpiringSet remembers ids for a fixed window. Adding an id that is still
// inside its window is rejected, which turns at-least-once delivery into
// at-most-once display. Memory is bounded by the window: expired ids are
// dropped on access and by Sweep.
type ExpiringSet struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]time.Time
	now   func() time.Time
}

// NewExpiringSet creates a set whose ids live for ttl. A nil now uses time.Now.
func NewExpiringSet(ttl time.Duration, now func() time.Time) *ExpiringSet {
	if now == nil {
		now = time.Now
	}
	return &ExpiringSet{
		ttl:   ttl,
		items: make(map[string]time.Time),
		now:   now,
	}
}

// Add records id. It returns false when id was already present and unexpired.
func (s *ExpiringSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, ok := s.items[id]; ok && now.Before(expiry) {
		return false
	}
	s.items[id] = now.Add(s.ttl)
	return true
}

// Contains reports whether id is present and unexpired.
func (s *ExpiringSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.items[id]
	if !ok {
		return false
	}
	if !s.now().Before(expiry) {
		delete(s.items, id)
		return false
	}
	return true
}

// Remove forgets id. Removing an absent id is a no-op.
func (s *ExpiringSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Sweep drops expired ids and returns how many were removed.
func (s *ExpiringSet) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, expiry := range s.items {
		if !now.Before(expiry) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked ids, including expired ones not yet swept.
func (s *ExpiringSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Reset forgets every id.
func (s *ExpiringSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.items)
}
