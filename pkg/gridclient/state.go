package gridclient

import (
	"sync"
	"time"
)

// State is the persisted view state of one grid instance: the last
// per-column and global search strings and the sort column/direction. It is a cache
// entry with a short time-to-live, not durable storage: a reload within
// the TTL restores the same view, after expiry the grid reverts to its
// schema-declared defaults.
type State struct {
	Searches     []string  `json:"searches"`
	GlobalSearch string    `json:"globalSearch"`
	SortColumn   int       `json:"sortColumn"`
	SortDesc     bool      `json:"sortDesc"`
	HasSort      bool      `json:"hasSort"`
	SavedAt      time.Time `json:"savedAt"`
}

// StateStore persists grid state under a per-instance key. Implementations
// decide where entries live (process memory, browser session storage).
type StateStore interface {
	// Load returns the unexpired state for key, if any.
	Load(key string) (State, bool)
	Save(key string, st State)
	Clear(key string)
}

// MemoryStateStore is an expiring in-process StateStore.
type MemoryStateStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]State
}

func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	return &MemoryStateStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]State),
	}
}

func (s *MemoryStateStore) Load(key string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.entries[key]
	if !ok {
		return State{}, false
	}
	if s.now().Sub(st.SavedAt) > s.ttl {
		delete(s.entries, key)
		return State{}, false
	}
	return st, true
}

func (s *MemoryStateStore) Save(key string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.SavedAt.IsZero() {
		st.SavedAt = s.now()
	}
	s.entries[key] = st
}

func (s *MemoryStateStore) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}
