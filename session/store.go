package session

import "sync"

// Store is a session-scoped key/value map available to handler code across
// suspend/wakeup cycles. By invariant only the single handler currently
// holding the session (Working or Suspended) ever touches a Store, but it
// is still guarded by a mutex — the same defensive posture the teacher
// repo takes with every shared map it hands out (see
// internal/worker/workload/session_manager.go), even where a single-owner
// invariant would in principle make that redundant.
type Store struct {
	mu   sync.Mutex
	data map[string]any
}

func newStore() *Store {
	return &Store{data: make(map[string]any)}
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Update merges updates into the store.
func (s *Store) Update(updates map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range updates {
		s.data[k] = v
	}
}

// Remove deletes key, if present.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Clear removes every key.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]any)
}

// Len reports the number of keys currently stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
