package core

import (
	"sort"
	"sync"
)

// Scope is the per-invocation key/value store shared by every agent taking
// part in one workflow run. It is safe for concurrent access; writes are
// last-writer-wins.
//
// Contract:
//   - Reads never mutate and never fail
//   - Snapshot returns a shallow copy to avoid external mutation
//   - A Scope is private to one invocation and is never shared across runs
type Scope struct {
	ID    string
	mu    sync.RWMutex
	state map[string]any
}

// NewScope creates a scope seeded with a copy of initial.
func NewScope(id string, initial map[string]any) *Scope {
	s := &Scope{ID: id, state: make(map[string]any, len(initial))}
	for k, v := range initial {
		s.state[k] = v
	}

	return s
}

// Get returns the value and existence flag for a key.
func (s *Scope) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.state[key]

	return v, ok
}

// Has reports whether a key is present.
func (s *Scope) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores value under key, replacing any previous value.
func (s *Scope) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
}

// Merge writes every pair of values into the scope.
func (s *Scope) Merge(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.state[k] = v
	}
}

// Keys returns the sorted key set.
func (s *Scope) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.state))
	for k := range s.state {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Snapshot returns a copy of the current state.
func (s *Scope) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make(map[string]any, len(s.state))
	for k, v := range s.state {
		cp[k] = v
	}

	return cp
}

// ReadState returns the value stored under key when it is present and of
// type T, otherwise def.
func ReadState[T any](s *Scope, key string, def T) T {
	if s == nil {
		return def
	}

	v, ok := s.Get(key)
	if !ok {
		return def
	}

	typed, ok := v.(T)
	if !ok {
		return def
	}

	return typed
}
