// Package store wraps the host-supplied backing maps that hold persisted
// control values.
//
// The host owns the map objects and their durability across restarts. A
// Store only ever mutates its map in place; the reference the host handed
// over stays valid for the life of the engine, so whatever the host sees
// through its own reference is always the current state.
package store

import "sync"

// Store wraps one nested mapping of panelKey to (controlKey to value).
// Reserved engine bookkeeping keys live at the root level, as siblings of
// the panel maps.
type Store struct {
	mu   sync.RWMutex
	name string
	data map[string]any
}

// New wraps a host-supplied map. The map may already contain persisted
// panels. A nil map gets an empty replacement, losing host visibility;
// hosts that want durability must pass their own map.
func New(name string, data map[string]any) *Store {
	if data == nil {
		data = make(map[string]any)
	}
	return &Store{name: name, data: data}
}

// Name identifies the store in logs ("global", "entity").
func (s *Store) Name() string {
	return s.name
}

// Get returns the value at (panelKey, controlKey) and whether it exists.
func (s *Store) Get(panelKey, controlKey string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	panel, ok := s.data[panelKey].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := panel[controlKey]
	return v, ok
}

// Set writes a value, creating the panel level as needed.
func (s *Store) Set(panelKey, controlKey string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	panel, ok := s.data[panelKey].(map[string]any)
	if !ok {
		panel = make(map[string]any)
		s.data[panelKey] = panel
	}
	panel[controlKey] = value
}

// GetRoot returns a root-level entry such as the profile-switch flag.
func (s *Store) GetRoot(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// SetRoot writes a root-level entry.
func (s *Store) SetRoot(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Snapshot returns a deep copy of the store contents. Mutating the copy
// never touches the store.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMap(s.data)
}

// Replace clears the store and copies src in under a single lock hold, so
// no reader observes a cleared but unfilled store. src is deep-copied; the
// caller may keep mutating it afterward.
func (s *Store) Replace(src map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.data {
		delete(s.data, k)
	}
	for k, v := range src {
		s.data[k] = cloneValue(v)
	}
}

// Len reports the number of root-level entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
