// Package session provides the per-session key/value store and the
// reconciliation of ephemeral state between generation cycles.
package session

import (
	"crypto/rand"
	"fmt"
	"sync"
)

// Store is a session-scoped key/value store. Values are opaque byte slices;
// callers JSON-encode what they put in. A Store instance is bound to exactly
// one session.
type Store interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, bool)
	Delete(key string) error
}

// Factory hands out the Store for a given session ID, creating it on first
// use.
type Factory interface {
	For(sessionID string) Store
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	values map[string][]byte
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// MemoryFactory keeps one MemoryStore per session ID.
type MemoryFactory struct {
	stores map[string]*MemoryStore
	mu     sync.Mutex
}

// NewMemoryFactory creates a factory of in-memory session stores.
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{stores: make(map[string]*MemoryStore)}
}

func (f *MemoryFactory) For(sessionID string) Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.stores[sessionID]
	if !ok {
		st = NewMemoryStore()
		f.stores[sessionID] = st
	}
	return st
}

// NewID returns a fresh random session ID.
func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
