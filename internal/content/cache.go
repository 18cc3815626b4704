package content

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lessonforge/lessonforge/internal/session"
)

// genPrefix namespaces bundle entries within the session store.
const genPrefix = "gen:"

// Cache persists generated bundles keyed by the request identity. Entries
// live in the session store (surviving remounts for the session lifetime)
// and in an in-process map that skips the JSON round trip on repeat reads.
// Last write wins; nothing expires before the session does.
type Cache struct {
	store  session.Store
	memory map[string]Bundle
	mu     sync.RWMutex
}

// NewCache creates a bundle cache over the given session store.
func NewCache(store session.Store) *Cache {
	return &Cache{
		store:  store,
		memory: make(map[string]Bundle),
	}
}

// Save writes the bundle under the request's key, to both tiers.
func (c *Cache) Save(req Request, bundle Bundle) error {
	key := req.Key()

	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	if err := c.store.Put(genPrefix+key, data); err != nil {
		return fmt.Errorf("persist bundle: %w", err)
	}

	c.mu.Lock()
	c.memory[key] = bundle
	c.mu.Unlock()

	return nil
}

// Load returns the cached bundle for any request equivalent to a saved one.
// The in-process map is consulted first; on a store hit the map is
// back-filled before returning. A corrupted store entry reads as a miss.
func (c *Cache) Load(req Request) (Bundle, bool) {
	key := req.Key()

	c.mu.RLock()
	bundle, ok := c.memory[key]
	c.mu.RUnlock()
	if ok {
		return bundle, true
	}

	data, ok := c.store.Get(genPrefix + key)
	if !ok {
		return Bundle{}, false
	}
	if err := json.Unmarshal(data, &bundle); err != nil {
		slog.Warn("discarding corrupted cached bundle", "key", key, "error", err)
		return Bundle{}, false
	}

	c.mu.Lock()
	c.memory[key] = bundle
	c.mu.Unlock()

	return bundle, true
}
