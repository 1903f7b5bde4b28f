package cache

import (
	"sync"
	"time"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
)

type entry struct {
	identity  *model.Identity
	expiresAt time.Time
}

// IdentityCache maps bearer tokens to identities with a per-entry expiry.
// Expired entries are removed by the read that finds them; there is no
// background sweeper.
type IdentityCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
}

func NewIdentityCache(defaultTTL time.Duration) *IdentityCache {
	return &IdentityCache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the identity stored under key while it is fresh. A stale entry
// is deleted and reported as a miss.
func (c *IdentityCache) Get(key string) (*model.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.identity, true
}

// Put stores identity under key with a fresh expiry, replacing any previous
// entry and its expiry. A non-positive ttl selects the default.
func (c *IdentityCache) Put(key string, identity *model.Identity, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.entries[key] = entry{identity: identity, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *IdentityCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len counts stored entries, fresh or not yet evicted.
func (c *IdentityCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *IdentityCache) DefaultTTL() time.Duration {
	return c.defaultTTL
}
