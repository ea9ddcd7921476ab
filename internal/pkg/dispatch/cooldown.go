package dispatch

import (
	"sync"
	"time"
)

// cooldowns tracks active cooldown windows keyed by command id + actor id.
// Expired entries are dropped lazily; Sweep bounds memory between bursts.
type cooldowns struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func newCooldowns() *cooldowns {
	return &cooldowns{
		entries: map[string]time.Time{},
		now:     time.Now,
	}
}

// touch reports whether the key was free and, if it was, arms it for window.
// An active key is rejected without refreshing its window.
func (c *cooldowns) touch(key string, window time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	expiresAt, exists := c.entries[key]
	if exists {
		if c.now().Before(expiresAt) {
			return false
		}
		delete(c.entries, key)
	}
	c.entries[key] = c.now().Add(window)
	return true
}

func (c *cooldowns) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, expiresAt := range c.entries {
		if !now.Before(expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *cooldowns) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]time.Time{}
}
