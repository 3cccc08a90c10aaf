package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache keeps entries in this process. A janitor goroutine drops expired entries.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	config  Config
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	closed   bool
}

// NewMemoryCache creates a memory cache sweeping expired entries every interval
func NewMemoryCache(config Config, interval time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]entry),
		config:  config,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if interval <= 0 {
		interval = time.Minute
	}
	go c.janitor(interval)
	return c
}

func (c *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}

// Sweep removes expired entries and returns how many were dropped
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}

// Get returns the entry for key
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrClosed
	}
	e, ok := c.entries[c.config.Prefix+key]
	if !ok || e.expired(c.now()) {
		return nil, miss(key)
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a copy of value
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries[c.config.Prefix+key] = entry{value: stored, expiresAt: c.expiry(ttl)}
	return nil
}

func (c *MemoryCache) expiry(ttl time.Duration) time.Time {
	ttl = c.config.ttl(ttl)
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

// Touch restarts the ttl of key
func (c *MemoryCache) Touch(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	full := c.config.Prefix + key
	e, ok := c.entries[full]
	if !ok || e.expired(c.now()) {
		return miss(key)
	}
	e.expiresAt = c.expiry(ttl)
	c.entries[full] = e
	return nil
}

// Delete removes key
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, c.config.Prefix+key)
	return nil
}

// Clear removes the entries under this cache's prefix
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, c.config.Prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Len is the number of stored entries, expired ones included until the next sweep
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor; later operations fail with ErrClosed
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() {
		close(c.stop)
		c.mu.Lock()
		c.closed = true
		c.entries = make(map[string]entry)
		c.mu.Unlock()
	})
	return nil
}
