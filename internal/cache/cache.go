package cache

import (
	"encoding/json"
	"sync"
	"time"
)

const sweepInterval = time.Minute

// MemoryCache keeps entries in process. Expired entries are hidden on read and
// swept in the background.
type MemoryCache struct {
	mu          sync.RWMutex
	items       map[string]entry
	generations map[string]int64
	ttl         time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// NewMemory creates an in-memory cache whose Set uses ttl
func NewMemory(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		items:       make(map[string]entry),
		generations: make(map[string]int64),
		ttl:         ttl,
		stop:        make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return nil, false
	}
	return e.value, true
}

// GetInto round-trips the stored value through JSON so callers see the same
// shapes the Redis backend returns.
func (c *MemoryCache) GetInto(key string, dst interface{}) bool {
	value, ok := c.Get(key)
	if !ok {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *MemoryCache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

func (c *MemoryCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear drops every entry. Generation counters survive so that keys built
// before the clear never come back into use.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry)
	c.mu.Unlock()
}

func (c *MemoryCache) Generation(namespace string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[namespace], nil
}

func (c *MemoryCache) Bump(namespace string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[namespace]++
	return c.generations[namespace], nil
}

// Stop ends the background sweep. It is safe to call more than once.
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.items {
		if e.expired(now) {
			delete(c.items, key)
		}
	}
}

var _ Cache = (*MemoryCache)(nil)
