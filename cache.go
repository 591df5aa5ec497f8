package scopedi

import (
	"sync"
)

// instanceCache holds Singleton or Scoped instances keyed by ServiceID.
// Entries are never overwritten: the first instance stored for an id wins.
type instanceCache struct {
	instances map[ServiceID]any
	mu        sync.RWMutex
}

// newInstanceCache creates a new instance cache
func newInstanceCache() *instanceCache {
	return &instanceCache{
		instances: make(map[ServiceID]any),
	}
}

// get retrieves an instance from the cache
func (c *instanceCache) get(id ServiceID) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	instance, ok := c.instances[id]
	return instance, ok
}

// getOrAdd stores instance unless an entry for id already exists. It returns
// the stored instance and whether instance was the one stored.
func (c *instanceCache) getOrAdd(id ServiceID, instance any) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.instances[id]; ok {
		return existing, false
	}

	c.instances[id] = instance
	return instance, true
}

// len returns the number of cached instances
func (c *instanceCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.instances)
}

// clear removes all instances from the cache
func (c *instanceCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances = make(map[ServiceID]any)
}
