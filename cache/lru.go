// Package cache holds the response cache: an in-process LRU in front of an
// optional shared Redis tier, keyed by query fingerprint.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/verdantiq/climatechat/schema"
)

// Cache is the L1 tier: pipeline results keyed by fingerprint.
type Cache interface {
	Get(key string) (*schema.PipelineResult, bool)
	Set(key string, result *schema.PipelineResult, ttl time.Duration)
	Purge()
}

type lruEntry struct {
	key     string
	result  *schema.PipelineResult
	expires time.Time
}

type lruCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	// order holds *lruEntry values, most recently used at the front.
	order *list.List
}

// NewLRU creates an LRU cache with capacity and default TTL.
func NewLRU(capacity int, ttl time.Duration) Cache {
	if capacity <= 0 {
		capacity = 512
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &lruCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *lruCache) Get(key string) (*schema.PipelineResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(*lruEntry)
	if !ent.expires.IsZero() && !time.Now().Before(ent.expires) {
		c.remove(elem)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return ent.result, true
}

func (c *lruCache) Set(key string, result *schema.PipelineResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*lruEntry)
		ent.result = result
		ent.expires = c.expiry(ttl)
		c.order.MoveToFront(elem)
		return
	}
	if len(c.items) >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
	c.items[key] = c.order.PushFront(&lruEntry{
		key:     key,
		result:  result,
		expires: c.expiry(ttl),
	})
}

func (c *lruCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

func (c *lruCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (c *lruCache) remove(elem *list.Element) {
	ent := c.order.Remove(elem).(*lruEntry)
	delete(c.items, ent.key)
}
