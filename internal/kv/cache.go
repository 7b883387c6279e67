package kv

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cached is a read-through, write-through Store decorator with TTL and
// size-based LRU eviction. It fronts slow remote stores such as Sheets.
type Cached struct {
	next    Store
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	items map[string]*list.Element
	lru   *list.List
}

type cacheEntry struct {
	key       string
	rec       *Record
	expiresAt time.Time
}

var _ Store = (*Cached)(nil)

// NewCached wraps next. A non-positive maxSize disables eviction by size.
func NewCached(next Store, maxSize int, ttl time.Duration) *Cached {
	return &Cached{
		next:    next,
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Get serves fresh entries from memory, including remembered misses.
func (c *Cached) Get(ctx context.Context, key string) (*Record, error) {
	if rec, ok := c.lookup(key); ok {
		return copyRecord(rec), nil
	}
	rec, err := c.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.store(key, rec)
	return copyRecord(rec), nil
}

// Set writes to the underlying store first and only caches on success.
func (c *Cached) Set(ctx context.Context, key, value string) error {
	if err := c.next.Set(ctx, key, value); err != nil {
		c.Delete(key)
		return err
	}
	c.store(key, &Record{Value: value})
	return nil
}

// Delete drops key from the cache only.
func (c *Cached) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Size returns the number of cached keys, expired ones included.
func (c *Cached) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cached) lookup(key string) (*Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.remove(elem)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return entry.rec, true
}

func (c *Cached) store(key string, rec *Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{key: key, rec: copyRecord(rec), expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value = entry
		c.lru.MoveToFront(elem)
		return
	}
	c.items[key] = c.lru.PushFront(entry)

	if c.maxSize > 0 && c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

func (c *Cached) remove(elem *list.Element) {
	delete(c.items, elem.Value.(*cacheEntry).key)
	c.lru.Remove(elem)
}

func copyRecord(rec *Record) *Record {
	if rec == nil {
		return nil
	}
	cp := *rec
	return &cp
}
