package cache

import (
	"container/list"
	"sync"
	"time"
)

// Recent remembers keys for a TTL, evicting the least recently seen key once
// maxSize is reached. The conversation driver uses it to drop redelivered
// events.
type Recent struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time
}

type recentItem struct {
	key       string
	expiresAt time.Time
}

// NewRecent creates a set holding at most maxSize keys for ttl each.
func NewRecent(maxSize int, ttl time.Duration) *Recent {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Recent{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Seen records key and reports whether it was already present and unexpired.
// Check and insert happen atomically, so of two concurrent callers with the
// same key exactly one gets false.
func (c *Recent) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if elem, ok := c.items[key]; ok {
		item := elem.Value.(*recentItem)
		if now.Before(item.expiresAt) {
			c.lru.MoveToFront(elem)
			return true
		}
		item.expiresAt = now.Add(c.ttl)
		c.lru.MoveToFront(elem)
		return false
	}

	c.items[key] = c.lru.PushFront(&recentItem{key: key, expiresAt: now.Add(c.ttl)})
	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
	return false
}

func (c *Recent) removeElement(elem *list.Element) {
	item := elem.Value.(*recentItem)
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *Recent) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if !now.Before(elem.Value.(*recentItem).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the current number of items in the cache
func (c *Recent) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
