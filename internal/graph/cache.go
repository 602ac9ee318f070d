package graph

import (
	"sort"
	"sync"

	"github.com/stride3d/stride-sub014/internal/mixin"
)

// Cache holds fragment records for the lifetime of a compiler. Records are
// created under the cache lock and built under their own lock.
type Cache struct {
	mu      sync.Mutex
	records map[mixin.Key]*mixin.Record
}

func NewCache() *Cache {
	return &Cache{records: make(map[mixin.Key]*mixin.Record)}
}

// record returns the record of key, creating an empty one on first use.
func (c *Cache) record(key mixin.Key, macros mixin.Macros) *mixin.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.records[key]; ok {
		return r
	}
	r := mixin.NewRecord(key, macros)
	c.records[key] = r
	return r
}

func (c *Cache) Get(key mixin.Key) (*mixin.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.records[key]
	return r, ok
}

// alias makes key resolve to an equivalent record.
func (c *Cache) alias(key mixin.Key, r *mixin.Record) {
	c.mu.Lock()
	c.records[key] = r
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Records lists distinct records sorted by key.
func (c *Cache) Records() []*mixin.Record {
	c.mu.Lock()
	seen := make(map[*mixin.Record]bool, len(c.records))
	out := make([]*mixin.Record, 0, len(c.records))
	for _, r := range c.records {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Invalidate drops every record whose referenced classes intersect classes.
// It returns how many keys were dropped.
func (c *Cache) Invalidate(classes map[string]struct{}) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, r := range c.records {
		if _, hit := classes[key.Class]; hit {
			delete(c.records, key)
			n++
			continue
		}
		r.Lock()
		deps := r.Classes()
		r.Unlock()
		for class := range deps {
			if _, hit := classes[class]; hit {
				delete(c.records, key)
				n++
				break
			}
		}
	}
	return n
}
