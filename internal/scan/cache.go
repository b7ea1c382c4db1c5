package scan

import (
	"github.com/hashicorp/golang-lru/v2"

	"github.com/aisentools/msfix/internal/detect"
)

type cacheKey struct {
	path            string
	fingerprint     string
	includeInactive bool
}

// Cache remembers the findings of unchanged file-backed sources between
// scans. A changed file gets a new fingerprint and so misses.
type Cache struct {
	entries *lru.Cache[cacheKey, []detect.Finding]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = 1024
	}
	entries, err := lru.New[cacheKey, []detect.Finding](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

func (c *Cache) get(k cacheKey) ([]detect.Finding, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(k)
}

func (c *Cache) put(k cacheKey, findings []detect.Finding) {
	if c == nil {
		return
	}
	c.entries.Add(k, findings)
}

// Purge drops every entry, e.g. after the script index changed.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
