package api

import (
	"encoding/json"

	lru "github.com/hashicorp/golang-lru"
)

// CacheRecorder receives cache hit and miss notifications.
// *observability.TraceCollector satisfies it.
type CacheRecorder interface {
	ObserveCacheLookup(hit bool)
}

// ResultCache is a bounded LRU of computed responses keyed by the canonical
// JSON of the resolved request. A nil *ResultCache never hits.
type ResultCache struct {
	entries *lru.Cache
	rec     CacheRecorder
}

// NewResultCache returns a cache holding up to size responses. size <= 0
// disables caching and returns nil.
func NewResultCache(size int, rec CacheRecorder) (*ResultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &ResultCache{entries: entries, rec: rec}, nil
}

// Get returns the cached value for key.
func (c *ResultCache) Get(key string) (any, bool) {
	if c == nil || key == "" {
		return nil, false
	}
	v, ok := c.entries.Get(key)
	if c.rec != nil {
		c.rec.ObserveCacheLookup(ok)
	}
	return v, ok
}

// Add stores v under key.
func (c *ResultCache) Add(key string, v any) {
	if c == nil || key == "" {
		return
	}
	c.entries.Add(key, v)
}

// Len returns the number of cached responses.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// Purge drops every entry.
func (c *ResultCache) Purge() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

// cacheKey renders parts as a JSON array. It returns "" when a part cannot
// be encoded, which disables caching for that request.
func cacheKey(op string, parts ...any) string {
	b, err := json.Marshal(append([]any{op}, parts...))
	if err != nil {
		return ""
	}
	return string(b)
}
