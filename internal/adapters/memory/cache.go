package memory

import (
	"context"
	"slices"
	"sync"
	"time"
)

type cacheEntry struct {
	titles  []string
	expires time.Time
}

// TitleCache implements ports.TitleCache in memory with per-entry TTL.
// It replaces the original product's module-level mutable arrays with
// an injectable cache that tests can construct in isolation.
type TitleCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	// now is swappable for TTL tests.
	now func() time.Time
}

// NewTitleCache creates an empty in-memory title cache.
func NewTitleCache() *TitleCache {
	return &TitleCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// SetClock overrides the time source (tests).
func (c *TitleCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Put stores titles for an article, replacing any previous entry.
func (c *TitleCache) Put(ctx context.Context, articleID string, titles []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[articleID] = cacheEntry{
		titles:  slices.Clone(titles),
		expires: c.now().Add(ttl),
	}
	return nil
}

// Get returns the cached titles, dropping expired entries lazily.
func (c *TitleCache) Get(ctx context.Context, articleID string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[articleID]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expires) {
		delete(c.entries, articleID)
		return nil, false, nil
	}
	return slices.Clone(entry.titles), true, nil
}

// Invalidate drops the entry for the article.
func (c *TitleCache) Invalidate(ctx context.Context, articleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, articleID)
	return nil
}
