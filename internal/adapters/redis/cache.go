package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// TitleCache implements ports.TitleCache on Redis. Entries expire via
// the key TTL; invalidation deletes the key outright.
type TitleCache struct {
	client *backend.Client
	prefix string
}

// NewTitleCache creates a title cache from an existing client.
func NewTitleCache(client *backend.Client) *TitleCache {
	return &TitleCache{
		client: client,
		prefix: "pressflow:titles:",
	}
}

func (c *TitleCache) key(articleID string) string {
	if articleID == "" {
		articleID = "pending"
	}
	return c.prefix + articleID
}

// Put stores titles for an article, replacing any previous entry.
func (c *TitleCache) Put(ctx context.Context, articleID string, titles []string, ttl time.Duration) error {
	data, err := json.Marshal(titles)
	if err != nil {
		return fmt.Errorf("failed to marshal titles: %w", err)
	}
	if err := c.client.Set(ctx, c.key(articleID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache titles: %w", err)
	}
	return nil
}

// Get returns the cached titles, or ok=false when absent or expired.
func (c *TitleCache) Get(ctx context.Context, articleID string) ([]string, bool, error) {
	val, err := c.client.Get(ctx, c.key(articleID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read title cache: %w", err)
	}

	var titles []string
	if err := json.Unmarshal([]byte(val), &titles); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal titles: %w", err)
	}
	return titles, true, nil
}

// Invalidate drops the entry for the article.
func (c *TitleCache) Invalidate(ctx context.Context, articleID string) error {
	return c.client.Del(ctx, c.key(articleID)).Err()
}
