package ports

import (
	"context"
	"time"
)

// TitleCache holds the last known AI-suggested titles so the polling
// service can fall back to them when the endpoint is unreachable.
// Implementations must expire entries after the configured TTL and
// support explicit invalidation.
type TitleCache interface {
	// Put stores titles for an article, replacing any previous entry.
	Put(ctx context.Context, articleID string, titles []string, ttl time.Duration) error

	// Get returns the cached titles, or ok=false when absent or expired.
	Get(ctx context.Context, articleID string) (titles []string, ok bool, err error)

	// Invalidate drops the entry for the article.
	Invalidate(ctx context.Context, articleID string) error
}
