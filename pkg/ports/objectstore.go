package ports

import (
	"context"
	"io"
	"time"
)

// ObjectStore uploads whole files to bucket storage and resolves URLs
// for playback and download.
type ObjectStore interface {
	// Upload stores the object under the given key and returns its
	// public URL.
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (url string, err error)

	// SignedURL returns a time-limited URL for an existing object.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
