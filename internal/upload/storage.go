package upload

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dev-Ruco/pressflow/pkg/domain"
	"github.com/Dev-Ruco/pressflow/pkg/ports"
)

// DirectUploader is the object-storage strategy: each file goes whole
// into the bucket and the resulting URL is recorded on the descriptor.
// Files upload in parallel; a signed URL (bounded lifetime) is used
// when the bucket is not public.
type DirectUploader struct {
	store        ports.ObjectStore
	signedURLTTL time.Duration
	signed       bool
}

// NewDirectUploader creates the object-storage strategy. When signed is
// true, a time-limited URL replaces the public one.
func NewDirectUploader(store ports.ObjectStore, signed bool, signedURLTTL time.Duration) *DirectUploader {
	if signedURLTTL <= 0 {
		signedURLTTL = time.Hour
	}
	return &DirectUploader{store: store, signed: signed, signedURLTTL: signedURLTTL}
}

// UploadAll stores every file and returns the descriptors updated with
// URL and completed status. The input order is preserved.
func (d *DirectUploader) UploadAll(ctx context.Context, files []domain.FileDescriptor, payloads map[string][]byte) ([]domain.FileDescriptor, error) {
	out := make([]domain.FileDescriptor, len(files))
	copy(out, files)

	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		i := i
		g.Go(func() error {
			f := &out[i]
			data, ok := payloads[f.ID]
			if !ok {
				return fmt.Errorf("no payload for file %s", f.FileName)
			}

			key := f.ID + "/" + f.FileName
			url, err := d.store.Upload(gctx, key, f.MimeType, bytes.NewReader(data), int64(len(data)))
			if err != nil {
				f.Status = domain.FileError
				return fmt.Errorf("upload %s: %w", f.FileName, err)
			}
			if d.signed {
				url, err = d.store.SignedURL(gctx, key, d.signedURLTTL)
				if err != nil {
					f.Status = domain.FileError
					return fmt.Errorf("sign url for %s: %w", f.FileName, err)
				}
			}

			f.URL = url
			f.Status = domain.FileCompleted
			f.Progress = 100
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
