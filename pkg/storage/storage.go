// Package storage holds the image store backends. Submissions only ever see
// the Store interface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/pkg/config"
	"github.com/anonto42/photowall/backend/pkg/firebase"
)

// Store writes, addresses and removes image objects.
type Store interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Delete removes key. A missing object is not an error.
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

var errEmptyKey = errors.New("storage: empty object key")

// New builds the backend selected by STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config, fb *firebase.App, log zerolog.Logger) (Store, error) {
	switch cfg.StorageBackend {
	case config.StorageFirebase:
		if fb == nil || fb.Bucket == nil {
			return nil, fmt.Errorf("firebase storage selected but firebase bucket is not initialized")
		}
		return NewFirebaseStore(fb.Bucket, fb.BucketName, log), nil
	case config.StorageS3:
		return NewS3Store(ctx, cfg, log)
	case config.StorageLocal:
		return NewLocalStore(cfg.LocalStoragePath, cfg.LocalStorageBaseURL, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
