package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog"
)

// FirebaseStore keeps images in a Firebase Storage bucket.
type FirebaseStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
	log        zerolog.Logger
}

func NewFirebaseStore(bucket *gcs.BucketHandle, bucketName string, log zerolog.Logger) *FirebaseStore {
	return &FirebaseStore{
		bucket:     bucket,
		bucketName: bucketName,
		log:        log.With().Str("component", "firebase-storage").Logger(),
	}
}

func (s *FirebaseStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if key == "" {
		return errEmptyKey
	}
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	s.log.Debug().Str("key", key).Int64("size", size).Msg("object uploaded")
	return nil
}

func (s *FirebaseStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errEmptyKey
	}
	err := s.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *FirebaseStore) PublicURL(key string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media",
		s.bucketName, url.PathEscape(key))
}
