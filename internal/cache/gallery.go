// Package cache keeps derived, non-authoritative state in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/models"
)

const galleryGenerationKey = "photowall:gallery:gen"

// GalleryCache caches pages of approved submissions. Pages are keyed by a
// generation counter, so invalidation is a single INCR and stale pages
// simply age out.
type GalleryCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewGalleryCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *GalleryCache {
	return &GalleryCache{
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "gallery-cache").Logger(),
	}
}

func (c *GalleryCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, galleryGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *GalleryCache) pageKey(gen int64, page, limit int) string {
	return fmt.Sprintf("photowall:gallery:%d:%d:%d", gen, page, limit)
}

// Get returns a cached page and the generation it was looked up under.
// A miss still returns the generation, so a page loaded afterwards can be
// stored with Set against the generation that was current before the load.
// A generation of -1 means the cache is unavailable. Cache errors are logged
// and reported as a miss.
func (c *GalleryCache) Get(ctx context.Context, page, limit int) (*models.GalleryPage, int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("read gallery generation")
		return nil, -1, false
	}
	raw, err := c.client.Get(ctx, c.pageKey(gen, page, limit)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Msg("read gallery page")
		}
		return nil, gen, false
	}
	var out models.GalleryPage
	if err := json.Unmarshal(raw, &out); err != nil {
		c.log.Warn().Err(err).Msg("decode gallery page")
		return nil, gen, false
	}
	return &out, gen, true
}

// Set stores p under gen. If the cache was invalidated since gen was read,
// the page lands under a dead generation and is never served.
func (c *GalleryCache) Set(ctx context.Context, gen int64, p *models.GalleryPage) {
	if gen < 0 {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		c.log.Warn().Err(err).Msg("encode gallery page")
		return
	}
	if err := c.client.Set(ctx, c.pageKey(gen, p.Page, p.Limit), raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("write gallery page")
	}
}

// Invalidate drops every cached page.
func (c *GalleryCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, galleryGenerationKey).Err()
}
