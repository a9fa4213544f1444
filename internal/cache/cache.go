// Package cache holds fetched batches keyed by batch id. It makes the
// frontend's shared query cache explicit: one owner, TTL expiry, an
// explicit invalidate, and at most one in-flight fetch per key.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/api"
)

// BatchCache caches batch snapshots by batch id.
type BatchCache struct {
	data  *gocache.Cache
	group singleflight.Group
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration) *BatchCache {
	return &BatchCache{
		data: gocache.New(ttl, 2*ttl),
	}
}

// Get returns the cached batch for id, if present and unexpired.
func (c *BatchCache) Get(id string) (*api.Batch, bool) {
	if v, ok := c.data.Get(id); ok {
		return v.(*api.Batch), true
	}
	return nil, false
}

// Fetch returns the cached batch for id or, on a miss, calls fetch and
// caches its result. Concurrent misses for the same id share a single
// fetch; late duplicate callers receive the first caller's result. The
// context of the caller that actually triggers the network call governs
// the shared request.
func (c *BatchCache) Fetch(ctx context.Context, id string, fetch func(context.Context) (*api.Batch, error)) (*api.Batch, error) {
	if b, ok := c.Get(id); ok {
		return b, nil
	}
	v, err, _ := c.group.Do(id, func() (any, error) {
		if b, ok := c.Get(id); ok {
			return b, nil
		}
		b, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.data.Set(id, b, gocache.DefaultExpiration)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*api.Batch), nil
}

// Invalidate drops the entry for id. Called after a successful submit so
// the next fetch goes to the server.
func (c *BatchCache) Invalidate(id string) {
	c.data.Delete(id)
}

// Clear drops every entry.
func (c *BatchCache) Clear() {
	c.data.Flush()
}
