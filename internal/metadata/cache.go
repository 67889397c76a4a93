package metadata

import (
	"context"
	"log"

	"github.com/musiclite/musiclite/pkg/types"
)

// CacheStore is what the cache needs from persistence.
type CacheStore interface {
	GetCachedMetadata(ctx context.Context, assetID string) (*types.PartialSong, bool, error)
	PutCachedMetadata(ctx context.Context, assetID string, partial *types.PartialSong) error
}

// Cache is keyed by asset id. A hit means the asset was resolved once and
// must not be enriched again, even when the stored partial is empty.
type Cache struct {
	store CacheStore
	debug bool
}

func NewCache(store CacheStore, debug bool) *Cache {
	return &Cache{store: store, debug: debug}
}

func (c *Cache) debugLog(format string, args ...interface{}) {
	if !c.debug {
		return
	}
	log.Printf("[METACACHE] "+format, args...)
}

func (c *Cache) Get(ctx context.Context, assetID string) (*types.PartialSong, bool) {
	partial, found, err := c.store.GetCachedMetadata(ctx, assetID)
	if err != nil {
		c.debugLog("Get %s failed: %v", assetID, err)
		return nil, false
	}
	return partial, found
}

func (c *Cache) Put(ctx context.Context, assetID string, partial *types.PartialSong) {
	if err := c.store.PutCachedMetadata(ctx, assetID, partial); err != nil {
		c.debugLog("Put %s failed: %v", assetID, err)
	}
}
