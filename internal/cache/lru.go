package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sandevgo/distill/internal/core"
	"github.com/sandevgo/distill/pkg/log"
)

const (
	metadataKey    = "cache_metadata"
	entryKeyPrefix = "cache_entry:"
)

// metadata tracks recency order. Index 0 is the most recently used item,
// the last index the least recently used.
type metadata struct {
	OrderedIDs  []string  `json:"ordered_ids"`
	LastCleanup time.Time `json:"last_cleanup"`
}

// Stats is a best-effort snapshot of the cache contents. ByteSize is the
// serialized length of all referenced entries, not exact storage usage.
type Stats struct {
	Count       int
	ItemIDs     []string
	ByteSize    int
	LastCleanup time.Time
}

// Cache is a bounded, persistent, least-recently-used cache of entries.
// Its public surface never returns errors: storage faults are logged and
// degrade to nil/false so a broken backend cannot take the pipeline down.
//
// The mutex serializes every metadata mutation, so concurrent callers
// always observe a consistent recency order.
type Cache struct {
	mu         sync.Mutex
	store      core.KeyValueStore
	maxEntries int
}

func New(store core.KeyValueStore, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = core.MaxCacheEntries
	}
	return &Cache{
		store:      store,
		maxEntries: maxEntries,
	}
}

func entryKey(itemID string) string {
	return entryKeyPrefix + itemID
}

// Get loads the cached entry for itemID, refreshing its recency on a hit.
// Returns nil on miss and on any storage fault.
func (c *Cache) Get(ctx context.Context, itemID string) *core.Entry {
	logger := log.FromCtx(ctx)

	key := entryKey(itemID)
	values, err := c.store.Get(ctx, []string{key})
	if err != nil {
		if errors.Is(err, core.ErrStoreClosed) {
			logger.Warn().Str("item", itemID).Msg("cache backend is gone, treating as miss")
			return nil
		}
		logger.Error().Err(err).Str("item", itemID).Msg("cache read failed")
		return nil
	}

	raw, ok := values[key]
	if !ok {
		logger.Debug().Str("item", itemID).Msg("cache miss")
		return nil
	}

	var entry core.Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		logger.Error().Err(err).Str("item", itemID).Msg("cached entry is corrupt")
		return nil
	}

	c.mu.Lock()
	if err := c.touch(ctx, itemID); err != nil {
		logger.Warn().Err(err).Str("item", itemID).Msg("failed to refresh recency")
	}
	c.mu.Unlock()

	logger.Debug().Str("item", itemID).Msg("cache hit")
	return &entry
}

// Set persists entry under itemID, evicting least-recently-used entries
// beforehand so the quota always leaves room for the write.
func (c *Cache) Set(ctx context.Context, itemID string, entry *core.Entry) bool {
	logger := log.FromCtx(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.touch(ctx, itemID); err != nil {
		logger.Error().Err(err).Str("item", itemID).Msg("failed to update recency order")
		return false
	}

	if err := c.enforceQuota(ctx); err != nil {
		logger.Error().Err(err).Str("item", itemID).Msg("failed to enforce cache quota")
		return false
	}

	entry.ItemID = itemID
	entry.UpdatedAt = time.Now()

	data, err := json.Marshal(entry)
	if err != nil {
		logger.Error().Err(err).Str("item", itemID).Msg("failed to serialize entry")
		return false
	}

	if err := c.store.Set(ctx, map[string]string{entryKey(itemID): string(data)}); err != nil {
		logger.Error().Err(err).Str("item", itemID).Msg("cache write failed")
		return false
	}

	return true
}

// Remove deletes the entry and drops it from the recency order.
func (c *Cache) Remove(ctx context.Context, itemID string) bool {
	logger := log.FromCtx(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Remove(ctx, []string{entryKey(itemID)}); err != nil {
		logger.Error().Err(err).Str("item", itemID).Msg("failed to remove cached entry")
		return false
	}

	meta, err := c.loadMetadata(ctx)
	if err != nil {
		logger.Error().Err(err).Str("item", itemID).Msg("failed to load cache metadata")
		return false
	}
	if meta == nil {
		return true
	}

	meta.OrderedIDs = without(meta.OrderedIDs, itemID)
	if err := c.saveMetadata(ctx, meta); err != nil {
		logger.Error().Err(err).Str("item", itemID).Msg("failed to save cache metadata")
		return false
	}
	return true
}

// Clear deletes every entry referenced by metadata, then the metadata
// record itself. Clearing an already-empty cache succeeds.
func (c *Cache) Clear(ctx context.Context) bool {
	logger := log.FromCtx(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	meta, err := c.loadMetadata(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load cache metadata")
		return false
	}

	if meta != nil && len(meta.OrderedIDs) > 0 {
		keys := make([]string, len(meta.OrderedIDs))
		for i, id := range meta.OrderedIDs {
			keys[i] = entryKey(id)
		}
		if err := c.store.Remove(ctx, keys); err != nil {
			logger.Error().Err(err).Msg("failed to remove cached entries")
			return false
		}
	}

	if err := c.store.Remove(ctx, []string{metadataKey}); err != nil {
		logger.Error().Err(err).Msg("failed to remove cache metadata")
		return false
	}

	logger.Info().Msg("cache cleared")
	return true
}

// Stats reports the current cache contents. Failures degrade to an empty
// snapshot.
func (c *Cache) Stats(ctx context.Context) Stats {
	logger := log.FromCtx(ctx)

	meta, err := c.loadMetadata(ctx)
	if err != nil || meta == nil {
		if err != nil {
			logger.Error().Err(err).Msg("failed to load cache metadata")
		}
		return Stats{ItemIDs: []string{}}
	}

	keys := make([]string, len(meta.OrderedIDs))
	for i, id := range meta.OrderedIDs {
		keys[i] = entryKey(id)
	}

	size := 0
	if values, err := c.store.Get(ctx, keys); err == nil {
		for _, v := range values {
			size += len(v)
		}
	} else {
		logger.Warn().Err(err).Msg("failed to measure cached entries")
	}

	ids := make([]string, len(meta.OrderedIDs))
	copy(ids, meta.OrderedIDs)

	return Stats{
		Count:       len(meta.OrderedIDs),
		ItemIDs:     ids,
		ByteSize:    size,
		LastCleanup: meta.LastCleanup,
	}
}

// touch moves itemID to the front of the recency order, creating metadata
// on first use. Caller must hold the mutex.
func (c *Cache) touch(ctx context.Context, itemID string) error {
	meta, err := c.loadMetadata(ctx)
	if err != nil {
		return err
	}
	if meta == nil {
		meta = &metadata{LastCleanup: time.Now()}
	}

	meta.OrderedIDs = append([]string{itemID}, without(meta.OrderedIDs, itemID)...)
	return c.saveMetadata(ctx, meta)
}

// enforceQuota evicts from the least-recently-used end until the order
// holds maxEntries-1 ids, leaving one slot for the write that follows.
// Caller must hold the mutex.
func (c *Cache) enforceQuota(ctx context.Context) error {
	meta, err := c.loadMetadata(ctx)
	if err != nil {
		return err
	}
	if meta == nil || len(meta.OrderedIDs) < c.maxEntries {
		return nil
	}

	evicted := meta.OrderedIDs[c.maxEntries-1:]
	keys := make([]string, len(evicted))
	for i, id := range evicted {
		keys[i] = entryKey(id)
	}
	if err := c.store.Remove(ctx, keys); err != nil {
		return fmt.Errorf("failed to evict entries: %w", err)
	}

	meta.OrderedIDs = meta.OrderedIDs[:c.maxEntries-1]
	meta.LastCleanup = time.Now()

	if err := c.saveMetadata(ctx, meta); err != nil {
		return err
	}

	log.FromCtx(ctx).Info().
		Int("evicted", len(evicted)).
		Int("remaining", len(meta.OrderedIDs)).
		Msg("cache quota enforced")
	return nil
}

// loadMetadata returns nil without error when no metadata exists yet.
func (c *Cache) loadMetadata(ctx context.Context) (*metadata, error) {
	values, err := c.store.Get(ctx, []string{metadataKey})
	if err != nil {
		return nil, err
	}
	raw, ok := values[metadataKey]
	if !ok {
		return nil, nil
	}

	var meta metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("cache metadata is corrupt: %w", err)
	}
	return &meta, nil
}

func (c *Cache) saveMetadata(ctx context.Context, meta *metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}
	return c.store.Set(ctx, map[string]string{metadataKey: string(data)})
}

func without(ids []string, itemID string) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if id != itemID {
			out = append(out, id)
		}
	}
	return out
}
