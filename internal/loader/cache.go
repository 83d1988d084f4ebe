package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/couchcryptid/collisions-dashboard/internal/lru"
	"github.com/couchcryptid/collisions-dashboard/internal/observability"
	"golang.org/x/sync/singleflight"
)

// SnapshotStore persists loaded tables across process restarts.
type SnapshotStore interface {
	Get(ctx context.Context, key string) (*domain.Table, bool, error)
	Put(ctx context.Context, key string, table *domain.Table) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every snapshot whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// Cache memoizes tables per row limit. Entries live until evicted by the LRU
// bound or dropped through Invalidate/InvalidateAll.
type Cache struct {
	source  Source
	store   SnapshotStore // nil disables persistence
	logger  *slog.Logger
	metrics *observability.Metrics

	group singleflight.Group

	mu    sync.Mutex
	lru   *lru.Cache[int, *domain.Table]
	known map[int]struct{} // row limits requested since start
	gen   uint64           // bumped on invalidation; stale loads are neither cached nor persisted
}

// NewCache creates a cache over source holding at most maxEntries tables.
// Pass a nil store to keep tables in memory only.
func NewCache(source Source, store SnapshotStore, maxEntries int, logger *slog.Logger, metrics *observability.Metrics) *Cache {
	return &Cache{
		source:  source,
		store:   store,
		logger:  logger,
		metrics: metrics,
		lru:     lru.New[int, *domain.Table](maxEntries),
		known:   make(map[int]struct{}),
	}
}

// Get returns the table for rowLimit, loading it on first use. Concurrent
// callers for the same rowLimit share one load; a caller whose ctx ends stops
// waiting without cancelling the shared load.
func (c *Cache) Get(ctx context.Context, rowLimit int) (*domain.Table, error) {
	if t, ok := c.cached(rowLimit); ok {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return t, nil
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()

	c.mu.Lock()
	c.known[rowLimit] = struct{}{}
	c.mu.Unlock()

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey(rowLimit), func() (any, error) {
		// A load that finished between the miss and this call already filled the LRU.
		if t, ok := c.cached(rowLimit); ok {
			return t, nil
		}

		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()

		t, err := c.load(loadCtx, rowLimit, gen)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if gen == c.gen {
			c.lru.Put(rowLimit, t)
		}
		c.mu.Unlock()
		return t, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Table), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the table cached for rowLimit, including its persisted
// snapshot. Loads already running are not cached or persisted, and later Gets
// start a fresh load.
func (c *Cache) Invalidate(ctx context.Context, rowLimit int) {
	c.mu.Lock()
	c.lru.Remove(rowLimit)
	c.gen++
	c.group.Forget(flightKey(rowLimit))
	c.mu.Unlock()

	c.deleteSnapshot(ctx, rowLimit)
	c.logger.Info("table cache invalidated", "row_limit", rowLimit)
}

// InvalidateAll drops every cached table and every persisted snapshot of the
// source, including row limits no longer held in memory.
func (c *Cache) InvalidateAll(ctx context.Context) {
	c.mu.Lock()
	entries := c.lru.Len()
	c.lru.Clear()
	c.gen++
	for rowLimit := range c.known {
		c.group.Forget(flightKey(rowLimit))
	}
	c.mu.Unlock()

	if c.store != nil {
		prefix := c.source.Name() + "|"
		if err := c.store.DeletePrefix(ctx, prefix); err != nil {
			c.metrics.SnapshotErrors.WithLabelValues("delete").Inc()
			c.logger.Warn("snapshot delete failed", "prefix", prefix, "error", err)
		}
	}
	c.logger.Info("table cache cleared", "entries", entries)
}

func (c *Cache) cached(rowLimit int) (*domain.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(rowLimit)
}

// Len returns the number of tables held in memory.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) load(ctx context.Context, rowLimit int, gen uint64) (*domain.Table, error) {
	key := c.snapshotKey(rowLimit)

	if c.store != nil {
		t, ok, err := c.store.Get(ctx, key)
		switch {
		case err != nil:
			c.metrics.SnapshotErrors.WithLabelValues("get").Inc()
			c.logger.Warn("snapshot read failed, loading from file", "key", key, "error", err)
		case ok:
			c.metrics.TableLoads.WithLabelValues("snapshot").Inc()
			c.observeTable(t)
			c.logger.Info("table restored from snapshot", "key", key, "table_id", t.ID, "rows", t.Len())
			return t, nil
		}
	}

	start := time.Now()
	t, err := c.source.Load(ctx, rowLimit)
	if err != nil {
		c.metrics.LoadErrors.Inc()
		return nil, fmt.Errorf("load table: %w", err)
	}
	c.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	c.metrics.TableLoads.WithLabelValues("file").Inc()
	c.observeTable(t)

	c.logger.Info("table loaded",
		"source", t.Source,
		"table_id", t.ID,
		"row_limit", rowLimit,
		"rows_read", t.RowsRead,
		"rows_dropped", t.RowsDropped,
		"rows", t.Len(),
		"duration", time.Since(start),
	)

	if c.store != nil && c.current(gen) {
		if err := c.store.Put(ctx, key, t); err != nil {
			c.metrics.SnapshotErrors.WithLabelValues("put").Inc()
			c.logger.Warn("snapshot write failed", "key", key, "error", err)
		} else if !c.current(gen) {
			// Invalidated while writing: the invalidation's delete may have run first.
			c.deleteSnapshot(ctx, rowLimit)
		}
	}
	return t, nil
}

// current reports whether no invalidation happened since gen was read.
func (c *Cache) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

func (c *Cache) observeTable(t *domain.Table) {
	c.metrics.RowsLoaded.Set(float64(t.Len()))
	c.metrics.RowsDropped.Set(float64(t.RowsDropped))
}

func (c *Cache) deleteSnapshot(ctx context.Context, rowLimit int) {
	if c.store == nil {
		return
	}
	key := c.snapshotKey(rowLimit)
	if err := c.store.Delete(ctx, key); err != nil {
		c.metrics.SnapshotErrors.WithLabelValues("delete").Inc()
		c.logger.Warn("snapshot delete failed", "key", key, "error", err)
	}
}

func flightKey(rowLimit int) string {
	return strconv.Itoa(rowLimit)
}

func (c *Cache) snapshotKey(rowLimit int) string {
	return fmt.Sprintf("%s|%d", c.source.Name(), rowLimit)
}
