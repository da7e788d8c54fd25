package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/metrics"
)

type ContentConfig struct {
	Remote   core.ContentStore
	Snapshot core.ContentSnapshotStore

	// Window is how long an entry is served without a blocking fetch.
	Window time.Duration
	// Bound limits each remote list read.
	Bound time.Duration
	// SnapshotBound limits each snapshot read or write. Defaults to Bound.
	SnapshotBound time.Duration

	Seed    func() []core.ContentItem
	Clock   func() time.Time
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// ContentListCache serves the content list stale-while-revalidate, with
// the seed dataset as a last resort. The seed is never cached.
type ContentListCache struct {
	remote    core.ContentStore
	snapshot  core.ContentSnapshotStore
	window    time.Duration
	bound     time.Duration
	snapBound time.Duration
	seed      func() []core.ContentItem
	now       func() time.Time
	log       *slog.Logger
	metrics   *metrics.Metrics

	refresh    singleflight.Group
	background sync.WaitGroup
}

func NewContentListCache(cfg ContentConfig) *ContentListCache {
	c := &ContentListCache{
		remote:    cfg.Remote,
		snapshot:  cfg.Snapshot,
		window:    cfg.Window,
		bound:     cfg.Bound,
		snapBound: cfg.SnapshotBound,
		seed:      cfg.Seed,
		now:       cfg.Clock,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
	}
	if c.window == 0 {
		c.window = core.DefaultFreshnessWindow
	}
	if c.bound == 0 {
		c.bound = core.DefaultBounds().ContentRead
	}
	if c.snapBound == 0 {
		c.snapBound = c.bound
	}
	if c.seed == nil {
		c.seed = SeedContent
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With("component", "content_cache")
	return c
}

// Load never fails and never returns an empty list.
func (c *ContentListCache) Load(ctx context.Context) ([]core.ContentItem, error) {
	entry, ok := c.readSnapshot(ctx)
	if ok && entry.FreshWithin(c.window, c.now()) {
		c.revalidate(ctx)
		c.metrics.ObserveContentLoad("cache")
		return core.CloneContent(entry.Value), nil
	}

	if items, ok := c.fetch(ctx); ok {
		c.metrics.ObserveContentLoad("remote")
		return items, nil
	}

	c.metrics.ObserveContentLoad("seed")
	return c.seed(), nil
}

// Wait blocks until detached revalidations have finished.
func (c *ContentListCache) Wait() {
	c.background.Wait()
}

func (c *ContentListCache) revalidate(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	c.background.Add(1)
	go func() {
		defer c.background.Done()
		_, _, _ = c.refresh.Do("content", func() (any, error) {
			c.fetch(ctx)
			return nil, nil
		})
	}()
}

// fetch reads the remote list under the bound and stores it when it is
// non-empty. The returned slice is owned by the caller.
func (c *ContentListCache) fetch(ctx context.Context) ([]core.ContentItem, bool) {
	res := core.CallWithBound(ctx, c.bound, c.remote.ListContent)
	c.metrics.ObserveBoundedCall("content_read", res.Outcome.String(), res.Elapsed)

	items, ok := res.Get()
	if !ok {
		c.log.WarnContext(ctx, "content list unavailable",
			"outcome", res.Outcome.String(),
			"elapsed", res.Elapsed,
			"error", res.Err,
		)
		return nil, false
	}
	if len(items) == 0 {
		c.log.InfoContext(ctx, "remote content list is empty")
		return nil, false
	}

	items = core.CloneContent(items)
	core.SortByDateDesc(items)

	c.writeSnapshot(ctx, core.NewCacheEntry(items, c.now()))
	return core.CloneContent(items), true
}

// readSnapshot treats a slow or failing snapshot store as a miss.
func (c *ContentListCache) readSnapshot(ctx context.Context) (*core.CacheEntry[[]core.ContentItem], bool) {
	res := core.CallWithBound(ctx, c.snapBound, c.snapshot.Load)
	c.metrics.ObserveBoundedCall("snapshot_read", res.Outcome.String(), res.Elapsed)

	entry, ok := res.Get()
	if !ok {
		if !errors.Is(res.Err, core.ErrCacheNotFound) {
			c.log.WarnContext(ctx, "content snapshot unavailable",
				"outcome", res.Outcome.String(),
				"elapsed", res.Elapsed,
				"error", res.Err,
			)
		}
		return nil, false
	}
	return entry, entry != nil
}

// writeSnapshot gives up waiting after the bound; the write itself may
// still land later.
func (c *ContentListCache) writeSnapshot(ctx context.Context, entry core.CacheEntry[[]core.ContentItem]) {
	res := core.CallWithBound(ctx, c.snapBound, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.snapshot.Save(ctx, entry)
	})
	c.metrics.ObserveBoundedCall("snapshot_write", res.Outcome.String(), res.Elapsed)

	if !res.Ok() {
		c.log.WarnContext(ctx, "failed to store content snapshot",
			"outcome", res.Outcome.String(),
			"error", res.Err,
		)
	}
}
