package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/cache"
	"github.com/lborres/bantay/pkg/logger"
	"github.com/lborres/bantay/pkg/metrics"
)

const (
	testWindow      = 30 * time.Second
	testContentRead = 50 * time.Millisecond
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type contentFixture struct {
	docs     *FakeDocumentStore
	snapshot *cache.MemorySnapshot
	clock    *fakeClock
	metrics  *metrics.Metrics
	content  *ContentListCache
}

func newContentFixture(t *testing.T) *contentFixture {
	t.Helper()

	f := &contentFixture{
		docs:     NewFakeDocumentStore(),
		snapshot: cache.NewMemorySnapshot(),
		clock:    newFakeClock(),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	f.content = NewContentListCache(ContentConfig{
		Remote:   f.docs,
		Snapshot: f.snapshot,
		Window:   testWindow,
		Bound:    testContentRead,
		Clock:    f.clock.Now,
		Logger:   logger.Discard(),
		Metrics:  f.metrics,
	})
	t.Cleanup(f.content.Wait)
	return f
}

func article(id, date string) core.ContentItem {
	return core.ContentItem{
		ID:               id,
		Type:             core.ContentArticle,
		Title:            "Title " + id,
		Date:             date,
		OriginalLanguage: core.LanguageEN,
		Tags:             []string{"news"},
	}
}

func ids(items []core.ContentItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

// Requirement: an absent or empty remote never yields an empty list.
func TestContentListCache_FallsBackToSeed(t *testing.T) {
	tests := []struct {
		name    string
		arrange func(*FakeDocumentStore)
	}{
		{name: "empty collection", arrange: func(*FakeDocumentStore) {}},
		{name: "remote error", arrange: func(d *FakeDocumentStore) { d.SetError(errFakeStore) }},
		{name: "remote slower than bound", arrange: func(d *FakeDocumentStore) { d.SetDelay(20 * testContentRead) }},
		{name: "remote panics", arrange: func(d *FakeDocumentStore) { d.SetPanic(true) }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			f := newContentFixture(t)
			test.arrange(f.docs)

			// Act
			start := time.Now()
			items, err := f.content.Load(context.Background())
			elapsed := time.Since(start)

			// Assert
			require.NoError(t, err)
			assert.NotEmpty(t, items)
			assert.Equal(t, ids(SeedContent()), ids(items))
			assert.Less(t, elapsed, 10*testContentRead)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ContentLoads.WithLabelValues("seed")))
		})
	}
}

// Requirement: the seed dataset is never written to the snapshot.
func TestContentListCache_SeedIsNotCached(t *testing.T) {
	f := newContentFixture(t)

	_, err := f.content.Load(context.Background())
	require.NoError(t, err)

	_, err = f.snapshot.Load(context.Background())
	assert.True(t, errors.Is(err, core.ErrCacheNotFound))
}

func TestContentListCache_ColdLoadFetchesAndSorts(t *testing.T) {
	f := newContentFixture(t)
	f.docs.SetContent([]core.ContentItem{
		article("old", "2024-01-01"),
		article("new", "2024-03-01"),
		article("mid", "2024-02-01"),
	})

	items, err := f.content.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(items))

	entry, err := f.snapshot.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), entry.WrittenAt)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(entry.Value))
}

// Requirement: within the window the first snapshot wins; after it the
// updated remote data is served.
func TestContentListCache_StaleWhileRevalidate(t *testing.T) {
	// Arrange
	f := newContentFixture(t)
	ctx := context.Background()
	f.docs.SetContent([]core.ContentItem{article("a1", "2024-05-01")})

	// Act
	first, err := f.content.Load(ctx)
	require.NoError(t, err)

	f.docs.SetContent([]core.ContentItem{article("b1", "2024-05-02"), article("a1", "2024-05-01")})
	f.clock.Advance(5 * time.Second)

	second, err := f.content.Load(ctx)
	require.NoError(t, err)
	f.content.Wait()

	f.clock.Advance(testWindow + time.Second)
	third, err := f.content.Load(ctx)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a1"}, ids(second))
	assert.Equal(t, []string{"b1", "a1"}, ids(third))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ContentLoads.WithLabelValues("cache")))
}

// Requirement: a fresh hit refreshes the snapshot in the background.
func TestContentListCache_FreshHitRevalidates(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	require.NoError(t, f.snapshot.Save(ctx, core.NewCacheEntry([]core.ContentItem{article("cached", "2024-05-01")}, f.clock.Now())))
	f.docs.SetContent([]core.ContentItem{article("remote", "2024-05-03")})

	items, err := f.content.Load(ctx)
	require.NoError(t, err)
	f.content.Wait()

	assert.Equal(t, []string{"cached"}, ids(items))
	entry, err := f.snapshot.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"remote"}, ids(entry.Value))
	assert.EqualValues(t, 1, f.docs.ListCalls())
}

// Requirement: a failed revalidation keeps the last good snapshot.
func TestContentListCache_FailedRevalidationKeepsSnapshot(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	require.NoError(t, f.snapshot.Save(ctx, core.NewCacheEntry([]core.ContentItem{article("cached", "2024-05-01")}, f.clock.Now())))
	f.docs.SetError(errFakeStore)

	_, err := f.content.Load(ctx)
	require.NoError(t, err)
	f.content.Wait()

	entry, err := f.snapshot.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cached"}, ids(entry.Value))
}

// Requirement: concurrent fresh hits share one background refresh.
func TestContentListCache_RevalidationIsShared(t *testing.T) {
	// Arrange
	f := newContentFixture(t)
	f.content.bound = time.Second
	ctx := context.Background()
	require.NoError(t, f.snapshot.Save(ctx, core.NewCacheEntry([]core.ContentItem{article("cached", "2024-05-01")}, f.clock.Now())))
	f.docs.SetContent([]core.ContentItem{article("remote", "2024-05-03")})
	release := f.docs.Block()

	// Act
	for i := 0; i < 5; i++ {
		_, err := f.content.Load(ctx)
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return f.docs.ListCalls() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	release()
	f.content.Wait()

	// Assert
	assert.EqualValues(t, 1, f.docs.ListCalls())
}

// Requirement: a stale snapshot with an unreachable remote falls back to the seed.
func TestContentListCache_StaleSnapshotAndRemoteDown(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	require.NoError(t, f.snapshot.Save(ctx, core.NewCacheEntry([]core.ContentItem{article("cached", "2024-05-01")}, f.clock.Now())))
	f.clock.Advance(testWindow)
	f.docs.SetError(errFakeStore)

	items, err := f.content.Load(ctx)

	require.NoError(t, err)
	assert.Equal(t, ids(SeedContent()), ids(items))
}

func TestContentListCache_ReturnsCopies(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	f.docs.SetContent([]core.ContentItem{article("a1", "2024-05-01")})

	first, err := f.content.Load(ctx)
	require.NoError(t, err)
	first[0].Title = "changed"
	first[0].Tags[0] = "changed"

	second, err := f.content.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Title a1", second[0].Title)
	assert.Equal(t, "news", second[0].Tags[0])
}

func TestSeedContent(t *testing.T) {
	items := SeedContent()

	require.NotEmpty(t, items)
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Date, items[i].Date)
	}
	for _, item := range items {
		assert.True(t, item.OriginalLanguage.Valid())
		assert.NotEmpty(t, item.ID)
	}

	items[0].Title = "changed"
	assert.NotEqual(t, "changed", SeedContent()[0].Title)
}

// stuckSnapshot never answers until released.
type stuckSnapshot struct {
	gate chan struct{}
}

func newStuckSnapshot(t *testing.T) *stuckSnapshot {
	s := &stuckSnapshot{gate: make(chan struct{})}
	t.Cleanup(func() { close(s.gate) })
	return s
}

func (s *stuckSnapshot) Load(context.Context) (*core.CacheEntry[[]core.ContentItem], error) {
	<-s.gate
	return nil, core.ErrCacheNotFound
}

func (s *stuckSnapshot) Save(context.Context, core.CacheEntry[[]core.ContentItem]) error {
	<-s.gate
	return nil
}

// Requirement: a hanging snapshot store counts as a miss and never stalls Load.
func TestContentListCache_HangingSnapshotIsAMiss(t *testing.T) {
	tests := []struct {
		name    string
		arrange func(*FakeDocumentStore)
		want    []string
		source  string
	}{
		{
			name:    "remote answers",
			arrange: func(d *FakeDocumentStore) { d.SetContent([]core.ContentItem{article("a1", "2024-05-01")}) },
			want:    []string{"a1"},
			source:  "remote",
		},
		{
			name:    "remote down",
			arrange: func(d *FakeDocumentStore) { d.SetError(errFakeStore) },
			want:    ids(SeedContent()),
			source:  "seed",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			docs := NewFakeDocumentStore()
			test.arrange(docs)
			m := metrics.New(prometheus.NewRegistry())
			content := NewContentListCache(ContentConfig{
				Remote:   docs,
				Snapshot: newStuckSnapshot(t),
				Window:   testWindow,
				Bound:    testContentRead,
				Logger:   logger.Discard(),
				Metrics:  m,
			})
			t.Cleanup(content.Wait)

			// Act
			start := time.Now()
			items, err := content.Load(context.Background())
			elapsed := time.Since(start)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, test.want, ids(items))
			assert.Less(t, elapsed, 10*testContentRead)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.ContentLoads.WithLabelValues(test.source)))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.BoundedCalls.WithLabelValues("snapshot_read", "timeout")))
		})
	}
}
