package cache

import (
	"context"
	"sync"

	"github.com/lborres/bantay/core"
)

// MemorySnapshot holds one content list entry in process memory.
type MemorySnapshot struct {
	mu    sync.RWMutex
	entry *core.CacheEntry[[]core.ContentItem]
}

var _ core.ContentSnapshotStore = (*MemorySnapshot)(nil)

func NewMemorySnapshot() *MemorySnapshot {
	return &MemorySnapshot{}
}

func (s *MemorySnapshot) Load(_ context.Context) (*core.CacheEntry[[]core.ContentItem], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entry == nil {
		return nil, core.ErrCacheNotFound
	}
	out := core.NewCacheEntry(core.CloneContent(s.entry.Value), s.entry.WrittenAt)
	return &out, nil
}

func (s *MemorySnapshot) Save(_ context.Context, entry core.CacheEntry[[]core.ContentItem]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := core.NewCacheEntry(core.CloneContent(entry.Value), entry.WrittenAt)
	s.entry = &stored
	return nil
}
