package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lborres/bantay/core"
)

const DefaultSnapshotKey = "bantay:content:snapshot"

// SnapshotStore keeps the content snapshot in Redis so that every API
// instance serves the same last good list.
type SnapshotStore struct {
	client goredis.Cmdable
	key    string
	ttl    time.Duration
}

var _ core.ContentSnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore stores under key with the given ttl. A zero ttl keeps
// the snapshot until it is overwritten.
func NewSnapshotStore(client goredis.Cmdable, key string, ttl time.Duration) *SnapshotStore {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &SnapshotStore{client: client, key: key, ttl: ttl}
}

func (s *SnapshotStore) Load(ctx context.Context) (*core.CacheEntry[[]core.ContentItem], error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, core.ErrCacheNotFound
		}
		return nil, err
	}

	var entry core.CacheEntry[[]core.ContentItem]
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode content snapshot: %w", err)
	}
	return &entry, nil
}

func (s *SnapshotStore) Save(ctx context.Context, entry core.CacheEntry[[]core.ContentItem]) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode content snapshot: %w", err)
	}
	return s.client.Set(ctx, s.key, raw, s.ttl).Err()
}
