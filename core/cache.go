package core

import "time"

// DefaultFreshnessWindow is how long a content list entry is served
// without a blocking refetch.
const DefaultFreshnessWindow = 30 * time.Second

// CacheEntry is a cached value stamped with the time it was written.
type CacheEntry[T any] struct {
	Value     T         `json:"value"`
	WrittenAt time.Time `json:"writtenAt"`
}

func NewCacheEntry[T any](value T, now time.Time) CacheEntry[T] {
	return CacheEntry[T]{Value: value, WrittenAt: now}
}

func (e CacheEntry[T]) Age(now time.Time) time.Duration {
	return now.Sub(e.WrittenAt)
}

// FreshWithin reports whether the entry is younger than window.
// An entry written exactly window ago is stale.
func (e CacheEntry[T]) FreshWithin(window time.Duration, now time.Time) bool {
	return e.Age(now) < window
}
