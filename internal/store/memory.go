package store

import (
	"context"
	"time"

	"imgproxy/internal/imageid"
	"imgproxy/internal/lru"
)

// MemoryStore is a sharded approximate-LRU store. Background is a no-op:
// the LRU evicts inline on Set, there is nothing periodic to do.
type MemoryStore struct {
	cache *lru.Cache[Original]
}

// NewMemoryStore creates a MemoryStore bounded to capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{cache: lru.New[Original](capacity)}
}

func (m *MemoryStore) Get(_ context.Context, id imageid.ID) (Original, bool) {
	return m.cache.Get(id.String())
}

func (m *MemoryStore) Set(_ context.Context, id imageid.ID, data Original) error {
	m.cache.Set(id.String(), data)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, id imageid.ID) error {
	m.cache.Remove(id.String())
	return nil
}

func (m *MemoryStore) BackgroundPeriod() time.Duration { return 0 }
func (m *MemoryStore) Background(context.Context)      {}
func (m *MemoryStore) Stop(context.Context) error       { return nil }
