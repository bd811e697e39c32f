package derivative

import (
	"context"
	"sync"
	"time"

	"imgproxy/internal/imageid"
	"imgproxy/internal/lru"
	"imgproxy/internal/observability"
	"imgproxy/internal/params"
)

// MemoryCache is the in-memory derivative cache variant: one sharded LRU for
// payloads plus a map of per-id VariantIndex, admission-serialized by a
// single cache-wide mutex (spec.md §9: acceptable since admission throughput
// is bounded by decode/encode work, not lock contention).
type MemoryCache struct {
	cfg     Config
	metrics *observability.Collector

	mu      sync.Mutex
	indexes map[imageid.ID]*VariantIndex

	payloads *lru.Cache[EncodedImage]
}

// NewMemoryCache creates a MemoryCache whose payload LRU holds up to
// payloadCapacity entries. metrics may be nil in tests.
func NewMemoryCache(payloadCapacity int, cfg Config, metrics *observability.Collector) *MemoryCache {
	return &MemoryCache{
		cfg:      cfg,
		metrics:  metrics,
		indexes:  make(map[imageid.ID]*VariantIndex),
		payloads: lru.New[EncodedImage](payloadCapacity),
	}
}

func (m *MemoryCache) Get(_ context.Context, id imageid.ID, p params.Params) (EncodedImage, bool) {
	// The payload LRU may have independently evicted this entry even though
	// the VariantIndex still lists p; that is surfaced as a plain miss.
	return m.payloads.Get(key(id, p))
}

func (m *MemoryCache) Set(_ context.Context, id imageid.ID, p params.Params, img EncodedImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.indexes[id]
	if !ok {
		idx = &VariantIndex{}
		m.indexes[id] = idx
	}

	decision, evict := decideAdmission(idx, p, m.cfg)
	switch decision {
	case decisionNoop:
		return nil
	case decisionReject:
		return ErrLimitExceeded
	case decisionEvictAndInsert:
		idx.Remove(evict)
		m.payloads.Remove(key(id, evict))
		if m.metrics != nil {
			m.metrics.AdmissionEvictions.Inc()
		}
		fallthrough
	case decisionInsert:
		idx.Insert(p)
		m.payloads.Set(key(id, p), img)
	}
	return nil
}

func (m *MemoryCache) Remove(_ context.Context, id imageid.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.indexes, id)
	m.payloads.RemoveByPrefix(removePrefix(id))
	return nil
}

func (m *MemoryCache) BackgroundPeriod() time.Duration { return 0 }
func (m *MemoryCache) Background(context.Context)      {}
func (m *MemoryCache) Stop(context.Context) error       { return nil }
