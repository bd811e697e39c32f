package derivative

import (
	"bytes"
	"context"
	"encoding/gob"
	"sync"
	"time"

	"go.uber.org/zap"

	"imgproxy/internal/buffer"
	"imgproxy/internal/engine"
	"imgproxy/internal/imageid"
	"imgproxy/internal/observability"
	"imgproxy/internal/params"
)

// encodedImageDTO is EncodedImage's on-disk shape (compact binary via gob).
type encodedImageDTO struct {
	Data      []byte
	Filename  *string
	Extension params.Extension
}

func encodeImage(img EncodedImage) ([]byte, error) {
	var buf bytes.Buffer
	dto := encodedImageDTO{Data: img.Data.Bytes(), Filename: img.Filename, Extension: img.Extension}
	if err := gob.NewEncoder(&buf).Encode(dto); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeImage(raw []byte) (EncodedImage, error) {
	var dto encodedImageDTO
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&dto); err != nil {
		return EncodedImage{}, err
	}
	return EncodedImage{
		Data:      buffer.New(dto.Data),
		Filename:  dto.Filename,
		Extension: dto.Extension,
	}, nil
}

func encodeIndex(items []params.Params) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeIndex(raw []byte) ([]params.Params, error) {
	var items []params.Params
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}

// PersistentCache is the derivative cache variant backed by the engine's
// "cache" (payloads) and "cache_entries" (per-id VariantIndex) keyspaces.
// Admission is serialized by a single cache-wide mutex, same rationale as
// MemoryCache.
type PersistentCache struct {
	eng     *engine.Engine
	cfg     Config
	metrics *observability.Collector
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewPersistentCache wraps eng's cache/cache_entries keyspaces. metrics may
// be nil in tests.
func NewPersistentCache(eng *engine.Engine, cfg Config, metrics *observability.Collector, logger *zap.Logger) *PersistentCache {
	return &PersistentCache{eng: eng, cfg: cfg, metrics: metrics, logger: logger}
}

func (p *PersistentCache) loadIndex(ctx context.Context, id imageid.ID) *VariantIndex {
	raw, ok := p.eng.Get(ctx, engine.SpaceCacheEntries, []byte(id))
	if !ok {
		return &VariantIndex{}
	}
	items, err := decodeIndex(raw)
	if err != nil {
		p.logger.Warn("derivative cache: corrupted variant index, treating as empty",
			zap.String("image_id", id.String()), zap.Error(err))
		return &VariantIndex{}
	}
	idx := &VariantIndex{}
	for _, it := range items {
		idx.Insert(it)
	}
	return idx
}

func (p *PersistentCache) storeIndex(ctx context.Context, id imageid.ID, idx *VariantIndex) {
	raw, err := encodeIndex(idx.All())
	if err != nil {
		p.logger.Warn("derivative cache: failed to encode variant index", zap.Error(err))
		return
	}
	if err := p.eng.Set(ctx, engine.SpaceCacheEntries, []byte(id), raw); err != nil {
		p.logger.Warn("derivative cache: failed to persist variant index",
			zap.String("image_id", id.String()), zap.Error(err))
	}
}

func (p *PersistentCache) Get(ctx context.Context, id imageid.ID, prm params.Params) (EncodedImage, bool) {
	raw, ok := p.eng.Get(ctx, engine.SpaceCache, []byte(key(id, prm)))
	if !ok {
		return EncodedImage{}, false
	}
	img, err := decodeImage(raw)
	if err != nil {
		p.logger.Warn("derivative cache: corrupted payload, treating as miss",
			zap.String("image_id", id.String()), zap.Error(err))
		return EncodedImage{}, false
	}
	return img, true
}

// Set writes the payload before the variant index, per spec.md §4.3/§9: a
// crash between the two leaves a stale index entry, which self-heals as a
// miss on read, rather than a payload with no index entry (which would leak
// until a manual remove-by-prefix).
func (p *PersistentCache) Set(ctx context.Context, id imageid.ID, prm params.Params, img EncodedImage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.loadIndex(ctx, id)
	decision, evict := decideAdmission(idx, prm, p.cfg)

	switch decision {
	case decisionNoop:
		return nil
	case decisionReject:
		return ErrLimitExceeded
	case decisionEvictAndInsert:
		idx.Remove(evict)
		if p.metrics != nil {
			p.metrics.AdmissionEvictions.Inc()
		}
		fallthrough
	case decisionInsert:
		idx.Insert(prm)
	}

	payload, err := encodeImage(img)
	if err != nil {
		p.logger.Warn("derivative cache: failed to encode payload", zap.Error(err))
		return nil
	}
	if err := p.eng.Set(ctx, engine.SpaceCache, []byte(key(id, prm)), payload); err != nil {
		p.logger.Warn("derivative cache: failed to persist payload",
			zap.String("image_id", id.String()), zap.Error(err))
		return nil
	}

	p.storeIndex(ctx, id, idx)

	if decision == decisionEvictAndInsert {
		if err := p.eng.Remove(ctx, engine.SpaceCache, []byte(key(id, evict))); err != nil {
			p.logger.Warn("derivative cache: failed to remove evicted payload", zap.Error(err))
		}
	}
	return nil
}

func (p *PersistentCache) Remove(ctx context.Context, id imageid.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.eng.RemoveByPrefix(ctx, engine.SpaceCache, []byte(removePrefix(id))); err != nil {
		p.logger.Warn("derivative cache: remove by prefix failed",
			zap.String("image_id", id.String()), zap.Error(err))
	}
	if err := p.eng.Remove(ctx, engine.SpaceCacheEntries, []byte(id)); err != nil {
		p.logger.Warn("derivative cache: remove variant index failed",
			zap.String("image_id", id.String()), zap.Error(err))
	}
	return nil
}

// BackgroundPeriod mirrors the Rust original's PersistentProcessedImageCache:
// the shared engine's flush (driven by the store tier's Background) already
// durably persists this keyspace, so there is nothing additional to do here.
func (p *PersistentCache) BackgroundPeriod() time.Duration { return 60 * time.Second }
func (p *PersistentCache) Background(context.Context)      {}
func (p *PersistentCache) Stop(context.Context) error      { return nil }
