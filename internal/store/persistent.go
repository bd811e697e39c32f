package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"go.uber.org/zap"

	"imgproxy/internal/buffer"
	"imgproxy/internal/engine"
	"imgproxy/internal/imageid"
)

// persistentFlushPeriod matches spec.md §4.2: the persistent store flushes
// every 60s.
const persistentFlushPeriod = 60 * time.Second

// originalDTO is Original's on-disk shape (compact binary via gob), the
// same convention internal/derivative's persistent variant uses for its
// payload/index values.
type originalDTO struct {
	Data     []byte
	Filename string
}

func encodeOriginal(o Original) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(originalDTO{Data: o.Data.Bytes(), Filename: o.Filename}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeOriginal(raw []byte) (Original, error) {
	var dto originalDTO
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&dto); err != nil {
		return Original{}, err
	}
	return Original{Data: buffer.New(dto.Data), Filename: dto.Filename}, nil
}

// PersistentStore wraps the engine's "storage" keyspace. Capacity is
// advisory only (it only sized the engine's cache at construction); the
// on-disk set is unbounded here.
type PersistentStore struct {
	eng    *engine.Engine
	logger *zap.Logger
}

// NewPersistentStore wraps eng's storage keyspace.
func NewPersistentStore(eng *engine.Engine, logger *zap.Logger) *PersistentStore {
	return &PersistentStore{eng: eng, logger: logger}
}

func (p *PersistentStore) Get(ctx context.Context, id imageid.ID) (Original, bool) {
	raw, ok := p.eng.Get(ctx, engine.SpaceStorage, []byte(id))
	if !ok {
		return Original{}, false
	}
	o, err := decodeOriginal(raw)
	if err != nil {
		p.logger.Warn("persistent store: corrupted entry, treating as miss",
			zap.String("image_id", id.String()), zap.Error(err))
		return Original{}, false
	}
	return o, true
}

func (p *PersistentStore) Set(ctx context.Context, id imageid.ID, data Original) error {
	payload, err := encodeOriginal(data)
	if err != nil {
		p.logger.Warn("persistent store: failed to encode entry", zap.Error(err))
		return nil
	}
	if err := p.eng.Set(ctx, engine.SpaceStorage, []byte(id), payload); err != nil {
		p.logger.Warn("persistent store set failed", zap.String("image_id", id.String()), zap.Error(err))
		return nil // a tier write failure is swallowed; the store is a cache over upstream truth.
	}
	return nil
}

func (p *PersistentStore) Remove(ctx context.Context, id imageid.ID) error {
	if err := p.eng.Remove(ctx, engine.SpaceStorage, []byte(id)); err != nil {
		p.logger.Warn("persistent store remove failed", zap.String("image_id", id.String()), zap.Error(err))
	}
	return nil
}

func (p *PersistentStore) BackgroundPeriod() time.Duration { return persistentFlushPeriod }

func (p *PersistentStore) Background(ctx context.Context) {
	if err := p.eng.Flush(ctx, false); err != nil {
		p.logger.Warn("persistent store background flush failed", zap.Error(err))
	}
}

func (p *PersistentStore) Stop(ctx context.Context) error {
	return p.eng.Flush(ctx, true)
}
