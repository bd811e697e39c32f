// Package store implements the original-bytes store (C2): ImageId -> bytes,
// with interchangeable in-memory and persistent backends.
package store

import (
	"context"

	"imgproxy/internal/buffer"
	"imgproxy/internal/imageid"
	"imgproxy/internal/scheduler"
)

// Original is the value stored for an ImageId: its immutable bytes plus the
// filename hint captured at preload time (spec.md §4.5's
// prefetch(id, filename_hint, bytes)), empty when the original came from an
// upstream fetch rather than a preload. Carried through to the derivative
// cache's EncodedImage.Filename when this original is processed.
type Original struct {
	Data     buffer.Shared
	Filename string
}

// Store is the original-bytes store contract. Both implementations are
// safe for concurrent use. MemoryStore guards each of its 16 LRU shards with
// one mutex that reads take too (a read refreshes recency), so calls for ids
// that hash to the same shard, reads included, wait for one another;
// PersistentStore hands every call to the engine.
type Store interface {
	scheduler.Service

	// Get returns the stored original for id, or (zero, false) on miss.
	Get(ctx context.Context, id imageid.ID) (Original, bool)
	// Set idempotently overwrites the original stored for id. Two concurrent
	// Sets for the same id are linearizable: the last one to apply wins.
	Set(ctx context.Context, id imageid.ID, data Original) error
	// Remove deletes any stored original for id.
	Remove(ctx context.Context, id imageid.ID) error
}
