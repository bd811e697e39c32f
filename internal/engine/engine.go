// Package engine wraps an embedded ordered key-value store (bbolt) behind
// the three logical keyspaces the persistent store/cache tiers need:
// storage (originals), cache (derivative payloads) and cache_entries
// (per-id variant indexes). It is the Go analogue of the Rust original's
// sled-backed persistent_store.
package engine

import (
	"bytes"
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"imgproxy/internal/workerpool"
)

// Space names a logical keyspace (bbolt bucket).
type Space string

const (
	SpaceStorage      Space = "storage"
	SpaceCache        Space = "cache"
	SpaceCacheEntries Space = "cache_entries"
)

var allSpaces = []Space{SpaceStorage, SpaceCache, SpaceCacheEntries}

// Engine is a thread-safe, durable key-value engine partitioned into
// keyspaces. All methods dispatch the underlying bbolt transaction to a
// bounded worker pool and block the caller until it completes, so a
// goroutine calling into the engine never itself performs the blocking
// syscalls bbolt needs.
type Engine struct {
	db   *bbolt.DB
	pool *workerpool.Pool
}

// Options configures the cache memory bbolt is allowed to use, sized at
// startup per spec.md §4.1: source_img_budget*storage_capacity +
// derivative_img_budget*cache_capacity, with per-image estimates of 2MiB
// (originals) and 64KiB (derivatives). bbolt itself is mmap-backed and does
// not take an explicit cache-size knob; InitialMmapSize is sized from the
// same budget so the OS page cache is pre-warmed for the expected working
// set instead of growing the mapping incrementally.
type Options struct {
	Path               string
	StorageCapacity    int
	DerivativeCapacity int
}

const (
	originalBudgetBytes   = 2 * 1024 * 1024
	derivativeBudgetBytes = 64 * 1024
)

// Open opens (creating if absent) the bbolt database at opts.Path and
// ensures all three keyspaces exist.
func Open(opts Options) (*Engine, error) {
	budget := opts.StorageCapacity*originalBudgetBytes + opts.DerivativeCapacity*derivativeBudgetBytes
	db, err := bbolt.Open(opts.Path, 0o600, &bbolt.Options{
		InitialMmapSize: budget,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: open %s: %w", opts.Path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, s := range allSpaces {
			if _, err := tx.CreateBucketIfNotExists([]byte(s)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("engine: init keyspaces: %w", err)
	}

	return &Engine{db: db, pool: workerpool.New(0)}, nil
}

// Get returns the value for key in space, or (nil, false) on miss. Any I/O
// error is treated as a miss — the engine is a cache, never a source of
// truth the caller must trust.
func (e *Engine) Get(ctx context.Context, space Space, key []byte) ([]byte, bool) {
	type out struct {
		v  []byte
		ok bool
	}
	res, _ := workerpool.Submit(ctx, e.pool, func() (out, error) {
		var v []byte
		err := e.db.View(func(tx *bbolt.Tx) error {
			b := tx.Bucket([]byte(space))
			if b == nil {
				return nil
			}
			if raw := b.Get(key); raw != nil {
				v = append([]byte(nil), raw...)
			}
			return nil
		})
		return out{v: v, ok: v != nil}, err
	})
	return res.v, res.ok
}

// Exists reports whether key is present in space without materializing its
// value.
func (e *Engine) Exists(ctx context.Context, space Space, key []byte) bool {
	res, _ := workerpool.Submit(ctx, e.pool, func() (bool, error) {
		found := false
		err := e.db.View(func(tx *bbolt.Tx) error {
			b := tx.Bucket([]byte(space))
			if b == nil {
				return nil
			}
			found = b.Get(key) != nil
			return nil
		})
		return found, err
	})
	return res
}

// Set writes value for key in space. Last writer wins; there is no visible
// intermediate state because bbolt commits the whole transaction atomically.
// Any I/O error is logged by the caller and otherwise swallowed — a failed
// cache write must never fail the request.
func (e *Engine) Set(ctx context.Context, space Space, key, value []byte) error {
	_, err := workerpool.Submit(ctx, e.pool, func() (struct{}, error) {
		err := e.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket([]byte(space))
			if b == nil {
				var err error
				b, err = tx.CreateBucket([]byte(space))
				if err != nil {
					return err
				}
			}
			return b.Put(key, value)
		})
		return struct{}{}, err
	})
	return err
}

// Remove deletes key from space. Removing an absent key is not an error.
func (e *Engine) Remove(ctx context.Context, space Space, key []byte) error {
	_, err := workerpool.Submit(ctx, e.pool, func() (struct{}, error) {
		err := e.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket([]byte(space))
			if b == nil {
				return nil
			}
			return b.Delete(key)
		})
		return struct{}{}, err
	})
	return err
}

// RemoveByPrefix deletes every key in space starting with prefix. It is
// best-effort and not transactional across a crash: it scans and deletes
// within a single bbolt write transaction, but a partial failure midway
// (e.g. a disk error) can leave some matching keys behind; stale entries are
// tolerated by readers (they surface as a cache miss).
func (e *Engine) RemoveByPrefix(ctx context.Context, space Space, prefix []byte) error {
	_, err := workerpool.Submit(ctx, e.pool, func() (struct{}, error) {
		err := e.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket([]byte(space))
			if b == nil {
				return nil
			}
			c := b.Cursor()
			var toDelete [][]byte
			for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
			for _, k := range toDelete {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
		return struct{}{}, err
	})
	return err
}

// Flush durably persists everything written up to this call. syncAll has no
// effect beyond a plain Sync (bbolt fsyncs every committed transaction by
// default); it is accepted to mirror the sled-backed original's API and to
// give callers one explicit "make sure it's on disk" call on shutdown.
func (e *Engine) Flush(ctx context.Context, syncAll bool) error {
	_, err := workerpool.Submit(ctx, e.pool, func() (struct{}, error) {
		return struct{}{}, e.db.Sync()
	})
	return err
}

// Close flushes and releases the underlying database file.
func (e *Engine) Close() error {
	e.pool.Close()
	return e.db.Close()
}
