// Package derivative implements the derivative cache (C3):
// (ImageId, Params) -> EncodedImage, with a per-id VariantIndex and an
// admission policy bounding per-id variant fan-out.
package derivative

import (
	"context"
	"errors"
	"sort"

	"imgproxy/internal/buffer"
	"imgproxy/internal/imageid"
	"imgproxy/internal/params"
	"imgproxy/internal/scheduler"
)

// ErrLimitExceeded is returned by Set when the per-id variant budget is full
// and the overflow policy is Restrict.
var ErrLimitExceeded = errors.New("processed images limit exceeded")

// OverflowPolicy controls what Set does once an id's VariantIndex is full.
type OverflowPolicy string

const (
	Restrict OverflowPolicy = "Restrict"
	Rewrite  OverflowPolicy = "Rewrite"
)

// Config is the admission policy shared by both cache variants.
type Config struct {
	MaxOptionsPerImage int
	OverflowPolicy     OverflowPolicy
}

// EncodedImage is the immutable output of processing: encoded bytes plus the
// metadata needed to answer the HTTP response. Filename is nil unless the
// original this was derived from carried a filename hint from its preload
// request (spec.md §4.5's prefetch(id, filename_hint, bytes)); handlers fall
// back to "image" when it is nil.
type EncodedImage struct {
	Data      buffer.Shared
	Filename  *string
	Extension params.Extension
}

// Cache is the derivative cache contract. Both implementations serialize
// admission decisions for a given id so the checks in §4.3's algorithm race
// with nothing.
type Cache interface {
	scheduler.Service

	Get(ctx context.Context, id imageid.ID, p params.Params) (EncodedImage, bool)
	// Set applies the admission algorithm from spec.md §4.3 and returns
	// ErrLimitExceeded if the policy is Restrict and the id's variant budget
	// is already full.
	Set(ctx context.Context, id imageid.ID, p params.Params, img EncodedImage) error
	// Remove evicts every variant stored for id, including its VariantIndex.
	Remove(ctx context.Context, id imageid.ID) error
}

// VariantIndex is the ordered set of Params currently stored for one id.
// Order is the canonical total order (params.Params.Less); "greatest" is the
// last element.
type VariantIndex struct {
	items []params.Params
}

// Contains reports whether p is already indexed.
func (v *VariantIndex) Contains(p params.Params) bool {
	_, found := v.search(p)
	return found
}

// Len returns the number of indexed params.
func (v *VariantIndex) Len() int { return len(v.items) }

// Insert adds p to the index, keeping it sorted. Inserting an already-present
// p is a no-op.
func (v *VariantIndex) Insert(p params.Params) {
	i, found := v.search(p)
	if found {
		return
	}
	v.items = append(v.items, params.Params{})
	copy(v.items[i+1:], v.items[i:])
	v.items[i] = p
}

// Remove deletes p from the index if present.
func (v *VariantIndex) Remove(p params.Params) {
	i, found := v.search(p)
	if !found {
		return
	}
	v.items = append(v.items[:i], v.items[i+1:]...)
}

// Greatest returns the maximum element under the canonical order, used by
// the Rewrite overflow policy.
func (v *VariantIndex) Greatest() (params.Params, bool) {
	if len(v.items) == 0 {
		return params.Params{}, false
	}
	return v.items[len(v.items)-1], true
}

// All returns a snapshot of the indexed params in canonical order.
func (v *VariantIndex) All() []params.Params {
	out := make([]params.Params, len(v.items))
	copy(out, v.items)
	return out
}

func (v *VariantIndex) search(p params.Params) (int, bool) {
	i := sort.Search(len(v.items), func(i int) bool { return !v.items[i].Less(p) })
	if i < len(v.items) && v.items[i] == p {
		return i, true
	}
	return i, false
}

// admissionDecision is the outcome of evaluating spec.md §4.3's algorithm
// while holding the per-id (or per-cache) serialization lock.
type admissionDecision int

const (
	decisionNoop admissionDecision = iota
	decisionInsert
	decisionReject
	decisionEvictAndInsert
)

// decideAdmission implements spec.md §4.3 steps 1-5 against an in-memory
// VariantIndex snapshot; the caller applies the decision to both the index
// and the payload store under the same lock.
func decideAdmission(idx *VariantIndex, p params.Params, cfg Config) (admissionDecision, params.Params) {
	if idx.Contains(p) {
		return decisionNoop, params.Params{}
	}
	if idx.Len() < cfg.MaxOptionsPerImage {
		return decisionInsert, params.Params{}
	}
	if cfg.OverflowPolicy == Restrict {
		return decisionReject, params.Params{}
	}
	greatest, _ := idx.Greatest()
	return decisionEvictAndInsert, greatest
}

// key returns the in-memory map key and the persistent-store textual key for
// (id, p). The persistent form is "<id>_<canonical-json(params)>": since
// canonical JSON always starts with '{', Remove's prefix scan for
// "<id>_{" matches every variant of id and nothing else.
func key(id imageid.ID, p params.Params) string {
	return id.String() + "_" + p.CanonicalJSON()
}

func removePrefix(id imageid.ID) string {
	return id.String() + "_{"
}
