// Package buffer wraps immutable byte payloads (original bytes, encoded
// derivatives) so stores and caches can share one backing array across
// concurrent readers without either side mistaking it for a mutable buffer.
package buffer

// Shared is an immutable, reference-shared byte payload. Once constructed it
// is never mutated; readers may hold it indefinitely and it is safe to read
// from multiple goroutines concurrently.
type Shared struct {
	b []byte
}

// New wraps b as a Shared buffer. Callers must not mutate b afterwards.
func New(b []byte) Shared {
	return Shared{b: b}
}

// Bytes returns the underlying slice. Callers must treat it as read-only.
func (s Shared) Bytes() []byte { return s.b }

// Len returns the length of the payload.
func (s Shared) Len() int { return len(s.b) }
