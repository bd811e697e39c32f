// Package imageid sanitizes the path segment clients use to name an image
// into the opaque identifier the rest of the core keys its two tiers on.
package imageid

import (
	"errors"
	"strings"
)

// ErrEmpty is returned when sanitizing a blank identifier.
var ErrEmpty = errors.New("image id must not be empty")

// ErrInvalid is returned when an identifier contains characters that would
// let it escape its role as a single path segment / cache key.
var ErrInvalid = errors.New("image id contains unsupported characters")

// ID is the sanitized, printable identifier used as the key in both the
// original-bytes store and the derivative cache. Once constructed by
// Sanitize, the core never re-escapes it.
type ID string

// Sanitize validates a raw path segment and returns the ID the core will use.
// It rejects path traversal, path separators, and control characters so that
// callers building on-disk keys or filesystem paths from an ID never need to
// re-validate it.
func Sanitize(raw string) (ID, error) {
	if raw == "" {
		return "", ErrEmpty
	}
	if raw == "." || raw == ".." {
		return "", ErrInvalid
	}
	if strings.ContainsAny(raw, "/\\\x00") {
		return "", ErrInvalid
	}
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			return "", ErrInvalid
		}
	}
	return ID(raw), nil
}

func (id ID) String() string { return string(id) }
