// Package filename extracts a display filename hint from a preload
// request's Content-Disposition header, the Go analogue of the original's
// FileNameExtractor (original_source/src/utils/filename_extractor.rs).
package filename

import (
	"mime"
	"net/http"
	"path/filepath"
)

// Extract returns the filename named by header's Content-Disposition
// ("filename" or the RFC 5987 "filename*" form), or "" if the header is
// absent or unparsable.
func Extract(header http.Header) string {
	raw := header.Get("Content-Disposition")
	if raw == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return sanitize(params["filename"])
}

// sanitize strips any path components so the hint can never be used as
// anything but a display name.
func sanitize(name string) string {
	if name == "" {
		return ""
	}
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
