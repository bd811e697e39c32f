package filename_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"imgproxy/internal/filename"
)

func TestExtract_QuotedFilename(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Disposition", `attachment; filename="cat.png"`)
	assert.Equal(t, "cat.png", filename.Extract(h))
}

func TestExtract_RFC5987Filename(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Disposition", `attachment; filename*=UTF-8''cat%20photo.png`)
	assert.Equal(t, "cat photo.png", filename.Extract(h))
}

func TestExtract_MissingHeader(t *testing.T) {
	assert.Equal(t, "", filename.Extract(http.Header{}))
}

func TestExtract_UnparsableHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Disposition", "not a valid header;;;")
	assert.Equal(t, "", filename.Extract(h))
}

func TestExtract_StripsPathComponents(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Disposition", `attachment; filename="../../etc/passwd"`)
	assert.Equal(t, "passwd", filename.Extract(h))
}
