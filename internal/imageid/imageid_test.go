package imageid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgproxy/internal/imageid"
)

func TestSanitize_AcceptsPlainID(t *testing.T) {
	id, err := imageid.Sanitize("cat.png")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", id.String())
}

func TestSanitize_RejectsEmpty(t *testing.T) {
	_, err := imageid.Sanitize("")
	assert.ErrorIs(t, err, imageid.ErrEmpty)
}

func TestSanitize_RejectsDotAndDotDot(t *testing.T) {
	_, err := imageid.Sanitize(".")
	assert.ErrorIs(t, err, imageid.ErrInvalid)

	_, err = imageid.Sanitize("..")
	assert.ErrorIs(t, err, imageid.ErrInvalid)
}

func TestSanitize_RejectsPathTraversal(t *testing.T) {
	_, err := imageid.Sanitize("../../etc/passwd")
	assert.ErrorIs(t, err, imageid.ErrInvalid)

	_, err = imageid.Sanitize("a/b")
	assert.ErrorIs(t, err, imageid.ErrInvalid)

	_, err = imageid.Sanitize(`a\b`)
	assert.ErrorIs(t, err, imageid.ErrInvalid)
}

func TestSanitize_RejectsControlCharacters(t *testing.T) {
	_, err := imageid.Sanitize("a\x00b")
	assert.ErrorIs(t, err, imageid.ErrInvalid)

	_, err = imageid.Sanitize("a\nb")
	assert.ErrorIs(t, err, imageid.ErrInvalid)
}
