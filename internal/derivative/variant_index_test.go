package derivative_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgproxy/internal/derivative"
)

func TestVariantIndex_InsertKeepsCanonicalOrder(t *testing.T) {
	idx := &derivative.VariantIndex{}
	idx.Insert(variant(300))
	idx.Insert(variant(100))
	idx.Insert(variant(200))

	all := idx.All()
	require.Len(t, all, 3)
	assert.Equal(t, 100, all[0].Width)
	assert.Equal(t, 200, all[1].Width)
	assert.Equal(t, 300, all[2].Width)
}

func TestVariantIndex_InsertDuplicateIsNoop(t *testing.T) {
	idx := &derivative.VariantIndex{}
	idx.Insert(variant(100))
	idx.Insert(variant(100))

	assert.Equal(t, 1, idx.Len())
}

func TestVariantIndex_Greatest(t *testing.T) {
	idx := &derivative.VariantIndex{}
	idx.Insert(variant(100))
	idx.Insert(variant(300))
	idx.Insert(variant(200))

	g, ok := idx.Greatest()
	require.True(t, ok)
	assert.Equal(t, 300, g.Width)
}

func TestVariantIndex_GreatestOnEmpty(t *testing.T) {
	idx := &derivative.VariantIndex{}
	_, ok := idx.Greatest()
	assert.False(t, ok)
}

func TestVariantIndex_RemoveThenContains(t *testing.T) {
	idx := &derivative.VariantIndex{}
	idx.Insert(variant(100))
	idx.Remove(variant(100))

	assert.False(t, idx.Contains(variant(100)))
	assert.Equal(t, 0, idx.Len())
}
