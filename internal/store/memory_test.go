package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgproxy/internal/buffer"
	"imgproxy/internal/imageid"
	"imgproxy/internal/store"
)

func TestMemoryStore_SetThenGet(t *testing.T) {
	s := store.NewMemoryStore(8)
	ctx := context.Background()
	id := imageid.ID("cat")

	require.NoError(t, s.Set(ctx, id, store.Original{Data: buffer.New([]byte("bytes"))}))

	got, ok := s.Get(ctx, id)
	require.True(t, ok)
	assert.Equal(t, []byte("bytes"), got.Data.Bytes())
}

func TestMemoryStore_MissOnAbsentID(t *testing.T) {
	s := store.NewMemoryStore(8)
	_, ok := s.Get(context.Background(), imageid.ID("absent"))
	assert.False(t, ok)
}

func TestMemoryStore_SetIsIdempotentOverwrite(t *testing.T) {
	s := store.NewMemoryStore(8)
	ctx := context.Background()
	id := imageid.ID("cat")

	require.NoError(t, s.Set(ctx, id, store.Original{Data: buffer.New([]byte("first"))}))
	require.NoError(t, s.Set(ctx, id, store.Original{Data: buffer.New([]byte("second"))}))

	got, ok := s.Get(ctx, id)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), got.Data.Bytes())
}

func TestMemoryStore_Remove(t *testing.T) {
	s := store.NewMemoryStore(8)
	ctx := context.Background()
	id := imageid.ID("cat")

	require.NoError(t, s.Set(ctx, id, store.Original{Data: buffer.New([]byte("bytes"))}))
	require.NoError(t, s.Remove(ctx, id))

	_, ok := s.Get(ctx, id)
	assert.False(t, ok)
}
