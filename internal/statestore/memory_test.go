package statestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	_, err := store.GetBookmark(ctx, "stream-a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetBookmark(ctx, "stream-a", "2021-09-22T01:02:48+00:00|614a80b81ad8c60001b7d5f3"))

	got, err := store.GetBookmark(ctx, "stream-a")
	require.NoError(t, err)
	assert.Equal(t, "2021-09-22T01:02:48+00:00|614a80b81ad8c60001b7d5f3", got)
}

func TestMemoryStoreClosedRejectsOperations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, err := store.GetBookmark(ctx, "stream-a")
	assert.ErrorIs(t, err, ErrClosed)

	err = store.SetBookmark(ctx, "stream-a", "value")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryStoreIndependentStreams(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	require.NoError(t, store.SetBookmark(ctx, "stream-a", "a-1"))
	require.NoError(t, store.SetBookmark(ctx, "stream-b", "b-1"))

	a, err := store.GetBookmark(ctx, "stream-a")
	require.NoError(t, err)
	assert.Equal(t, "a-1", a)

	b, err := store.GetBookmark(ctx, "stream-b")
	require.NoError(t, err)
	assert.Equal(t, "b-1", b)
}
