package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "models/en/lexemes.bin", []byte("hello world")))
	require.NoError(t, store.Put(ctx, "models/en/strings.json", []byte(`[""]`)))
	require.NoError(t, store.Put(ctx, "models/de/lexemes.bin", []byte("hallo")))

	blob, err := store.Open(ctx, "models/en/lexemes.bin")
	require.NoError(t, err)
	defer func() { _ = blob.Close() }()
	assert.Equal(t, int64(11), blob.Size())

	data, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), data)

	// Windowed read.
	p := make([]byte, 5)
	n, err := blob.ReadAt(ctx, p, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("world"), p)

	names, err := store.List(ctx, "models/en/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"models/en/lexemes.bin", "models/en/strings.json"}, names)

	require.NoError(t, store.Delete(ctx, "models/en/lexemes.bin"))
	_, err = store.Open(ctx, "models/en/lexemes.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	testStore(t, NewLocalStore(t.TempDir()))
}

func TestMemoryStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "a", []byte("one")))
	require.NoError(t, store.Put(ctx, "a", []byte("two")))

	blob, err := store.Open(ctx, "a")
	require.NoError(t, err)
	defer func() { _ = blob.Close() }()

	data, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
}
