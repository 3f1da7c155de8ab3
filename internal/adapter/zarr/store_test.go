package zarr

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_PutGet(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "apcp/.zarray", []byte(`{"zarr_format":2}`)))

	data, err := s.Get(ctx, "apcp/.zarray")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"zarr_format":2}`), data)
}

func TestMemStore_GetMissing(t *testing.T) {
	s := NewMemStore()

	_, err := s.Get(context.Background(), "apcp/0.0.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "apcp/0.0.0")
}

func TestMemStore_GetReturnsCopy(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte{1, 2, 3}))

	first, err := s.Get(ctx, "k")
	require.NoError(t, err)
	first[0] = 99

	second, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, second)
}

func TestMemStore_ListByPrefix(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	for _, key := range []string{"latitude/.zarray", "apcp/0.0.0", "apcp/.zarray", ".zmetadata"} {
		require.NoError(t, s.Put(ctx, key, []byte("x")))
	}

	keys, err := s.List(ctx, "apcp/")
	require.NoError(t, err)
	assert.Equal(t, []string{"apcp/.zarray", "apcp/0.0.0"}, keys)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, ".zmetadata", all[0], "listing should be sorted")
}

func TestMemStore_Delete(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, ".zmetadata", []byte("x")))
	s.Delete(".zmetadata")

	_, err := s.Get(ctx, ".zmetadata")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDirStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewDirStore(filepath.Join(dir, "store.zarr"))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "apcp/.zarray", []byte("meta")))
	require.NoError(t, s.Put(ctx, "apcp/0.0.0", []byte{0xde, 0xad}))
	require.NoError(t, s.Put(ctx, ".zgroup", []byte(`{"zarr_format":2}`)))

	data, err := s.Get(ctx, "apcp/0.0.0")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, data)

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{".zgroup", "apcp/.zarray", "apcp/0.0.0"}, keys)
}

func TestDirStore_GetMissing(t *testing.T) {
	s := NewDirStore(t.TempDir())

	_, err := s.Get(context.Background(), "apcp/0.0.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
