package minio

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ledgercol/blobstore"
)

func TestBlobSpan(t *testing.T) {
	b := &blob{size: 10}
	tests := []struct {
		off, n      int64
		first, last int64
		ok          bool
	}{
		{0, 10, 0, 9, true},
		{2, 3, 2, 4, true},
		{8, 100, 8, 9, true},
		{10, 1, 0, 0, false},
		{-1, 4, 0, 0, false},
		{3, 0, 0, 0, false},
	}
	for _, tt := range tests {
		first, last, ok := b.span(tt.off, tt.n)
		assert.Equal(t, tt.ok, ok, "off=%d n=%d", tt.off, tt.n)
		if ok {
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		}
	}
}

func TestWriter_AbortThenClose(t *testing.T) {
	pr, pw := io.Pipe()
	w := &writer{pw: pw, done: make(chan error, 1)}
	require.NoError(t, w.Abort())
	_, err := io.ReadAll(pr)
	assert.ErrorIs(t, err, errAborted)
	assert.Error(t, w.Close())
	assert.NoError(t, w.Abort())
}

// TestStore_Integration needs a MinIO server at MINIO_ENDPOINT.
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}
	ctx := context.Background()

	store, err := New(ctx, Config{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "test-ledgercol",
		Prefix:    "it/",
	})
	require.NoError(t, err)

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "col/vec/00000000", data))

	b, err := store.Open(ctx, "col/vec/00000000")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), b.Size())

	buf := make([]byte, 32)
	n, err := b.ReadAt(ctx, buf, 6)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "minio world", string(buf[:n]))

	rc, err := b.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "minio", string(part))

	w, err := store.Create(ctx, "col/manifest")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "col/")
	require.NoError(t, err)
	assert.Equal(t, []string{"col/manifest", "col/vec/00000000"}, names)

	require.NoError(t, store.Delete(ctx, "col/vec/00000000"))
	require.NoError(t, store.Delete(ctx, "col/manifest"))
	_, err = store.Open(ctx, "col/vec/00000000")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
