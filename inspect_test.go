package ledgercol

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ledgercol/codec"
)

func TestInspect(t *testing.T) {
	g := newGroup(t)
	c, err := Import(g, "fee", 7, codec.Uint32)
	require.NoError(t, err)
	fill(t, c, 1, 2, 3)
	require.NoError(t, c.Flush(t.Context()))

	ci, err := Inspect(c.Dir())
	require.NoError(t, err)
	assert.Equal(t, "fee", ci.Name)
	assert.True(t, ci.HasVersion)
	assert.Equal(t, Version(7), ci.Version)
	assert.False(t, ci.HasComputed)
	assert.Equal(t, int64(12), ci.Bytes)
	assert.Equal(t, int64(3), ci.Records(4))
	assert.Equal(t, int64(0), ci.TornTail(4))
	assert.Equal(t, int64(4), ci.TornTail(8))
	assert.Empty(t, ci.Problems)
}

func TestInspect_MalformedVersion(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "x")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "version"), []byte{1, 2, 3}, 0o644))

	ci, err := Inspect(dir)
	require.NoError(t, err)
	assert.False(t, ci.HasVersion)
	assert.Len(t, ci.Problems, 1)
	assert.Zero(t, ci.Bytes)
}

func TestInspect_Missing(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
