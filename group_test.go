package ledgercol

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ledgercol/codec"
	"github.com/hupe1980/ledgercol/exit"
	"github.com/hupe1980/ledgercol/resource"
)

func TestGroup_RegionsAndCompact(t *testing.T) {
	g := newGroup(t)
	_, err := Import(g, "a", 1, codec.Uint64)
	require.NoError(t, err)
	_, err = Import(g, "b", 1, codec.Uint64)
	require.NoError(t, err)
	for _, stale := range []string{"old1", "old2"} {
		require.NoError(t, os.MkdirAll(filepath.Join(g.Dir(), stale), 0o755))
	}
	// Plain files are not regions.
	require.NoError(t, os.WriteFile(filepath.Join(g.Dir(), "LOCK"), nil, 0o644))

	assert.Equal(t, []string{"a", "b"}, g.Columns())

	stale, err := g.StaleRegions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old1", "old2"}, stale)

	removed, err := g.RetainRegions([]string{"old2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"old1"}, removed)
	assert.NoDirExists(t, filepath.Join(g.Dir(), "old1"))
	assert.DirExists(t, filepath.Join(g.Dir(), "old2"))

	require.NoError(t, g.Compact())
	assert.NoDirExists(t, filepath.Join(g.Dir(), "old2"))
	assert.DirExists(t, filepath.Join(g.Dir(), "a"))
	assert.FileExists(t, filepath.Join(g.Dir(), "LOCK"))
}

func TestGroup_SetMinimumLengthKeepsSize(t *testing.T) {
	g := newGroup(t)
	a, err := Import(g, "a", 1, codec.Uint64)
	require.NoError(t, err)
	fill(t, a, 1, 2, 3)
	require.NoError(t, a.Flush(t.Context()))

	require.NoError(t, g.SetMinimumLength(1<<20))
	b, err := Import(g, "b", 1, codec.Uint64)
	require.NoError(t, err)

	for _, c := range []*Column[uint64]{a, b} {
		info, err := os.Stat(c.Path())
		require.NoError(t, err)
		assert.Equal(t, int64(c.DiskLen()*8), info.Size())
	}

	fill(t, b, 9)
	require.NoError(t, b.Flush(t.Context()))
	require.NoError(t, g.Compact())

	v, ok, err := b.Get(0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(9), v)
}

func TestGroup_FlushAll(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 2})
	g := newGroup(t, WithResourceController(rc))

	cols := make([]*Column[uint64], 5)
	for i := range cols {
		c, err := Import(g, string(rune('a'+i)), 1, codec.Uint64)
		require.NoError(t, err)
		fill(t, c, seq(100*(i+1))...)
		cols[i] = c
	}

	require.NoError(t, g.FlushAll(context.Background()))
	for i, c := range cols {
		assert.Equal(t, 100*(i+1), c.DiskLen())
		assert.Equal(t, 0, c.Buffered())
	}
}

func TestGroup_FlushAllExitGuard(t *testing.T) {
	guard := exit.New()
	rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 1})
	g := newGroup(t, WithExitGuard(guard), WithResourceController(rc))

	a, err := Import(g, "a", 1, codec.Uint64)
	require.NoError(t, err)
	b, err := Import(g, "b", 1, codec.Uint64)
	require.NoError(t, err)
	fill(t, a, seq(10)...)
	fill(t, b, seq(20)...)

	// Hold the only worker slot so FlushAll stalls after entering the guard.
	require.NoError(t, rc.AcquireBackground(t.Context()))
	flushed := make(chan error, 1)
	go func() { flushed <- g.FlushAll(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	exited := make(chan struct{})
	go func() {
		guard.Exit()
		close(exited)
	}()
	select {
	case <-exited:
		t.Fatal("Exit returned during FlushAll")
	case <-time.After(50 * time.Millisecond):
	}

	rc.ReleaseBackground()
	require.NoError(t, <-flushed)
	<-exited
	assert.Equal(t, 10, a.DiskLen())
	assert.Equal(t, 20, b.DiskLen())

	// After exit the whole checkpoint is refused.
	fill(t, a, 10)
	assert.ErrorIs(t, g.FlushAll(context.Background()), ErrExiting)
	assert.Equal(t, 10, a.DiskLen())
	assert.Equal(t, 1, a.Buffered())
}

func TestGroup_Close(t *testing.T) {
	g, err := OpenGroup(t.TempDir())
	require.NoError(t, err)
	c, err := Import(g, "a", 1, codec.Uint64)
	require.NoError(t, err)

	require.NoError(t, g.Close())
	assert.Empty(t, g.Columns())
	_, _, err = c.Get(0)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = Import(g, "b", 1, codec.Uint64)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestGroup_OptionsInherited(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	g := newGroup(t, WithMetrics(metrics), WithMode(ModeSequential))

	a, err := Import(g, "a", 1, codec.Uint64)
	require.NoError(t, err)
	assert.Equal(t, ModeSequential, a.Mode())

	b, err := Import(g, "b", 1, codec.Uint64, WithMode(ModeStateless))
	require.NoError(t, err)
	assert.Equal(t, ModeStateless, b.Mode())

	assert.Equal(t, int64(2), metrics.GetStats().ImportCount)
}
