package ledgercol

import (
	"context"
	"encoding/binary"
	"math"
	"math/bits"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ledgercol/codec"
	"github.com/hupe1980/ledgercol/exit"
	"github.com/hupe1980/ledgercol/internal/fs"
)

func newGroup(t *testing.T, opts ...Option) *Group {
	t.Helper()
	g, err := OpenGroup(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func fill[T any](t *testing.T, c *Column[T], vals ...T) {
	t.Helper()
	for _, v := range vals {
		require.NoError(t, c.PushIfNeeded(Index(c.Len()), v))
	}
}

func seq(n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = uint64(i)
	}
	return out
}

func TestColumn_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	g, err := OpenGroup(dir)
	require.NoError(t, err)
	heights, err := Import(g, "height", 1, codec.Uint32)
	require.NoError(t, err)
	for i := uint32(0); i < 1000; i++ {
		heights.Push(i)
	}
	require.NoError(t, heights.Flush(ctx))
	require.NoError(t, g.Close())

	g, err = OpenGroup(dir)
	require.NoError(t, err)
	defer g.Close()
	heights, err = Import(g, "height", 1, codec.Uint32)
	require.NoError(t, err)

	assert.Equal(t, 1000, heights.Len())
	assert.Equal(t, 1000, heights.DiskLen())
	v, ok, err := heights.Get(500)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(500), v)

	info, err := os.Stat(heights.Path())
	require.NoError(t, err)
	assert.Equal(t, int64(4000), info.Size())
}

func TestColumn_TruncateAndResume(t *testing.T) {
	for _, flushed := range []bool{false, true} {
		name := "buffered"
		if flushed {
			name = "flushed"
		}
		t.Run(name, func(t *testing.T) {
			g := newGroup(t)
			c, err := Import(g, "v", 1, codec.Uint64)
			require.NoError(t, err)

			fill(t, c, seq(101)...)
			if flushed {
				require.NoError(t, c.Flush(t.Context()))
			}

			prev, ok, err := c.TruncateIfNeeded(50)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, uint64(50), prev)
			assert.Equal(t, 50, c.Len())

			require.NoError(t, c.PushIfNeeded(40, 999))
			v, _, err := c.Get(40)
			require.NoError(t, err)
			assert.Equal(t, uint64(40), v)

			err = c.PushIfNeeded(200, 999)
			assert.ErrorIs(t, err, ErrIndexTooHigh)
			var tooHigh *IndexTooHighError
			require.ErrorAs(t, err, &tooHigh)
			assert.Equal(t, Index(200), tooHigh.Index)
			assert.Equal(t, 50, tooHigh.Len)

			require.NoError(t, c.PushIfNeeded(50, 777))
			assert.Equal(t, 51, c.Len())
			v, ok, err = c.Get(50)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, uint64(777), v)
		})
	}
}

func TestColumn_TruncateIfNeededNoop(t *testing.T) {
	g := newGroup(t)
	c, err := Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)
	fill(t, c, 1, 2, 3)

	_, ok, err := c.TruncateIfNeeded(3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, c.Len())
}

func TestColumn_PushIfNeededKeepsFirstValue(t *testing.T) {
	g := newGroup(t)
	c, err := Import(g, "v", 1, codec.Int64)
	require.NoError(t, err)

	fill(t, c, 10, 20, 30)
	require.NoError(t, c.Flush(t.Context()))
	fill(t, c, 40)

	require.NoError(t, c.PushIfNeeded(1, -1)) // flushed
	require.NoError(t, c.PushIfNeeded(3, -1)) // buffered

	got, err := c.CollectRange(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30, 40}, got)
}

func TestColumn_GapRejectionLeavesLength(t *testing.T) {
	g := newGroup(t)
	c, err := Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)
	fill(t, c, 1, 2)

	require.NoError(t, c.PushIfNeeded(Index(c.Len()), 3))
	assert.ErrorIs(t, c.PushIfNeeded(Index(c.Len()+2), 4), ErrIndexTooHigh)
	assert.Equal(t, 3, c.Len())
}

func TestColumn_LenSaturates(t *testing.T) {
	g := newGroup(t)
	c, err := Import(g, "huge", 1, codec.Uint64)
	require.NoError(t, err)
	fill(t, c, 1, 2)

	c.diskLen.Store(math.MaxUint64)
	assert.Equal(t, math.MaxInt, c.DiskLen())
	assert.Equal(t, math.MaxInt, c.Len())

	c.diskLen.Store(uint64(math.MaxInt) - 1)
	assert.Equal(t, math.MaxInt-1, c.DiskLen())
	assert.Equal(t, math.MaxInt, c.Len())
	c.diskLen.Store(0)
}

func TestColumn_GetOutOfRange(t *testing.T) {
	g := newGroup(t)
	c, err := Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)
	fill(t, c, 7)

	_, ok, err := c.Get(1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, c.Has(0))
	assert.False(t, c.Has(1))
}

func TestImport_VersionMismatch(t *testing.T) {
	g := newGroup(t)
	c, err := Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)
	fill(t, c, seq(100)...)
	require.NoError(t, c.Flush(t.Context()))
	require.NoError(t, c.Close())

	_, err = Import(g, "v", 2, codec.Uint64)
	assert.ErrorIs(t, err, ErrVersionMismatch)
	var vm *VersionMismatchError
	require.ErrorAs(t, err, &vm)
	assert.Equal(t, Version(1), vm.Found)
	assert.Equal(t, Version(2), vm.Expected)

	// The failed import must not keep the name reserved.
	c, err = ForcedImport(g, "v", 2, codec.Uint64)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	stored, ok, err := c.ReadVersionFile(versionFileName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Version(2), stored)
}

func TestImport_WrongEndian(t *testing.T) {
	g := newGroup(t)
	const v = Version(0x0102030405060708)

	dir := filepath.Join(g.Dir(), "v")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	require.NoError(t, os.WriteFile(filepath.Join(dir, versionFileName), buf[:], 0o644))
	assert.Equal(t, uint64(v.swapped()), bits.ReverseBytes64(uint64(v)))

	_, err := Import(g, "v", v, codec.Uint64)
	assert.ErrorIs(t, err, ErrWrongEndian)
	assert.NotErrorIs(t, err, ErrVersionMismatch)

	c, err := ForcedImport(g, "v", v, codec.Uint64)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestImport_MalformedVersionFile(t *testing.T) {
	g := newGroup(t)
	dir := filepath.Join(g.Dir(), "v")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, versionFileName), []byte{1, 2, 3}, 0o644))

	_, err := Import(g, "v", 1, codec.Uint64)
	var vm *VersionMismatchError
	require.ErrorAs(t, err, &vm)
	assert.Equal(t, Version(0), vm.Found)
}

func TestImport_RecoversTornTail(t *testing.T) {
	g := newGroup(t)
	dir := filepath.Join(g.Dir(), "v")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	data := make([]byte, 3*8+5)
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint64(data[i*8:], uint64(i+10))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, dataFileName), data, 0o644))

	c, err := Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	v, _, err := c.Get(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), v)

	info, err := os.Stat(c.Path())
	require.NoError(t, err)
	assert.Equal(t, int64(24), info.Size())
}

func TestImport_AlreadyOpen(t *testing.T) {
	g := newGroup(t)
	_, err := Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)

	_, err = Import(g, "v", 1, codec.Uint64)
	assert.ErrorIs(t, err, ErrAlreadyOpen)
}

func TestImport_InvalidName(t *testing.T) {
	g := newGroup(t)
	for _, name := range []string{"", ".", "..", "a/b"} {
		_, err := Import(g, name, 1, codec.Uint64)
		assert.Error(t, err, name)
	}
}

func TestImport_PageWindowTooSmall(t *testing.T) {
	g := newGroup(t)
	_, err := Import(g, "v", 1, codec.Uint64, WithPageWindowBytes(16))
	assert.ErrorIs(t, err, ErrPageWindowTooSmall)

	// The name is free again.
	_, err = Import(g, "v", 1, codec.Uint64)
	assert.NoError(t, err)
}

func TestColumn_ConcurrentCachedReads(t *testing.T) {
	ps := os.Getpagesize()
	g := newGroup(t, WithPageBytes(ps), WithPageWindowBytes(int64(2*ps)))
	c, err := Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)

	per := ps / 8
	n := per*10 + 37 // ten full pages and a partial one
	fill(t, c, seq(n)...)
	require.NoError(t, c.Flush(t.Context()))
	fill(t, c, 1_000_000, 1_000_001) // buffered tail

	want := make([]uint64, c.Len())
	for i := range want {
		v, ok, err := c.Get(Index(i))
		require.NoError(t, err)
		require.True(t, ok)
		want[i] = v
	}

	var wg sync.WaitGroup
	got := make([][]uint64, 8)
	errs := make([]error, 8)
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			out := make([]uint64, len(want))
			// Each reader starts at a different page to move the window around.
			for k := range out {
				i := (k + r*per) % len(out)
				v, _, err := c.Get(Index(i))
				if err != nil {
					errs[r] = err
					return
				}
				out[i] = v
			}
			got[r] = out
		}(r)
	}
	wg.Wait()

	for r := 0; r < 8; r++ {
		require.NoError(t, errs[r])
		assert.Equal(t, want, got[r])
	}
}

func TestColumn_TruncateInvalidatesMappedPages(t *testing.T) {
	for _, mode := range []Mode{ModeCached, ModeSequential, ModeStateless} {
		t.Run(mode.String(), func(t *testing.T) {
			ps := os.Getpagesize()
			g := newGroup(t, WithMode(mode), WithPageBytes(ps), WithPageWindowBytes(int64(4*ps)))
			c, err := Import(g, "v", 1, codec.Uint64)
			require.NoError(t, err)

			fill(t, c, seq(2048)...)
			require.NoError(t, c.Flush(t.Context()))

			// Warm the page cache / read-ahead.
			for i := 0; i < 2048; i += 100 {
				_, _, err := c.Get(Index(i))
				require.NoError(t, err)
			}

			_, _, err = c.TruncateIfNeeded(600)
			require.NoError(t, err)
			for i := 600; i < 2048; i++ {
				require.NoError(t, c.PushIfNeeded(Index(i), uint64(i)*10))
			}
			require.NoError(t, c.Flush(t.Context()))

			for _, i := range []int{0, 599, 600, 1000, 2047} {
				v, ok, err := c.Get(Index(i))
				require.NoError(t, err)
				require.True(t, ok)
				want := uint64(i)
				if i >= 600 {
					want *= 10
				}
				assert.Equal(t, want, v, "index %d", i)
			}
		})
	}
}

func TestColumn_ParallelEncode(t *testing.T) {
	dir := t.TempDir()
	g, err := OpenGroup(dir, WithParallelEncodeThreshold(64))
	require.NoError(t, err)

	c, err := Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)
	fill(t, c, seq(1000)...)
	require.NoError(t, c.Flush(t.Context()))
	require.NoError(t, g.Close())

	g, err = OpenGroup(dir)
	require.NoError(t, err)
	defer g.Close()
	c, err = Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)

	got, err := c.CollectRange(0, 1000)
	require.NoError(t, err)
	assert.Equal(t, seq(1000), got)
}

func TestColumn_FlushFailure(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	metrics := &BasicMetricsCollector{}
	g := newGroup(t, WithFileSystem(ffs), WithMetrics(metrics))

	c, err := Import(g, "price", 1, codec.Float64)
	require.NoError(t, err)
	fill(t, c, 1.5, 2.5)

	ffs.AddRule(string(filepath.Separator)+dataFileName, fs.Fault{FailAfterBytes: 0})
	err = c.Flush(t.Context())
	assert.ErrorIs(t, err, fs.ErrInjected)
	var ce *ColumnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "flush", ce.Op)
	assert.Equal(t, "price", ce.Column)

	assert.Equal(t, 0, c.DiskLen())
	assert.Equal(t, int64(1), metrics.GetStats().FlushErrors)

	info, err := os.Stat(c.Path())
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestColumn_SyncOnFlushFailure(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	g := newGroup(t, WithFileSystem(ffs), WithSyncOnFlush(true))
	c, err := Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)
	fill(t, c, 1)

	ffs.AddRule(string(filepath.Separator)+dataFileName, fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	assert.ErrorIs(t, c.Flush(t.Context()), fs.ErrInjected)
	assert.Equal(t, 0, c.DiskLen())
}

func TestColumn_ExitGuard(t *testing.T) {
	guard := exit.New()
	g := newGroup(t, WithExitGuard(guard))
	c, err := Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)
	fill(t, c, 1, 2, 3)
	require.NoError(t, c.Flush(t.Context()))

	guard.Exit()
	fill(t, c, 4)
	assert.ErrorIs(t, c.Flush(t.Context()), ErrExiting)
	_, _, err = c.TruncateIfNeeded(1)
	assert.ErrorIs(t, err, ErrExiting)
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 3, c.DiskLen())
}

func TestColumn_Reset(t *testing.T) {
	g := newGroup(t)
	c, err := Import(g, "v", 3, codec.Uint64)
	require.NoError(t, err)
	fill(t, c, seq(10)...)
	require.NoError(t, c.Flush(t.Context()))
	fill(t, c, 10)

	require.NoError(t, c.Reset(t.Context()))
	assert.Equal(t, 0, c.Len())
	require.NoError(t, c.PushIfNeeded(0, 42))

	v, ok, err := c.ReadVersionFile(versionFileName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Version(3), v)
}

func TestColumn_Closed(t *testing.T) {
	g := newGroup(t)
	c, err := Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, _, err = c.Get(0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Flush(t.Context()), ErrClosed)
	assert.ErrorIs(t, c.PushIfNeeded(0, 1), ErrClosed)
	assert.NotContains(t, g.Columns(), "v")
}

func TestColumn_Metrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	ps := os.Getpagesize()
	g := newGroup(t, WithMetrics(metrics), WithPageBytes(ps))
	c, err := Import(g, "v", 1, codec.Uint64)
	require.NoError(t, err)

	n := 2 * ps / 8 // two full pages
	fill(t, c, seq(n)...)
	require.NoError(t, c.Flush(t.Context()))
	_, _, err = c.Get(0)
	require.NoError(t, err)
	_, _, err = c.TruncateIfNeeded(Index(n - 24))
	require.NoError(t, err)

	st := metrics.GetStats()
	assert.Equal(t, int64(1), st.ImportCount)
	assert.Equal(t, int64(1), st.FlushCount)
	assert.Equal(t, int64(n), st.FlushRecords)
	assert.Equal(t, int64(n*8), st.FlushBytes)
	assert.Equal(t, int64(24), st.TruncatedItems)
	assert.Equal(t, int64(2), st.PageMaps, "one page per Get and one for the value at the cut")
}
