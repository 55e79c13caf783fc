package ledgercol

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ledgercol/codec"
)

func TestColumn_Properties(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("flushed values read back after reopen", prop.ForAll(
		func(vals []int64) bool {
			dir := t.TempDir()
			g, err := OpenGroup(dir)
			require.NoError(t, err)
			c, err := Import(g, "v", 1, codec.Int64)
			require.NoError(t, err)
			for i, v := range vals {
				if c.PushIfNeeded(Index(i), v) != nil {
					return false
				}
			}
			if c.Flush(context.Background()) != nil || g.Close() != nil {
				return false
			}

			g, err = OpenGroup(dir)
			require.NoError(t, err)
			defer g.Close()
			c, err = Import(g, "v", 1, codec.Int64)
			require.NoError(t, err)
			if c.Len() != len(vals) {
				return false
			}
			for i, want := range vals {
				got, ok, err := c.Get(Index(i))
				if err != nil || !ok || got != want {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64()),
	))

	properties.Property("an existing index keeps its first value", prop.ForAll(
		func(n int, k int, a, b uint64, flush bool) bool {
			if k >= n {
				k = n - 1
			}
			g, err := OpenGroup(t.TempDir())
			require.NoError(t, err)
			defer g.Close()
			c, err := Import(g, "v", 1, codec.Uint64)
			require.NoError(t, err)

			for i := 0; i < n; i++ {
				v := uint64(i)
				if i == k {
					v = a
				}
				c.Push(v)
			}
			if flush && c.Flush(context.Background()) != nil {
				return false
			}
			if c.PushIfNeeded(Index(k), b) != nil {
				return false
			}
			got, ok, err := c.Get(Index(k))
			return err == nil && ok && got == a && c.Len() == n
		},
		gen.IntRange(1, 3000),
		gen.IntRange(0, 2999),
		gen.UInt64(),
		gen.UInt64(),
		gen.Bool(),
	))

	properties.Property("truncate then append extends from the cut", prop.ForAll(
		func(n, k int) bool {
			k %= n + 1
			g, err := OpenGroup(t.TempDir())
			require.NoError(t, err)
			defer g.Close()
			c, err := Import(g, "v", 1, codec.Uint64)
			require.NoError(t, err)
			for i := 0; i < n; i++ {
				c.Push(uint64(i))
			}
			if c.Flush(context.Background()) != nil {
				return false
			}
			if _, _, err := c.TruncateIfNeeded(Index(k)); err != nil {
				return false
			}
			if c.Len() != k {
				return false
			}
			if c.PushIfNeeded(Index(k), 424242) != nil {
				return false
			}
			got, ok, err := c.Get(Index(k))
			return err == nil && ok && got == 424242 && c.Len() == k+1
		},
		gen.IntRange(0, 2000),
		gen.IntRange(0, 2000),
	))

	properties.TestingRun(t)
}
