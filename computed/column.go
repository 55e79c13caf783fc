package computed

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/ledgercol"
	"github.com/hupe1980/ledgercol/codec"
	"github.com/hupe1980/ledgercol/internal/conv"
)

const computedVersionFile = "computed_version"

// Source is anything a derived column depends on.
type Source interface {
	Version() ledgercol.Version
	Len() int
}

// Reader is a readable Source. *ledgercol.Column, *Column and *Lazy
// implement it.
type Reader[T any] interface {
	Source
	Get(i ledgercol.Index) (T, bool, error)
	Iterate(from ledgercol.Index, fn func(ledgercol.Index, T) bool) error
	CollectRange(from, to ledgercol.Index) ([]T, error)
}

// Column is a derived column.
type Column[T any] struct {
	*ledgercol.Column[T]

	local   ledgercol.Version
	sources []Source
	log     *ledgercol.Logger

	synced  bool
	current ledgercol.Version
}

// Import opens the derived column name of g. Its stored data is kept only if
// the computed version, local plus the versions of sources, matches the one
// recorded on disk; otherwise the column is emptied. A change of local that
// makes the column's own version file mismatch is recovered the same way.
func Import[T any](g *ledgercol.Group, name string, local ledgercol.Version, c codec.Codec[T], sources ...Source) (*Column[T], error) {
	base, err := ledgercol.ForcedImport(g, name, local, c)
	if err != nil {
		return nil, err
	}
	col := &Column[T]{
		Column:  base,
		local:   local,
		sources: sources,
		log:     g.Logger().WithColumn(name),
	}
	if err := col.syncVersion(context.Background()); err != nil {
		_ = base.Close()
		return nil, err
	}
	return col, nil
}

// Version returns the computed version: the local version plus the versions
// of every source.
func (c *Column[T]) Version() ledgercol.Version {
	v := c.local
	for _, s := range c.sources {
		v = v.Add(s.Version())
	}
	return v
}

// syncVersion empties the column when the computed version changed.
func (c *Column[T]) syncVersion(ctx context.Context) error {
	want := c.Version()
	if c.synced && c.current == want {
		return nil
	}

	stored, ok, err := c.ReadVersionFile(computedVersionFile)
	var mismatch *ledgercol.VersionMismatchError
	switch {
	case errors.As(err, &mismatch):
		ok = true
		stored = ^want
	case err != nil:
		return err
	}

	if ok && stored == want {
		c.synced, c.current = true, want
		return nil
	}
	if ok || c.Len() > 0 {
		c.log.WarnContext(ctx, "computed version changed, rebuilding",
			"stored", uint64(stored),
			"expected", uint64(want),
			"dropped", c.Len(),
		)
		if err := c.Reset(ctx); err != nil {
			return err
		}
	}
	if err := c.WriteVersionFile(computedVersionFile, want); err != nil {
		return err
	}
	c.synced, c.current = true, want
	return nil
}

// begin checks for cancellation and validates the computed version.
func (c *Column[T]) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.syncVersion(ctx)
}

// clampEnd returns min(maxSourceIndex+1, len of each source).
func clampEnd(maxSourceIndex ledgercol.Index, sources ...Source) uint64 {
	end := conv.SaturatingAdd(uint64(maxSourceIndex), 1)
	for _, s := range sources {
		end = min(end, uint64(s.Len()))
	}
	return end
}

// span is the half-open range of output indices a builder run computes.
type span struct {
	from, to ledgercol.Index
}

func (s span) empty() bool { return s.from >= s.to }

// prepare validates the version, clamps the run to
// min(maxSourceIndex+1, len of each bound source) and cuts the output if it
// is longer than that. It returns the range left to compute.
func (c *Column[T]) prepare(ctx context.Context, maxSourceIndex ledgercol.Index, bounds ...Source) (span, error) {
	if err := c.begin(ctx); err != nil {
		return span{}, err
	}

	end := clampEnd(maxSourceIndex, bounds...)

	n := uint64(c.Len())
	if n > end {
		if _, _, err := c.TruncateIfNeeded(ledgercol.Index(end)); err != nil {
			return span{}, err
		}
		n = end
	}
	return span{from: ledgercol.Index(n), to: ledgercol.Index(end)}, nil
}

// runner feeds one output index at a time and collects the first failure.
type runner struct {
	ctx context.Context
	err error
	// checked is the number of steps since the context was last polled.
	checked int
}

func (r *runner) fail(err error) bool {
	r.err = err
	return false
}

func (r *runner) alive() bool {
	r.checked++
	if r.checked&1023 != 0 {
		return true
	}
	if err := r.ctx.Err(); err != nil {
		return r.fail(err)
	}
	return true
}

func (r *runner) result(iterErr error) error {
	if iterErr != nil {
		return iterErr
	}
	return r.err
}

// chunk is the number of records a cursor loads at once.
const chunk = 4096

// cursor reads a source by ascending index in chunks, bounded by end.
type cursor[T any] struct {
	src  Reader[T]
	end  ledgercol.Index
	base ledgercol.Index
	buf  []T
}

func newCursor[T any](src Reader[T]) *cursor[T] {
	return &cursor[T]{src: src, end: ledgercol.Index(src.Len())}
}

// at returns src[i]. It reports false past the end of the source.
func (c *cursor[T]) at(i ledgercol.Index) (T, bool, error) {
	var zero T
	if i >= c.end {
		return zero, false, nil
	}
	if i < c.base || i >= c.base+ledgercol.Index(len(c.buf)) {
		vals, err := c.src.CollectRange(i, min(i+chunk, c.end))
		if err != nil {
			return zero, false, err
		}
		c.base, c.buf = i, vals
		if len(vals) == 0 {
			return zero, false, nil
		}
	}
	return c.buf[i-c.base], true, nil
}

// slice returns src[from, to]; to is inclusive.
func (c *cursor[T]) slice(from, to ledgercol.Index, dst []T) ([]T, bool, error) {
	dst = dst[:0]
	if to >= c.end {
		return dst, false, nil
	}
	for i := from; i <= to; i++ {
		v, ok, err := c.at(i)
		if err != nil || !ok {
			return dst, false, err
		}
		dst = append(dst, v)
	}
	return dst, true, nil
}

// conversionError wraps a failed integer conversion.
func conversionError(what string, v any, err error) error {
	return fmt.Errorf("%w: %s %v: %v", ledgercol.ErrKeyConversionFailed, what, v, err)
}
