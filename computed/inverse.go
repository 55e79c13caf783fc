package computed

import (
	"context"

	"github.com/hupe1980/ledgercol"
	"github.com/hupe1980/ledgercol/internal/conv"
)

// InverseIndex extends dst so that dst[v] is the first index i of src with
// src[i] == v, scanning src up to maxSourceIndex. src must be
// non-decreasing and must not skip values; a skipped value fails with
// ledgercol.ErrIndexTooHigh. Values that are not valid indexes, and indexes
// that do not fit I, fail with ledgercol.ErrKeyConversionFailed.
//
// Outputs pointing at or past the clamped end of src are dropped first, so
// a rolled back source is followed.
func InverseIndex[V, I Integer](ctx context.Context, dst *Column[I], src Reader[V], maxSourceIndex ledgercol.Index) error {
	if err := dst.begin(ctx); err != nil {
		return err
	}
	end := clampEnd(maxSourceIndex, src)

	keep, err := firstAtOrAbove(dst, end)
	if err != nil {
		return err
	}
	if keep < dst.Len() {
		if _, _, err := dst.TruncateIfNeeded(ledgercol.Index(keep)); err != nil {
			return err
		}
	}

	var start uint64
	if keep > 0 {
		last, _, err := dst.Get(ledgercol.Index(keep - 1))
		if err != nil {
			return err
		}
		if start, err = conv.To[uint64](last); err != nil {
			return conversionError("source index", last, err)
		}
	}
	if start >= end {
		return nil
	}

	r := runner{ctx: ctx}
	err = src.Iterate(ledgercol.Index(start), func(i ledgercol.Index, v V) bool {
		if uint64(i) >= end || !r.alive() {
			return false
		}
		key, err := conv.To[uint64](v)
		if err != nil {
			return r.fail(conversionError("value", v, err))
		}
		pos, err := conv.To[I](uint64(i))
		if err != nil {
			return r.fail(conversionError("index", i, err))
		}
		if err := dst.PushIfNeeded(ledgercol.Index(key), pos); err != nil {
			return r.fail(err)
		}
		return true
	})
	if err := r.result(err); err != nil {
		return err
	}
	return dst.Flush(ctx)
}

// firstAtOrAbove returns the smallest k with dst[k] >= end, or dst.Len().
// dst holds non-decreasing source indexes.
func firstAtOrAbove[I Integer](dst *Column[I], end uint64) (int, error) {
	lo, hi := 0, dst.Len()
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		v, _, err := dst.Get(ledgercol.Index(mid))
		if err != nil {
			return 0, err
		}
		u, err := conv.To[uint64](v)
		if err != nil {
			return 0, conversionError("source index", v, err)
		}
		if u >= end {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}

// CountFromIndexes extends dst with the length of each inclusive run
// [first[i], last[i]], or 0 when last[i] < first[i].
func CountFromIndexes[I, N Integer](ctx context.Context, dst *Column[N], first, last Reader[I], maxSourceIndex ledgercol.Index) error {
	s, err := dst.prepare(ctx, maxSourceIndex, first, last)
	if err != nil || s.empty() {
		return err
	}

	lasts := newCursor(last)
	r := runner{ctx: ctx}
	err = first.Iterate(s.from, func(i ledgercol.Index, fv I) bool {
		if i >= s.to || !r.alive() {
			return false
		}
		lv, ok, err := lasts.at(i)
		if err != nil {
			return r.fail(err)
		}
		if !ok {
			return false
		}
		n, err := runLength[N](fv, lv)
		if err != nil {
			return r.fail(err)
		}
		if err := dst.PushIfNeeded(i, n); err != nil {
			return r.fail(err)
		}
		return true
	})
	if err := r.result(err); err != nil {
		return err
	}
	return dst.Flush(ctx)
}

func runLength[N, I Integer](first, last I) (N, error) {
	f, err := conv.To[uint64](first)
	if err != nil {
		return 0, conversionError("first index", first, err)
	}
	l, err := conv.To[uint64](last)
	if err != nil {
		return 0, conversionError("last index", last, err)
	}
	if l < f {
		return 0, nil
	}
	n, err := conv.To[N](l - f + 1)
	if err != nil {
		return 0, conversionError("count", l-f+1, err)
	}
	return n, nil
}
