package computed

import (
	"context"

	"github.com/hupe1980/ledgercol"
)

// Transform extends dst with dst[i] = fn(i, src[i]) up to maxSourceIndex.
func Transform[S, T any](ctx context.Context, dst *Column[T], src Reader[S], maxSourceIndex ledgercol.Index, fn func(ledgercol.Index, S) (T, error)) error {
	s, err := dst.prepare(ctx, maxSourceIndex, src)
	if err != nil || s.empty() {
		return err
	}

	r := runner{ctx: ctx}
	err = src.Iterate(s.from, func(i ledgercol.Index, v S) bool {
		if i >= s.to || !r.alive() {
			return false
		}
		out, err := fn(i, v)
		if err != nil {
			return r.fail(err)
		}
		if err := dst.PushIfNeeded(i, out); err != nil {
			return r.fail(err)
		}
		return true
	})
	if err := r.result(err); err != nil {
		return err
	}
	return dst.Flush(ctx)
}

// Zip extends dst with dst[i] = fn(i, a[i], b[i]) up to maxSourceIndex.
func Zip[A, B, T any](ctx context.Context, dst *Column[T], a Reader[A], b Reader[B], maxSourceIndex ledgercol.Index, fn func(ledgercol.Index, A, B) (T, error)) error {
	s, err := dst.prepare(ctx, maxSourceIndex, a, b)
	if err != nil || s.empty() {
		return err
	}

	bs := newCursor(b)
	r := runner{ctx: ctx}
	err = a.Iterate(s.from, func(i ledgercol.Index, av A) bool {
		if i >= s.to || !r.alive() {
			return false
		}
		bv, ok, err := bs.at(i)
		if err != nil {
			return r.fail(err)
		}
		if !ok {
			return false
		}
		out, err := fn(i, av, bv)
		if err != nil {
			return r.fail(err)
		}
		if err := dst.PushIfNeeded(i, out); err != nil {
			return r.fail(err)
		}
		return true
	})
	if err := r.result(err); err != nil {
		return err
	}
	return dst.Flush(ctx)
}
