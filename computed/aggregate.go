package computed

import (
	"context"
	"math"
	"slices"

	"github.com/hupe1980/ledgercol"
	"github.com/hupe1980/ledgercol/internal/conv"
)

// Integer is the set of integer types usable as indexes and counts.
type Integer = conv.Integer

// Number is the set of types Aggregate can fold.
type Number interface {
	Integer | ~float32 | ~float64
}

// Percentiles computed by Aggregate.
const (
	P10 = 0.10
	P25 = 0.25
	P50 = 0.50
	P75 = 0.75
	P90 = 0.90
)

// Percentile returns the p-th percentile (0 <= p <= 1) of sorted values.
// The rank (n-1)*p selects an element when integral; otherwise the two
// neighbouring ranks are averaged. An empty slice yields 0.
func Percentile[V Number](sorted []V, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	p = min(max(p, 0), 1)
	rank := float64(n-1) * p
	lo := math.Floor(rank)
	if lo == rank {
		return float64(sorted[int(lo)])
	}
	i := int(lo)
	return (float64(sorted[i]) + float64(sorted[i+1])) / 2
}

// Aggregates names the outputs of Aggregate. Nil outputs are skipped.
type Aggregates[V Number] struct {
	First, Last *Column[V]
	Min, Max    *Column[V]
	Sum         *Column[V]
	// Cumulative is the running total of Sum over all buckets so far.
	Cumulative *Column[V]
	Average    *Column[float64]

	P10, P25, Median, P75, P90 *Column[float64]
}

// Stats is the fold of one bucket.
type Stats[V Number] struct {
	First, Last, Min, Max, Sum V
	Average                    float64
	P10, P25, Median, P75, P90 float64
}

// Fold computes the Stats of one bucket. Empty buckets yield zero values.
func Fold[V Number](bucket []V) Stats[V] {
	var s Stats[V]
	if len(bucket) == 0 {
		return s
	}
	s.First, s.Last = bucket[0], bucket[len(bucket)-1]
	s.Min, s.Max = bucket[0], bucket[0]
	for _, v := range bucket {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
		s.Sum += v
	}
	s.Average = float64(s.Sum) / float64(len(bucket))

	sorted := slices.Clone(bucket)
	slices.Sort(sorted)
	s.P10 = Percentile(sorted, P10)
	s.P25 = Percentile(sorted, P25)
	s.Median = Percentile(sorted, P50)
	s.P75 = Percentile(sorted, P75)
	s.P90 = Percentile(sorted, P90)
	return s
}

type output interface {
	Source
	prepare(ctx context.Context, maxSourceIndex ledgercol.Index, bounds ...Source) (span, error)
	Flush(ctx context.Context) error
}

func (a *Aggregates[V]) outputs() []output {
	var out []output
	for _, c := range []*Column[V]{a.First, a.Last, a.Min, a.Max, a.Sum, a.Cumulative} {
		if c != nil {
			out = append(out, c)
		}
	}
	for _, c := range []*Column[float64]{a.Average, a.P10, a.P25, a.Median, a.P75, a.P90} {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (a *Aggregates[V]) push(i ledgercol.Index, s Stats[V], total V) error {
	pairs := []struct {
		c *Column[V]
		v V
	}{
		{a.First, s.First}, {a.Last, s.Last}, {a.Min, s.Min}, {a.Max, s.Max},
		{a.Sum, s.Sum}, {a.Cumulative, total},
	}
	for _, p := range pairs {
		if p.c != nil {
			if err := p.c.PushIfNeeded(i, p.v); err != nil {
				return err
			}
		}
	}
	floats := []struct {
		c *Column[float64]
		v float64
	}{
		{a.Average, s.Average}, {a.P10, s.P10}, {a.P25, s.P25},
		{a.Median, s.Median}, {a.P75, s.P75}, {a.P90, s.P90},
	}
	for _, p := range floats {
		if p.c != nil {
			if err := p.c.PushIfNeeded(i, p.v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Aggregate extends every output in out by folding buckets of values. Bucket
// i is the inclusive slice values[first[i] .. last[i]]; last[i] < first[i]
// is an empty bucket. The run stops at the first bucket not yet fully
// present in values.
func Aggregate[V Number, I Integer](ctx context.Context, out *Aggregates[V], values Reader[V], first, last Reader[I], maxSourceIndex ledgercol.Index) error {
	outs := out.outputs()
	if len(outs) == 0 {
		return nil
	}

	from := ledgercol.Index(math.MaxUint64)
	var to ledgercol.Index
	for _, o := range outs {
		s, err := o.prepare(ctx, maxSourceIndex, first, last)
		if err != nil {
			return err
		}
		from, to = min(from, s.from), s.to
	}
	if from >= to {
		return nil
	}

	var total V
	if out.Cumulative != nil && from > 0 {
		prev, _, err := out.Cumulative.Get(from - 1)
		if err != nil {
			return err
		}
		total = prev
	}

	vals := newCursor(values)
	lasts := newCursor(last)
	var bucket []V
	r := runner{ctx: ctx}
	err := first.Iterate(from, func(i ledgercol.Index, fv I) bool {
		if i >= to || !r.alive() {
			return false
		}
		lv, ok, err := lasts.at(i)
		if err != nil {
			return r.fail(err)
		}
		if !ok {
			return false
		}
		f, err := conv.To[uint64](fv)
		if err != nil {
			return r.fail(conversionError("first index", fv, err))
		}
		l, err := conv.To[uint64](lv)
		if err != nil {
			return r.fail(conversionError("last index", lv, err))
		}

		bucket = bucket[:0]
		if l >= f {
			bucket, ok, err = vals.slice(ledgercol.Index(f), ledgercol.Index(l), bucket)
			if err != nil {
				return r.fail(err)
			}
			if !ok {
				return false
			}
		}

		s := Fold(bucket)
		total += s.Sum
		if err := out.push(i, s, total); err != nil {
			return r.fail(err)
		}
		return true
	})
	if err := r.result(err); err != nil {
		return err
	}
	for _, o := range outs {
		if err := o.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}
