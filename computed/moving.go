package computed

import (
	"context"
	"fmt"

	"github.com/hupe1980/ledgercol"
)

// MovingAverage extends dst with the mean of the last window values of src
// ending at each index. The first window-1 outputs average over the values
// available so far. Each output is summed afresh, so an incremental run
// produces the same bits as a full rebuild.
func MovingAverage[V Number](ctx context.Context, dst *Column[float64], src Reader[V], window int, maxSourceIndex ledgercol.Index) error {
	if window < 1 {
		return fmt.Errorf("computed: moving average window %d < 1", window)
	}
	s, err := dst.prepare(ctx, maxSourceIndex, src)
	if err != nil || s.empty() {
		return err
	}

	start := s.from - min(s.from, ledgercol.Index(window-1))
	ring := make([]V, 0, window)
	if start < s.from {
		prefix, err := src.CollectRange(start, s.from)
		if err != nil {
			return err
		}
		ring = append(ring, prefix...)
	}

	r := runner{ctx: ctx}
	err = src.Iterate(s.from, func(i ledgercol.Index, v V) bool {
		if i >= s.to || !r.alive() {
			return false
		}
		if len(ring) == window {
			copy(ring, ring[1:])
			ring = ring[:window-1]
		}
		ring = append(ring, v)

		var sum float64
		for _, x := range ring {
			sum += float64(x)
		}
		if err := dst.PushIfNeeded(i, sum/float64(len(ring))); err != nil {
			return r.fail(err)
		}
		return true
	})
	if err := r.result(err); err != nil {
		return err
	}
	return dst.Flush(ctx)
}
