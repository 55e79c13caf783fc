package ledgercol

import (
	"fmt"
)

// iterateChunk is the number of records decoded per locked step of Iterate.
const iterateChunk = 4096

// Iterate calls fn for every record from index from onward in index order,
// flushed records first, then the buffered tail, until fn returns false.
// Flushed records are streamed from the data file without going through
// the page cache. The column lock is not held while fn runs.
//
// A stateless column with buffered values returns ErrUnflushedState.
func (c *Column[T]) Iterate(from Index, fn func(Index, T) bool) error {
	if c.closed.Load() {
		return columnError("iterate", c.name, ErrClosed)
	}
	if c.opts.mode == ModeStateless && c.Buffered() > 0 {
		return columnError("iterate", c.name, ErrUnflushedState)
	}

	pos := uint64(from)
	raw := make([]byte, iterateChunk*c.width)
	vals := make([]T, 0, iterateChunk)
	for {
		vals = vals[:0]

		c.mu.RLock()
		d := c.diskLen.Load()
		if pos < d {
			m := min(uint64(iterateChunk), d-pos)
			span := raw[:m*uint64(c.width)]
			if err := c.reader.stream(pos, span); err != nil {
				c.mu.RUnlock()
				return columnError("iterate", c.name, err)
			}
			for j := 0; j < int(m); j++ {
				vals = append(vals, c.codec.Decode(span[j*c.width:(j+1)*c.width]))
			}
		} else if j := pos - d; j < uint64(len(c.buf)) {
			m := min(uint64(iterateChunk), uint64(len(c.buf))-j)
			vals = append(vals, c.buf[j:j+m]...)
		}
		c.mu.RUnlock()

		if len(vals) == 0 {
			return nil
		}
		for j, v := range vals {
			if !fn(Index(pos+uint64(j)), v) {
				return nil
			}
		}
		pos += uint64(len(vals))
	}
}

// CollectRange returns the records in [from, to), clamped to Len().
// from >= to fails with ErrInvalidRange. A stateless column with buffered
// values returns ErrUnflushedState.
func (c *Column[T]) CollectRange(from, to Index) ([]T, error) {
	if from >= to {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, from, to)
	}
	if c.closed.Load() {
		return nil, columnError("collect", c.name, ErrClosed)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.opts.mode == ModeStateless && len(c.buf) > 0 {
		return nil, columnError("collect", c.name, ErrUnflushedState)
	}

	d := c.diskLen.Load()
	n := d + uint64(len(c.buf))
	lo, hi := uint64(from), min(uint64(to), n)
	if lo >= hi {
		return []T{}, nil
	}

	out := make([]T, 0, hi-lo)
	if lo < d {
		dhi := min(hi, d)
		raw := make([]byte, (dhi-lo)*uint64(c.width))
		if err := c.reader.readRange(lo, dhi, d, raw); err != nil {
			return nil, columnError("collect", c.name, err)
		}
		for j := 0; j < len(raw); j += c.width {
			out = append(out, c.codec.Decode(raw[j:j+c.width]))
		}
	}
	if hi > d {
		start := max(lo, d) - d
		out = append(out, c.buf[start:hi-d]...)
	}
	return out, nil
}
