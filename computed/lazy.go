package computed

import (
	"github.com/hupe1980/ledgercol"
)

// Lazy is a read-only view with view[i] = fn(i, src[i]), computed on every
// read. Nothing is stored. It is a Reader, so it can feed builders.
type Lazy[S, T any] struct {
	src   Reader[S]
	local ledgercol.Version
	fn    func(ledgercol.Index, S) T
}

// NewLazy returns a view over src. local is added to the source version.
func NewLazy[S, T any](src Reader[S], local ledgercol.Version, fn func(ledgercol.Index, S) T) *Lazy[S, T] {
	return &Lazy[S, T]{src: src, local: local, fn: fn}
}

// Version returns local plus the source version.
func (l *Lazy[S, T]) Version() ledgercol.Version { return l.local.Add(l.src.Version()) }

// Len returns the source length.
func (l *Lazy[S, T]) Len() int { return l.src.Len() }

// Get computes the value at i.
func (l *Lazy[S, T]) Get(i ledgercol.Index) (T, bool, error) {
	var zero T
	v, ok, err := l.src.Get(i)
	if err != nil || !ok {
		return zero, ok, err
	}
	return l.fn(i, v), true, nil
}

// Iterate calls fn with computed values from index from onward.
func (l *Lazy[S, T]) Iterate(from ledgercol.Index, fn func(ledgercol.Index, T) bool) error {
	return l.src.Iterate(from, func(i ledgercol.Index, v S) bool {
		return fn(i, l.fn(i, v))
	})
}

// CollectRange computes the values in [from, to).
func (l *Lazy[S, T]) CollectRange(from, to ledgercol.Index) ([]T, error) {
	vals, err := l.src.CollectRange(from, to)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(vals))
	for j, v := range vals {
		out[j] = l.fn(from+ledgercol.Index(j), v)
	}
	return out, nil
}
