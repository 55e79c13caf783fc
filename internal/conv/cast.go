package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned (wrapped) when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// Integer is the set of built-in integer types.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// To converts v to the integer type D, failing if the value does not fit.
func To[D, S Integer](v S) (D, error) {
	out := D(v)
	// Round trip and sign must both survive.
	if S(out) != v || (v < 0) != (out < 0) {
		var zero D
		return zero, fmt.Errorf("%w: %d does not fit %T", ErrOverflow, v, zero)
	}
	return out, nil
}

// Uint64ToInt converts uint64 to int safely.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d cannot be converted to int (too large)", ErrOverflow, v)
	}
	return int(v), nil
}

// SaturatingAdd returns a+b, clamped to math.MaxUint64.
func SaturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// Offset returns index*width as a file offset.
func Offset(index uint64, width int) (int64, error) {
	if width <= 0 {
		return 0, fmt.Errorf("%w: invalid width %d", ErrOverflow, width)
	}
	if index > uint64(math.MaxInt64/int64(width)) {
		return 0, fmt.Errorf("%w: offset of record %d with width %d", ErrOverflow, index, width)
	}
	return int64(index) * int64(width), nil
}
