package codec

import (
	"encoding/binary"
	"fmt"
)

type fixedBytes struct{ width int }

// FixedBytes returns a codec for byte strings of exactly width bytes.
// Encoding a value of another length panics.
func FixedBytes(width int) Codec[[]byte] {
	if width <= 0 {
		panic(fmt.Sprintf("codec: invalid fixed bytes width %d", width))
	}
	return fixedBytes{width: width}
}

func (f fixedBytes) Width() int   { return f.width }
func (f fixedBytes) Name() string { return fmt.Sprintf("bytes%d", f.width) }

func (f fixedBytes) Encode(dst []byte, v []byte) {
	checkSpan(f.Name(), dst, f.width)
	checkSpan(f.Name(), v, f.width)
	copy(dst, v)
}

func (f fixedBytes) Decode(src []byte) []byte {
	checkSpan(f.Name(), src, f.width)
	out := make([]byte, f.width)
	copy(out, src)
	return out
}

type binaryCodec[T any] struct {
	width int
	name  string
}

// Binary returns a little-endian codec for a fixed-size struct, array or
// numeric type, as understood by encoding/binary. Types containing slices,
// strings, maps, pointers or int/uint fields are rejected.
func Binary[T any]() (Codec[T], error) {
	var zero T
	width := binary.Size(zero)
	if width <= 0 {
		return nil, fmt.Errorf("%w: %T", ErrVariableSize, zero)
	}
	return binaryCodec[T]{width: width, name: fmt.Sprintf("binary(%T)", zero)}, nil
}

func (c binaryCodec[T]) Width() int   { return c.width }
func (c binaryCodec[T]) Name() string { return c.name }

func (c binaryCodec[T]) Encode(dst []byte, v T) {
	checkSpan(c.name, dst, c.width)
	if _, err := binary.Encode(dst, binary.LittleEndian, v); err != nil {
		panic(fmt.Sprintf("codec %s: %v", c.name, err))
	}
}

func (c binaryCodec[T]) Decode(src []byte) T {
	checkSpan(c.name, src, c.width)
	var v T
	if _, err := binary.Decode(src, binary.LittleEndian, &v); err != nil {
		panic(fmt.Sprintf("codec %s: %v", c.name, err))
	}
	return v
}
