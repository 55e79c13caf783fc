package codec

import (
	"encoding/binary"
	"math"
)

type fixed[T any] struct {
	name  string
	width int
	enc   func([]byte, T)
	dec   func([]byte) T
}

func (f fixed[T]) Width() int   { return f.width }
func (f fixed[T]) Name() string { return f.name }

func (f fixed[T]) Encode(dst []byte, v T) {
	checkSpan(f.name, dst, f.width)
	f.enc(dst, v)
}

func (f fixed[T]) Decode(src []byte) T {
	checkSpan(f.name, src, f.width)
	return f.dec(src)
}

// Unsigned64 returns the little-endian codec for any type whose underlying type is uint64.
func Unsigned64[T ~uint64]() Codec[T] {
	return fixed[T]{
		name:  "uint64",
		width: 8,
		enc:   func(b []byte, v T) { binary.LittleEndian.PutUint64(b, uint64(v)) },
		dec:   func(b []byte) T { return T(binary.LittleEndian.Uint64(b)) },
	}
}

// Unsigned32 returns the little-endian codec for any type whose underlying type is uint32.
func Unsigned32[T ~uint32]() Codec[T] {
	return fixed[T]{
		name:  "uint32",
		width: 4,
		enc:   func(b []byte, v T) { binary.LittleEndian.PutUint32(b, uint32(v)) },
		dec:   func(b []byte) T { return T(binary.LittleEndian.Uint32(b)) },
	}
}

// Unsigned16 returns the little-endian codec for any type whose underlying type is uint16.
func Unsigned16[T ~uint16]() Codec[T] {
	return fixed[T]{
		name:  "uint16",
		width: 2,
		enc:   func(b []byte, v T) { binary.LittleEndian.PutUint16(b, uint16(v)) },
		dec:   func(b []byte) T { return T(binary.LittleEndian.Uint16(b)) },
	}
}

// Signed64 returns the little-endian two's complement codec for ~int64 types.
func Signed64[T ~int64]() Codec[T] {
	return fixed[T]{
		name:  "int64",
		width: 8,
		enc:   func(b []byte, v T) { binary.LittleEndian.PutUint64(b, uint64(v)) },
		dec:   func(b []byte) T { return T(int64(binary.LittleEndian.Uint64(b))) },
	}
}

// Signed32 returns the little-endian two's complement codec for ~int32 types.
func Signed32[T ~int32]() Codec[T] {
	return fixed[T]{
		name:  "int32",
		width: 4,
		enc:   func(b []byte, v T) { binary.LittleEndian.PutUint32(b, uint32(v)) },
		dec:   func(b []byte) T { return T(int32(binary.LittleEndian.Uint32(b))) },
	}
}

// Built-in codecs.
var (
	Uint8 Codec[uint8] = fixed[uint8]{
		name:  "uint8",
		width: 1,
		enc:   func(b []byte, v uint8) { b[0] = v },
		dec:   func(b []byte) uint8 { return b[0] },
	}
	Uint16 = Unsigned16[uint16]()
	Uint32 = Unsigned32[uint32]()
	Uint64 = Unsigned64[uint64]()
	Int32  = Signed32[int32]()
	Int64  = Signed64[int64]()

	Float32 Codec[float32] = fixed[float32]{
		name:  "float32",
		width: 4,
		enc:   func(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) },
		dec:   func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) },
	}
	Float64 Codec[float64] = fixed[float64]{
		name:  "float64",
		width: 8,
		enc:   func(b []byte, v float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(v)) },
		dec:   func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) },
	}
	Bool Codec[bool] = fixed[bool]{
		name:  "bool",
		width: 1,
		enc: func(b []byte, v bool) {
			b[0] = 0
			if v {
				b[0] = 1
			}
		},
		dec: func(b []byte) bool { return b[0] != 0 },
	}
)
