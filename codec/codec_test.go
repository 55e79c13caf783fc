package codec

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ohlc struct {
	Open, High, Low, Close float64
	Volume                 uint64
}

type withString struct {
	Name string
}

func roundTrip[T any](c Codec[T], v T) T {
	return c.Decode(Encode(c, v))
}

func TestCodecs_RoundTripProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("uint64 round trips", prop.ForAll(
		func(v uint64) bool { return roundTrip(Uint64, v) == v },
		gen.UInt64(),
	))
	properties.Property("int64 round trips", prop.ForAll(
		func(v int64) bool { return roundTrip(Int64, v) == v },
		gen.Int64(),
	))
	properties.Property("int32 round trips", prop.ForAll(
		func(v int32) bool { return roundTrip(Int32, v) == v },
		gen.Int32(),
	))
	properties.Property("uint16 round trips", prop.ForAll(
		func(v uint16) bool { return roundTrip(Uint16, v) == v },
		gen.UInt16(),
	))
	properties.Property("float64 round trips bit-exactly", prop.ForAll(
		func(v float64) bool {
			return math.Float64bits(roundTrip(Float64, v)) == math.Float64bits(v)
		},
		gen.Float64(),
	))
	properties.Property("float32 round trips bit-exactly", prop.ForAll(
		func(v float32) bool {
			return math.Float32bits(roundTrip(Float32, v)) == math.Float32bits(v)
		},
		gen.Float32(),
	))

	properties.TestingRun(t)
}

func TestCodecs_Widths(t *testing.T) {
	assert.Equal(t, 1, Uint8.Width())
	assert.Equal(t, 1, Bool.Width())
	assert.Equal(t, 2, Uint16.Width())
	assert.Equal(t, 4, Uint32.Width())
	assert.Equal(t, 4, Int32.Width())
	assert.Equal(t, 4, Float32.Width())
	assert.Equal(t, 8, Uint64.Width())
	assert.Equal(t, 8, Int64.Width())
	assert.Equal(t, 8, Float64.Width())
}

func TestUint64_LittleEndian(t *testing.T) {
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, Encode(Uint64, 1))
}

func TestBool(t *testing.T) {
	assert.True(t, roundTrip(Bool, true))
	assert.False(t, roundTrip(Bool, false))
	assert.True(t, Bool.Decode([]byte{7}))
}

func TestDefinedTypes(t *testing.T) {
	type height uint64
	c := Unsigned64[height]()
	assert.Equal(t, height(42), roundTrip(c, 42))
}

func TestWrongSpanPanics(t *testing.T) {
	assert.Panics(t, func() { Uint64.Encode(make([]byte, 7), 1) })
	assert.Panics(t, func() { Uint64.Decode(make([]byte, 9)) })
	assert.Panics(t, func() { FixedBytes(4).Encode(make([]byte, 4), []byte{1}) })
}

func TestFixedBytes(t *testing.T) {
	c := FixedBytes(4)
	assert.Equal(t, "bytes4", c.Name())

	src := []byte{1, 2, 3, 4}
	out := roundTrip(c, src)
	assert.Equal(t, src, out)

	// Decode must not alias the record buffer.
	rec := Encode(c, src)
	dec := c.Decode(rec)
	rec[0] = 9
	assert.Equal(t, byte(1), dec[0])

	assert.Panics(t, func() { FixedBytes(0) })
}

func TestBinary(t *testing.T) {
	c, err := Binary[ohlc]()
	require.NoError(t, err)
	assert.Equal(t, 40, c.Width())

	v := ohlc{Open: 1, High: 3, Low: 0.5, Close: 2, Volume: 1000}
	assert.Equal(t, v, roundTrip(c, v))

	arr, err := Binary[[3]uint32]()
	require.NoError(t, err)
	assert.Equal(t, 12, arr.Width())
}

func TestBinary_RejectsVariableSize(t *testing.T) {
	_, err := Binary[withString]()
	assert.ErrorIs(t, err, ErrVariableSize)

	_, err = Binary[int]()
	assert.ErrorIs(t, err, ErrVariableSize)
}

func TestGoJSON(t *testing.T) {
	type manifest struct {
		Column string `json:"column"`
		Length int64  `json:"length"`
	}
	in := manifest{Column: "price", Length: 4096}

	b, err := DefaultDocument.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"column":"price","length":4096}`, string(b))

	var out manifest
	require.NoError(t, DefaultDocument.Unmarshal(b, &out))
	assert.Equal(t, in, out)
	assert.Equal(t, "go-json", DefaultDocument.Name())

	pretty, err := GoJSON{}.MarshalIndent(in)
	require.NoError(t, err)
	assert.Contains(t, string(pretty), "\n")
}
