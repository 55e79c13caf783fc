//go:build amd64 || arm64

package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTo(t *testing.T) {
	t.Run("uint64 to int", func(t *testing.T) {
		got, err := To[int](uint64(123))
		require.NoError(t, err)
		assert.Equal(t, 123, got)
	})

	t.Run("negative to unsigned", func(t *testing.T) {
		_, err := To[uint64](int32(-1))
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("too large for uint8", func(t *testing.T) {
		_, err := To[uint8](300)
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("max uint64 to int64", func(t *testing.T) {
		_, err := To[int64](uint64(math.MaxUint64))
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("negative to signed", func(t *testing.T) {
		got, err := To[int64](int8(-5))
		require.NoError(t, err)
		assert.Equal(t, int64(-5), got)
	})
}

func TestUint64ToInt(t *testing.T) {
	got, err := Uint64ToInt(uint64(math.MaxInt))
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, got)

	_, err = Uint64ToInt(uint64(math.MaxInt) + 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestSaturatingAdd(t *testing.T) {
	assert.Equal(t, uint64(5), SaturatingAdd(2, 3))
	assert.Equal(t, uint64(math.MaxUint64), SaturatingAdd(math.MaxUint64, 1))
	assert.Equal(t, uint64(math.MaxUint64), SaturatingAdd(math.MaxUint64-1, 1))
}

func TestOffset(t *testing.T) {
	off, err := Offset(10, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(80), off)

	_, err = Offset(math.MaxUint64/2, 8)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Offset(1, 0)
	assert.Error(t, err)
}
