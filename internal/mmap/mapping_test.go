package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, size int) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vec")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestMapRange_SecondPage(t *testing.T) {
	ps := PageSize()
	f := writeFile(t, 3*ps)

	m, err := MapRange(f, int64(ps), ps)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, ps, m.Size())
	assert.Equal(t, int64(ps), m.Offset())
	assert.Equal(t, byte(ps%251), m.Bytes()[0])
	require.NoError(t, m.Advise(AccessRandom))

	buf := make([]byte, 4)
	n, err := m.ReadAt(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, byte((ps+1)%251), buf[0])

	_, err = m.ReadAt(buf, int64(ps))
	assert.Equal(t, io.EOF, err)
	_, err = m.ReadAt(buf, -1)
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestMapRange_InvalidArguments(t *testing.T) {
	f := writeFile(t, PageSize())

	_, err := MapRange(f, 1, 8)
	assert.ErrorIs(t, err, ErrInvalidOffset)

	_, err = MapRange(f, 0, -1)
	assert.ErrorIs(t, err, ErrInvalidSize)

	m, err := MapRange(f, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Size())
	assert.NoError(t, m.Close())
}

func TestMapping_AfterClose(t *testing.T) {
	f := writeFile(t, PageSize())

	m, err := MapRange(f, 0, PageSize())
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessSequential), ErrClosed)
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
}
