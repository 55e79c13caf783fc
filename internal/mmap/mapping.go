package mmap

import (
	"io"
	"sync/atomic"
)

// Mapping is a read-only view of one byte range of a file.
// It owns the underlying byte slice and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	offset int64
	closed atomic.Bool
	// unmap is the platform-specific function to unmap the memory.
	unmap func([]byte) error
}

// MapRange maps size bytes of f starting at offset.
// The offset must be aligned to PageSize. A zero size yields an empty mapping.
func MapRange(f Fder, offset int64, size int) (*Mapping, error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	if offset < 0 || offset%int64(PageSize()) != 0 {
		return nil, ErrInvalidOffset
	}
	if size == 0 {
		return &Mapping{offset: offset}, nil
	}

	data, unmapFunc, err := osMap(f.Fd(), offset, size)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:   data,
		offset: offset,
		unmap:  unmapFunc,
	}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}

// Bytes returns the mapped bytes.
// Warning: The slice is valid only until Close() is called.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return len(m.data)
}

// Offset returns the file offset the mapping starts at.
func (m *Mapping) Offset() int64 {
	return m.offset
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.data == nil {
		return nil
	}
	return osAdvise(m.data, pattern)
}

// ReadAt implements io.ReaderAt relative to the start of the mapping.
func (m *Mapping) ReadAt(p []byte, off int64) (n int, err error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n = copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
