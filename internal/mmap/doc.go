// Package mmap provides read-only memory mappings of byte ranges of a file.
//
// # Overview
//
// Columns are read through fixed-size pages. Each page is an independent
// mapping of one aligned byte range of the column's data file, so pages can
// be mapped and unmapped individually while the file keeps growing.
//
// # Usage
//
//	m, err := mmap.MapRange(f, offset, size)
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//	_ = m.Advise(mmap.AccessSequential)
//
// The offset must be a multiple of [PageSize].
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (madvise is a no-op)
//
// # Thread Safety
//
// A Mapping is safe for concurrent read access. Close is idempotent and
// protected by an atomic flag; callers must ensure no goroutine touches
// Bytes() after Close returns.
package mmap
