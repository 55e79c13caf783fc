package ledgercol

import (
	"io"
	"os"
	"sync"

	"github.com/hupe1980/ledgercol/internal/fs"
	"github.com/hupe1980/ledgercol/internal/mmap"
	"github.com/hupe1980/ledgercol/internal/pagecache"
)

// reader is the read path of one access mode. Offsets and lengths are in
// records; every range lies below the on-disk length passed by the caller,
// who holds the column's read lock.
type reader interface {
	// readRecord copies record i into dst.
	readRecord(i, diskLen uint64, dst []byte) error
	// readRange copies records [from, to) into dst.
	readRange(from, to, diskLen uint64, dst []byte) error
	// stream copies consecutive records starting at from, bypassing any cache.
	stream(from uint64, dst []byte) error
	// invalidate drops cached state at or beyond record from.
	invalidate(from uint64)
	close() error
}

func readFullAt(r io.ReaderAt, dst []byte, off int64) error {
	n, err := r.ReadAt(dst, off)
	if n == len(dst) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

type cachedReader struct {
	file  fs.File
	cache *pagecache.Cache
	width int
}

func newCachedReader(file fs.File, width int, o options, onMap func(int)) (*cachedReader, error) {
	cache, err := pagecache.New(file, pagecache.Config{
		RecordWidth: width,
		PageBytes:   o.pageBytes,
		WindowBytes: o.pageWindowBytes,
		Resources:   o.resources,
		Advice:      mmap.AccessRandom,
		OnMap:       onMap,
	})
	if err != nil {
		return nil, err
	}
	return &cachedReader{file: file, cache: cache, width: width}, nil
}

func (r *cachedReader) readRecord(i, diskLen uint64, dst []byte) error {
	return r.cache.Read(i, diskLen, dst)
}

func (r *cachedReader) readRange(from, to, diskLen uint64, dst []byte) error {
	w := uint64(r.width)
	_, err := r.cache.Scan(from, to, diskLen, func(i uint64, rec []byte) bool {
		copy(dst[(i-from)*w:], rec)
		return true
	})
	return err
}

func (r *cachedReader) stream(from uint64, dst []byte) error {
	return readFullAt(r.file, dst, int64(from)*int64(r.width))
}

func (r *cachedReader) invalidate(from uint64) {
	r.cache.Invalidate(r.cache.PageOf(from))
}

func (r *cachedReader) close() error {
	return r.cache.Close()
}

// sequentialReader owns one file handle and a read-ahead window. The window
// never extends past the on-disk length, so bytes it holds cannot change
// until invalidate.
type sequentialReader struct {
	mu       sync.Mutex
	f        fs.File
	width    int64
	pos      int64 // file cursor, -1 when unknown
	ahead    []byte
	aheadOff int64
	aheadLen int
}

func newSequentialReader(fsys fs.FileSystem, path string, width, readAhead int) (*sequentialReader, error) {
	f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	if readAhead < width {
		readAhead = width
	}
	return &sequentialReader{
		f:     f,
		width: int64(width),
		pos:   0,
		ahead: make([]byte, readAhead),
	}, nil
}

func (r *sequentialReader) readAt(dst []byte, off, limit int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if off >= r.aheadOff && off+int64(len(dst)) <= r.aheadOff+int64(r.aheadLen) {
		copy(dst, r.ahead[off-r.aheadOff:])
		return nil
	}
	if len(dst) >= len(r.ahead) {
		return r.readCursor(dst, off)
	}

	n := min(int64(len(r.ahead)), limit-off)
	if n < int64(len(dst)) {
		n = int64(len(dst))
	}
	if err := r.readCursor(r.ahead[:n], off); err != nil {
		r.aheadLen = 0
		return err
	}
	r.aheadOff, r.aheadLen = off, int(n)
	copy(dst, r.ahead[:len(dst)])
	return nil
}

func (r *sequentialReader) readCursor(dst []byte, off int64) error {
	if r.pos != off {
		if _, err := r.f.Seek(off, io.SeekStart); err != nil {
			r.pos = -1
			return err
		}
		r.pos = off
	}
	n, err := io.ReadFull(r.f, dst)
	r.pos += int64(n)
	if err != nil {
		r.pos = -1
	}
	return err
}

func (r *sequentialReader) readRecord(i, diskLen uint64, dst []byte) error {
	return r.readAt(dst, int64(i)*r.width, int64(diskLen)*r.width)
}

func (r *sequentialReader) readRange(from, _, diskLen uint64, dst []byte) error {
	return r.readAt(dst, int64(from)*r.width, int64(diskLen)*r.width)
}

func (r *sequentialReader) stream(from uint64, dst []byte) error {
	off := int64(from) * r.width
	return r.readAt(dst, off, off+int64(len(dst)))
}

func (r *sequentialReader) invalidate(uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aheadLen = 0
	r.pos = -1
}

func (r *sequentialReader) close() error {
	return r.f.Close()
}

// statelessReader opens the data file for every read.
type statelessReader struct {
	fsys  fs.FileSystem
	path  string
	width int64
}

func (r *statelessReader) read(dst []byte, off int64) error {
	f, err := r.fsys.OpenFile(r.path, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return readFullAt(f, dst, off)
}

func (r *statelessReader) readRecord(i, _ uint64, dst []byte) error {
	return r.read(dst, int64(i)*r.width)
}

func (r *statelessReader) readRange(from, _, _ uint64, dst []byte) error {
	return r.read(dst, int64(from)*r.width)
}

func (r *statelessReader) stream(from uint64, dst []byte) error {
	return r.read(dst, int64(from)*r.width)
}

func (r *statelessReader) invalidate(uint64) {}

func (r *statelessReader) close() error { return nil }

func newReader(mode Mode, file fs.File, path string, width int, o options, onMap func(int)) (reader, error) {
	switch mode {
	case ModeSequential:
		return newSequentialReader(o.fs, path, width, o.pageBytes)
	case ModeStateless:
		return &statelessReader{fsys: o.fs, path: path, width: int64(width)}, nil
	default:
		return newCachedReader(file, width, o, onMap)
	}
}
