package ledgercol

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/ledgercol/codec"
	"github.com/hupe1980/ledgercol/exit"
	"github.com/hupe1980/ledgercol/internal/conv"
	"github.com/hupe1980/ledgercol/internal/fs"
)

// Column is an append-only vector of fixed-width records persisted in one
// directory of a Group.
//
// Values are appended to an in-memory buffer and reach the data file on
// Flush. Len counts both, and reads transparently merge them. A column has a
// single writer: Push, PushIfNeeded, Flush, TruncateIfNeeded and Reset must
// not run concurrently with each other. Reads may run concurrently with the
// writer and, in ModeCached and ModeStateless, with each other.
type Column[T any] struct {
	name    string
	dir     string
	path    string
	version Version
	codec   codec.Codec[T]
	width   int
	opts    options
	log     *Logger
	group   *Group

	file   fs.File
	reader reader
	recs   sync.Pool

	mu      sync.RWMutex // guards buf; held exclusively while the file shrinks
	buf     []T
	diskLen atomic.Uint64

	writeMu sync.Mutex
	closed  atomic.Bool
}

// Import opens the column name of g, creating it if needed. The column's
// version file must hold v; a different value fails with ErrWrongEndian or a
// *VersionMismatchError. Options override the group's options for this
// column.
func Import[T any](g *Group, name string, v Version, c codec.Codec[T], opts ...Option) (*Column[T], error) {
	if g == nil {
		return nil, errors.New("ledgercol: nil group")
	}
	if c == nil || c.Width() <= 0 {
		return nil, fmt.Errorf("ledgercol: invalid codec for column %q", name)
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	o := g.columnOptions(opts)
	log := o.logger.WithColumn(name)

	if err := g.reserve(name); err != nil {
		return nil, err
	}
	col, err := openColumn(g, name, v, c, o, log)
	if err != nil {
		g.release(name)
		o.metricsCollector.RecordImport(name, 0, err)
		log.LogImport(context.Background(), v, 0, o.mode, err)
		return nil, err
	}
	g.register(name, col)

	o.metricsCollector.RecordImport(name, col.Len(), nil)
	log.LogImport(context.Background(), v, col.Len(), o.mode, nil)
	return col, nil
}

// ForcedImport is Import that recovers from a stale column: on
// ErrWrongEndian or ErrVersionMismatch it deletes the column's directory and
// imports again into an empty column. All stored data of the column is lost.
func ForcedImport[T any](g *Group, name string, v Version, c codec.Codec[T], opts ...Option) (*Column[T], error) {
	col, err := Import(g, name, v, c, opts...)
	if err == nil || !(errors.Is(err, ErrWrongEndian) || errors.Is(err, ErrVersionMismatch)) {
		return col, err
	}

	o := g.columnOptions(opts)
	o.logger.WithColumn(name).WarnContext(context.Background(), "deleting stale column",
		"version", uint64(v),
		"error", err,
	)
	if rmErr := o.fs.RemoveAll(filepath.Join(g.dir, name)); rmErr != nil {
		return nil, columnError("forced import", name, rmErr)
	}
	return Import(g, name, v, c, opts...)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("ledgercol: invalid column name %q", name)
	}
	return nil
}

func openColumn[T any](g *Group, name string, v Version, c codec.Codec[T], o options, log *Logger) (*Column[T], error) {
	dir := filepath.Join(g.dir, name)
	if err := o.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, columnError("import", name, err)
	}
	if err := checkVersion(o.fs, filepath.Join(dir, versionFileName), v); err != nil {
		return nil, columnError("import", name, err)
	}

	path := filepath.Join(dir, dataFileName)
	file, err := o.fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, columnError("import", name, err)
	}

	width := c.Width()
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, columnError("import", name, err)
	}
	size := info.Size()
	if rem := size % int64(width); rem != 0 {
		kept := size - rem
		if err := file.Truncate(kept); err != nil {
			_ = file.Close()
			return nil, columnError("import", name, err)
		}
		log.LogTornTail(context.Background(), size, kept)
		size = kept
	}

	col := &Column[T]{
		name:    name,
		dir:     dir,
		path:    path,
		version: v,
		codec:   c,
		width:   width,
		opts:    o,
		log:     log,
		group:   g,
		file:    file,
	}
	col.recs.New = func() any {
		b := make([]byte, width)
		return &b
	}
	col.diskLen.Store(uint64(size / int64(width)))

	if n := g.minimumLength(); n > 0 {
		if err := preallocate(file, n); err != nil {
			_ = file.Close()
			return nil, columnError("import", name, err)
		}
	}

	onMap := func(bytes int) { o.metricsCollector.RecordPageMap(name, bytes) }
	col.reader, err = newReader(o.mode, file, path, width, o, onMap)
	if err != nil {
		_ = file.Close()
		return nil, columnError("import", name, err)
	}
	return col, nil
}

// Name returns the column name.
func (c *Column[T]) Name() string { return c.name }

func (c *Column[T]) exitGuard() *exit.Guard { return c.opts.guard }

// Dir returns the column directory.
func (c *Column[T]) Dir() string { return c.dir }

// Path returns the data file path.
func (c *Column[T]) Path() string { return c.path }

// Version returns the version the column was imported with.
func (c *Column[T]) Version() Version { return c.version }

// Mode returns the read mode.
func (c *Column[T]) Mode() Mode { return c.opts.mode }

// Codec returns the record codec.
func (c *Column[T]) Codec() codec.Codec[T] { return c.codec }

// Len returns the number of records, flushed and buffered.
func (c *Column[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d := c.DiskLen()
	if d > math.MaxInt-len(c.buf) {
		return math.MaxInt
	}
	return d + len(c.buf)
}

// DiskLen returns the number of flushed records, saturating at math.MaxInt.
func (c *Column[T]) DiskLen() int {
	n, err := conv.Uint64ToInt(c.diskLen.Load())
	if err != nil {
		return math.MaxInt
	}
	return n
}

// Buffered returns the number of records not yet flushed.
func (c *Column[T]) Buffered() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.buf)
}

// Has reports whether i < Len().
func (c *Column[T]) Has(i Index) bool {
	return uint64(i) < uint64(c.Len())
}

// Push appends v unconditionally. It never touches disk.
func (c *Column[T]) Push(v T) {
	c.mu.Lock()
	c.buf = append(c.buf, v)
	c.mu.Unlock()
}

// PushIfNeeded appends v if i equals Len(). An i below Len() is a no-op;
// the stored value is neither compared nor overwritten. An i above Len()
// would leave a gap and fails with a *IndexTooHighError.
func (c *Column[T]) PushIfNeeded(i Index, v T) error {
	if c.closed.Load() {
		return columnError("push", c.name, ErrClosed)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.checkAppendLocked(i)
	switch {
	case err == nil:
		c.buf = append(c.buf, v)
		return nil
	case errors.Is(err, ErrIndexTooLow):
		return nil
	default:
		return err
	}
}

func (c *Column[T]) checkAppendLocked(i Index) error {
	n := c.diskLen.Load() + uint64(len(c.buf))
	switch {
	case uint64(i) < n:
		return ErrIndexTooLow
	case uint64(i) == n:
		return nil
	default:
		return &IndexTooHighError{Column: c.name, Index: i, Len: int(n)}
	}
}

// Get returns the value at i. It reports false if i >= Len().
func (c *Column[T]) Get(i Index) (T, bool, error) {
	var zero T
	if c.closed.Load() {
		return zero, false, columnError("get", c.name, ErrClosed)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok, err := c.valueLocked(uint64(i))
	if err != nil {
		return zero, false, columnError("get", c.name, err)
	}
	return v, ok, nil
}

// valueLocked reads record i. The caller holds c.mu.
func (c *Column[T]) valueLocked(i uint64) (T, bool, error) {
	var zero T
	d := c.diskLen.Load()
	if i >= d {
		j := i - d
		if j < uint64(len(c.buf)) {
			return c.buf[j], true, nil
		}
		return zero, false, nil
	}

	rec := c.recs.Get().(*[]byte)
	defer c.recs.Put(rec)
	if err := c.reader.readRecord(i, d, *rec); err != nil {
		return zero, false, err
	}
	return c.codec.Decode(*rec), true, nil
}

// Close releases the data file and page mappings. Buffered values that were
// not flushed are discarded.
func (c *Column[T]) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	err := errors.Join(c.reader.close(), c.file.Close())
	c.buf = nil
	if c.group != nil {
		c.group.release(c.name)
	}
	return columnError("close", c.name, err)
}

func (c *Column[T]) preallocate(n int64) error {
	return preallocate(c.file, n)
}

// releasePreallocated drops blocks reserved past the end of the data file.
func (c *Column[T]) releasePreallocated() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.file.Truncate(int64(c.diskLen.Load()) * int64(c.width))
}
