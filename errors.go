package ledgercol

import (
	"errors"
	"fmt"

	"github.com/hupe1980/ledgercol/exit"
	"github.com/hupe1980/ledgercol/internal/conv"
	"github.com/hupe1980/ledgercol/internal/mmap"
	"github.com/hupe1980/ledgercol/internal/pagecache"
)

var (
	// ErrWrongEndian is returned when a version file holds the expected
	// version in the opposite byte order.
	ErrWrongEndian = errors.New("version file has wrong endianness")

	// ErrVersionMismatch is matched by every *VersionMismatchError.
	ErrVersionMismatch = errors.New("version mismatch")

	// ErrIndexTooHigh is matched by every *IndexTooHighError.
	ErrIndexTooHigh = errors.New("index too high")

	// ErrIndexTooLow signals an index already present. It never escapes
	// PushIfNeeded, which treats it as a no-op.
	ErrIndexTooLow = errors.New("index too low")

	// ErrPageWindowTooSmall is returned when the page window ceiling cannot
	// hold a single page.
	ErrPageWindowTooSmall = errors.New("page window too small")

	// ErrKeyConversionFailed is returned when a value cannot be used as an index.
	ErrKeyConversionFailed = errors.New("key conversion failed")

	// ErrInvalidRange is returned for ranges with from >= to.
	ErrInvalidRange = errors.New("invalid range")

	// ErrUnflushedState is returned by bulk reads of stateless columns that
	// still hold buffered values.
	ErrUnflushedState = errors.New("unflushed state unsupported")

	// ErrClosed is returned when using a closed column or group.
	ErrClosed = errors.New("closed")

	// ErrAlreadyOpen is returned when importing a column that is already open
	// in the same group.
	ErrAlreadyOpen = errors.New("column already open")

	// ErrExiting is returned when a flush or truncate is refused because
	// shutdown was requested.
	ErrExiting = errors.New("exiting")
)

// VersionMismatchError reports a stored version that differs from the expected one.
type VersionMismatchError struct {
	Path     string
	Found    Version
	Expected Version
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("version mismatch in %s: found %d, expected %d", e.Path, e.Found, e.Expected)
}

// Is reports whether target is ErrVersionMismatch.
func (e *VersionMismatchError) Is(target error) bool { return target == ErrVersionMismatch }

// IndexTooHighError reports an append that would leave a gap.
type IndexTooHighError struct {
	Column string
	Index  Index
	Len    int
}

func (e *IndexTooHighError) Error() string {
	return fmt.Sprintf("index too high in %s: %d, length %d", e.Column, e.Index, e.Len)
}

// Is reports whether target is ErrIndexTooHigh.
func (e *IndexTooHighError) Is(target error) bool { return target == ErrIndexTooHigh }

// ColumnError records a failed operation on a column and its cause.
//
// The underlying error can be accessed via errors.Unwrap.
type ColumnError struct {
	Op     string
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return e.Op + " " + e.Column + ": " + e.Err.Error()
}

func (e *ColumnError) Unwrap() error { return e.Err }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pagecache.ErrWindowTooSmall) {
		return fmt.Errorf("%w: %w", ErrPageWindowTooSmall, err)
	}
	if errors.Is(err, pagecache.ErrClosed) || errors.Is(err, mmap.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	if errors.Is(err, exit.ErrExiting) {
		return fmt.Errorf("%w: %w", ErrExiting, err)
	}
	if errors.Is(err, conv.ErrOverflow) {
		return fmt.Errorf("%w: %w", ErrIndexTooHigh, err)
	}

	return err
}

func columnError(op, column string, err error) error {
	if err == nil {
		return nil
	}
	return &ColumnError{Op: op, Column: column, Err: translateError(err)}
}
