//go:build linux

package ledgercol

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/hupe1980/ledgercol/internal/fs"
)

// preallocate reserves n bytes of blocks for f without changing its size.
func preallocate(f fs.File, n int64) error {
	if n <= 0 {
		return nil
	}
	err := unix.Fallocate(int(f.Fd()), unix.FALLOC_FL_KEEP_SIZE, 0, n)
	if errors.Is(err, unix.EOPNOTSUPP) || errors.Is(err, unix.ENOSYS) {
		return nil
	}
	return err
}
