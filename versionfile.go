package ledgercol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	ifs "github.com/hupe1980/ledgercol/internal/fs"
)

const (
	versionFileName = "version"
	dataFileName    = "vec"
	versionFileSize = 8
)

var errMalformedVersion = errors.New("malformed version file")

func readVersionFile(fsys ifs.FileSystem, path string) (Version, bool, error) {
	data, err := ifs.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(data) != versionFileSize {
		return 0, true, fmt.Errorf("%w: %s has %d bytes", errMalformedVersion, path, len(data))
	}
	return Version(binary.LittleEndian.Uint64(data)), true, nil
}

func writeVersionFile(fsys ifs.FileSystem, path string, v Version) error {
	var buf [versionFileSize]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return ifs.WriteFile(fsys, path, buf[:], 0o644)
}

// checkVersion validates the version file at path against expected, creating
// it when absent.
func checkVersion(fsys ifs.FileSystem, path string, expected Version) error {
	found, ok, err := readVersionFile(fsys, path)
	switch {
	case errors.Is(err, errMalformedVersion):
		return &VersionMismatchError{Path: path, Found: 0, Expected: expected}
	case err != nil:
		return err
	case !ok:
		return writeVersionFile(fsys, path, expected)
	case found == expected:
		return nil
	case found == expected.swapped():
		return fmt.Errorf("%w: %s", ErrWrongEndian, path)
	default:
		return &VersionMismatchError{Path: path, Found: found, Expected: expected}
	}
}

// ReadVersionFile reads a version side-file named name from the column's
// directory. It reports false if the file does not exist. A malformed file
// is reported as a *VersionMismatchError with Found == 0.
func (c *Column[T]) ReadVersionFile(name string) (Version, bool, error) {
	path := filepath.Join(c.dir, name)
	v, ok, err := readVersionFile(c.opts.fs, path)
	if errors.Is(err, errMalformedVersion) {
		return 0, true, &VersionMismatchError{Path: path}
	}
	return v, ok, err
}

// WriteVersionFile atomically replaces the version side-file named name.
func (c *Column[T]) WriteVersionFile(name string, v Version) error {
	return writeVersionFile(c.opts.fs, filepath.Join(c.dir, name), v)
}
