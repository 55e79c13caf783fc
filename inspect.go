package ledgercol

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// ColumnInfo describes a column directory without opening it.
type ColumnInfo struct {
	Name string
	Dir  string

	Version    Version
	HasVersion bool

	// Computed is the combined version written by derived columns.
	Computed    Version
	HasComputed bool

	// Bytes is the size of the data file, 0 if it does not exist.
	Bytes int64

	// Problems lists malformed side files found while inspecting.
	Problems []string
}

// Records returns the number of whole records for the given width.
func (ci *ColumnInfo) Records(width int) int64 {
	if width <= 0 {
		return 0
	}
	return ci.Bytes / int64(width)
}

// TornTail returns the number of trailing bytes that do not form a record.
// Import discards them.
func (ci *ColumnInfo) TornTail(width int) int64 {
	if width <= 0 {
		return 0
	}
	return ci.Bytes % int64(width)
}

// Inspect reads the side files and data file size of the column directory
// dir. Malformed version files are reported in Problems rather than failing.
func Inspect(dir string, opts ...Option) (*ColumnInfo, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	info, err := o.fs.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("ledgercol: inspect %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ledgercol: inspect %s: not a directory", dir)
	}

	ci := &ColumnInfo{Name: filepath.Base(dir), Dir: dir}

	read := func(name string) (Version, bool) {
		v, ok, err := readVersionFile(o.fs, filepath.Join(dir, name))
		if err != nil {
			ci.Problems = append(ci.Problems, err.Error())
		}
		return v, ok && err == nil
	}
	ci.Version, ci.HasVersion = read(versionFileName)
	ci.Computed, ci.HasComputed = read("computed_version")

	st, err := o.fs.Stat(filepath.Join(dir, dataFileName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("ledgercol: inspect %s: %w", dir, err)
	default:
		ci.Bytes = st.Size()
	}
	return ci, nil
}
