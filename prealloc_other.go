//go:build !linux

package ledgercol

import "github.com/hupe1980/ledgercol/internal/fs"

func preallocate(fs.File, int64) error { return nil }
