package ledgercol

import "math/bits"

// Index is the position of a record in a column.
type Index uint64

// Version tags the on-disk format and the logic that produced a column.
// Changing it makes existing data unreadable: the column is
// rebuilt from scratch on the next forced import.
type Version uint64

// Add composes two versions, e.g. a parent version with a local one.
func (v Version) Add(other Version) Version {
	return v + other
}

// swapped returns v with its bytes reversed, the value a file written with
// the opposite byte order would hold.
func (v Version) swapped() Version {
	return Version(bits.ReverseBytes64(uint64(v)))
}

// Mode selects how a column reads its on-disk records.
type Mode int

const (
	// ModeCached reads through a bounded window of mapped pages. Safe for
	// many concurrent readers. This is the default.
	ModeCached Mode = iota
	// ModeSequential reads through one file handle with a tracked cursor.
	// Cheap for forward scans; callers must not read from several
	// goroutines at once.
	ModeSequential
	// ModeStateless opens a fresh file handle for every read. Bulk reads
	// (Iterate, CollectRange) refuse to run while unflushed values exist.
	ModeStateless
)

func (m Mode) String() string {
	switch m {
	case ModeCached:
		return "cached"
	case ModeSequential:
		return "sequential"
	case ModeStateless:
		return "stateless"
	default:
		return "unknown"
	}
}

// ParseMode parses the String form of a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "cached", "":
		return ModeCached, true
	case "sequential":
		return ModeSequential, true
	case "stateless":
		return ModeStateless, true
	default:
		return ModeCached, false
	}
}
