package hash

import (
	"fmt"
	"hash"
	"hash/crc32"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a new CRC32-Castagnoli hash.Hash32.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}

// ChecksumError reports a chunk whose contents do not match the recorded sum.
type ChecksumError struct {
	Name     string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %08x, got %08x", e.Name, e.Expected, e.Actual)
}

// Verify returns a *ChecksumError if data does not hash to expected.
func Verify(name string, data []byte, expected uint32) error {
	if actual := CRC32C(data); actual != expected {
		return &ChecksumError{Name: name, Expected: expected, Actual: actual}
	}
	return nil
}
