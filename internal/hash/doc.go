// Package hash provides CRC32-Castagnoli checksums for backup chunks.
//
// The Castagnoli polynomial is hardware accelerated on x86 (SSE4.2) and
// ARM (CRC extension) through hash/crc32.
//
// For one-shot checksums:
//
//	sum := hash.CRC32C(chunk)
//
// For streaming checksums:
//
//	h := hash.NewCRC32C()
//	h.Write(part1)
//	h.Write(part2)
//	sum := h.Sum32()
package hash
