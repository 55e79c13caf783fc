// Package backup copies the files of a column group to a blob store and back.
//
// Each column directory is stored under its name:
//
//	<column>/manifest.json          chunk table, checksums, side files
//	<column>/vec/<chunk>-<gen>      compressed chunk of the data file
//
// The data file is split into fixed-size chunks. A snapshot compares each
// chunk's CRC32C with the previous manifest and only uploads chunks that
// changed, so appending to a large column uploads little more than its tail.
// New chunks are named after the snapshot generation and never overwrite a
// chunk the previous manifest refers to. The manifest is written last and
// unreferenced chunks are deleted only after that, so a snapshot that fails
// half way leaves the previous backup restorable.
//
// Snapshots read column files directly and see only flushed records.
package backup
