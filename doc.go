// Package ledgercol provides append-only columnar storage for indexers that
// derive many parallel vectors from a replayable ledger.
//
// Every column is a flat file of fixed-width records: record i lives at byte
// offset i*width, with no header and no padding. A version file next to it
// tags the format and the logic that produced the data; a mismatch is
// refused on import, and ForcedImport turns it into a wipe-and-rebuild.
//
// # Quick Start
//
//	g, _ := ledgercol.OpenGroup("./data")
//	heights, _ := ledgercol.ForcedImport(g, "height", 1, codec.Uint32)
//
//	for i, h := range blocks {
//	    _ = heights.PushIfNeeded(ledgercol.Index(i), h) // idempotent on resume
//	}
//	_ = heights.Flush(ctx)
//
//	v, ok, _ := heights.Get(500)
//
// # Writes
//
// Push and PushIfNeeded append to an in-memory buffer; Flush writes the
// buffer with a single positional write. PushIfNeeded ignores indexes that
// are already present and rejects gaps, so a restarted pipeline can replay
// already-indexed input safely. TruncateIfNeeded rolls a column back,
// returning the value at the cut.
//
// # Reads
//
// Three modes share the on-disk format:
//
//   - ModeCached: a bounded sliding window of mapped pages, safe for many
//     concurrent readers
//   - ModeSequential: one file handle with a tracked cursor and read-ahead
//   - ModeStateless: a fresh file handle per read
//
// # Derived Columns
//
// Package computed builds columns whose values are pure functions of other
// columns and only processes the source suffix added since the last run.
//
// # Shutdown
//
// Pass an exit.Guard with WithExitGuard so a shutdown never interrupts a
// flush or truncate halfway.
//
// # Operations
//
// Package backup copies flushed columns to a blobstore.BlobStore in
// checksummed chunks; metrics/prometheus exports MetricsCollector events;
// cmd/ledgercol wraps Inspect, Compact, backup and restore in a CLI.
package ledgercol
