// Package resource implements the Controller for process-wide limits shared
// by every column of a group.
//
// The Controller manages three resource types:
//
//   - Mapped memory: bytes held by page-cache mappings (non-blocking, fail-fast)
//   - Background workers: concurrent flushes and backup uploads
//   - IO: rate limit for flush writes and backup reads
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                           │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Mapped memory  │  Background     │  IO Rate Limiter        │
//	│  (fail-fast)    │  Workers (sem)  │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  TryAcquire-    │  AcquireBack-   │  AcquireIO              │
//	│  Memory         │  ground         │  RateLimitedWriter      │
//	│  ReleaseMemory  │  Workers        │  RateLimitedReader      │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Mapped Memory
//
// The page cache charges every mapping it creates. When the ceiling is
// exhausted the caller falls back to a direct read instead of waiting:
//
//	if !rc.TryAcquireMemory(pageBytes) {
//	    return readDirect(...)
//	}
//	defer rc.ReleaseMemory(pageBytes)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully: they become no-ops.
package resource
