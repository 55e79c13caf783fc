// Package conv provides checked integer conversions.
//
// Record indexes are uint64 on disk and in the public API, while slice
// positions and file offsets are int and int64. Every crossing between them
// goes through this package so an out-of-range value becomes an error instead
// of a silently wrapped offset.
//
// Conversions that are provably safe by construction (loop counters bounded
// by a slice length) use direct casts instead.
package conv
