// Package pagecache keeps a bounded window of lazily mapped file pages.
//
// A page is a run of whole records whose byte size is a multiple of both the
// OS page size and the record width, so every page starts at a mappable
// offset and no record straddles two pages. Only pages lying entirely below
// the on-disk length are mapped; the partial tail page and pages that fell
// out of the window are served with positional reads.
//
// The window holds at most Window pages and follows the highest page index
// accessed so far. Each resident page lives in a slot that is filled exactly
// once, so concurrent readers that miss on the same page converge on a
// single mapping. Pages are reference counted: eviction drops the cache's
// reference and the mapping is unmapped when the last reader lets go.
//
// The caller is responsible for excluding readers while the file shrinks;
// Invalidate must run before any mapped byte could lie past the end of file.
package pagecache
