// Package computed builds derived columns: columns whose value at index i is
// a pure function of one or more source columns.
//
// A derived column remembers how far it got. Every builder run looks at the
// current length of the output and of each source, processes only the new
// suffix, and flushes. If a source shrank (a rollback), the output is cut to
// match before extending again.
//
// The version of a derived column is its local version plus the versions of
// all its sources, persisted in a "computed_version" file next to the data.
// When that sum changes, the column drops all its records and rebuilds from
// index 0 on the next run. This is cheap to reason about but throws away work:
// only use it for data that can be recomputed.
package computed
