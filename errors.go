package tracestore

import "errors"

// The failure kinds a TraceStore can hit. ErrTableAllocation and
// ErrArenaAllocation are absorbed as soft failures rather than surfaced from
// Put: a signal-handler-safe hot path cannot propagate an error to a caller
// that has no way to act on one. They are recorded for Store.LastError and
// StoreObserver.OnSoftFailure, and New returns ErrTableAllocation or
// ErrInvalidCapacity when construction fails. They exist as sentinel values
// so tests and diagnostic tooling can assert on them with errors.Is.
var (
	// ErrTableAllocation means the page allocator could not satisfy a
	// request to grow the table chain. Put continues to insert into the
	// current (unchanged) table.
	ErrTableAllocation = errors.New("tracestore: table allocation failed")
	// ErrArenaAllocation means the page allocator could not satisfy a
	// request for a fresh arena chunk. The claimed slot's value stays nil.
	ErrArenaAllocation = errors.New("tracestore: arena allocation failed")
	// ErrInvalidCapacity is returned by New when the configured initial
	// capacity is not a power of two.
	ErrInvalidCapacity = errors.New("tracestore: initial capacity must be a power of two")
)
