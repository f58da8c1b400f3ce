// Package tracestore implements a concurrent, append-mostly deduplicating
// store for call traces, the kind a sampling profiler's signal handler uses
// to turn a raw stack walk into a stable integer ID without blocking,
// allocating from the general-purpose heap, or taking a lock.
//
// Put is safe to call concurrently, including from many goroutines racing
// each other, and never grows its hot path beyond a hash computation, an
// atomic load, and a bounded compare-and-swap probe. Collect and Clear are
// the store's two library-level entry points for a separate, non-sampling
// consumer: Collect enumerates every (ID, trace) pair the store currently
// holds, and Clear releases every grown table and arena chunk back to the
// operating system, keeping only the original table, emptied. Both
// assume the caller has quiesced concurrent Put calls first; neither takes
// an internal lock to enforce that.
package tracestore
