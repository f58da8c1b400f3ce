package tracestore

import "time"

// Reporter is the interface a periodic, non-sampling consumer implements to
// receive a batch of deduplicated call traces once a Collect quiescence
// window completes. It mirrors oomprof's own Reporter.SampleEvents shape:
// one call per collection, carrying every entry plus metadata about the
// collection itself, so a slow reporter never sees a partial or torn view.
type Reporter interface {
	// ReportTraces delivers every (ID, trace) pair from one Collect call.
	ReportTraces(entries []TraceEntry, meta CollectionMeta) error
}

// TraceEntry pairs a stable trace ID with the trace it identifies. Trace is
// nil when the ID was claimed but the arena could not back it (see
// ErrArenaAllocation).
type TraceEntry struct {
	ID    uint32
	Trace *CallTrace
}

// CollectionMeta describes the circumstances of one Collect call: when it
// ran, how deep the table chain had grown, and how many entries it found.
type CollectionMeta struct {
	Timestamp  time.Time
	TableDepth int
	Entries    int
}

// TraceReporter adapts a Reporter to run against a plain
// map[uint32]*CallTrace, the shape Collect fills in. It exists so callers
// that already have a Reporter implementation do not need to know about
// TraceEntry conversion.
type TraceReporter struct {
	Reporter Reporter
}

// Report converts snapshot into TraceEntry values (in unspecified order,
// same as any Go map range) and forwards them to the wrapped Reporter.
func (r TraceReporter) Report(snapshot map[uint32]*CallTrace, meta CollectionMeta) error {
	entries := make([]TraceEntry, 0, len(snapshot))
	for id, trace := range snapshot {
		entries = append(entries, TraceEntry{ID: id, Trace: trace})
	}
	meta.Entries = len(entries)
	return r.Reporter.ReportTraces(entries, meta)
}
