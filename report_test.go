package tracestore

import (
	"errors"
	"sort"
	"testing"
	"time"
)

// fakeReporter records the last call it received, for assertions.
type fakeReporter struct {
	entries []TraceEntry
	meta    CollectionMeta
	err     error
}

func (f *fakeReporter) ReportTraces(entries []TraceEntry, meta CollectionMeta) error {
	f.entries = entries
	f.meta = meta
	return f.err
}

// TestTraceReporter_ReportConvertsSnapshotAndPatchesEntries verifies Report
// turns a Collect-shaped map into TraceEntry values covering every key and
// overwrites meta.Entries with the actual count, regardless of what the
// caller passed in.
func TestTraceReporter_ReportConvertsSnapshotAndPatchesEntries(t *testing.T) {
	trace1 := &CallTrace{}
	snapshot := map[uint32]*CallTrace{
		1: trace1,
		2: nil, // arena allocation failure case: a claimed slot with no trace
	}

	fake := &fakeReporter{}
	r := TraceReporter{Reporter: fake}
	when := time.Now()

	err := r.Report(snapshot, CollectionMeta{Timestamp: when, TableDepth: 3, Entries: 999})
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	if len(fake.entries) != 2 {
		t.Fatalf("ReportTraces() got %d entries, want 2", len(fake.entries))
	}
	sort.Slice(fake.entries, func(i, j int) bool { return fake.entries[i].ID < fake.entries[j].ID })
	if fake.entries[0].ID != 1 || fake.entries[0].Trace != trace1 {
		t.Errorf("entries[0] = %+v, want {ID: 1, Trace: trace1}", fake.entries[0])
	}
	if fake.entries[1].ID != 2 || fake.entries[1].Trace != nil {
		t.Errorf("entries[1] = %+v, want {ID: 2, Trace: nil}", fake.entries[1])
	}

	if fake.meta.Entries != 2 {
		t.Errorf("meta.Entries = %d, want patched to 2 (was 999 on the way in)", fake.meta.Entries)
	}
	if fake.meta.TableDepth != 3 {
		t.Errorf("meta.TableDepth = %d, want 3 (passed through unchanged)", fake.meta.TableDepth)
	}
	if !fake.meta.Timestamp.Equal(when) {
		t.Errorf("meta.Timestamp = %v, want %v (passed through unchanged)", fake.meta.Timestamp, when)
	}
}

// TestTraceReporter_ReportEmptySnapshot verifies an empty Collect result
// still reaches the wrapped Reporter with a zero-length, non-nil slice.
func TestTraceReporter_ReportEmptySnapshot(t *testing.T) {
	fake := &fakeReporter{}
	r := TraceReporter{Reporter: fake}

	if err := r.Report(map[uint32]*CallTrace{}, CollectionMeta{}); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if len(fake.entries) != 0 {
		t.Errorf("entries = %v, want empty", fake.entries)
	}
	if fake.meta.Entries != 0 {
		t.Errorf("meta.Entries = %d, want 0", fake.meta.Entries)
	}
}

// TestTraceReporter_ReportPropagatesReporterError verifies a failing
// Reporter's error surfaces from Report unwrapped.
func TestTraceReporter_ReportPropagatesReporterError(t *testing.T) {
	wantErr := errors.New("sink unavailable")
	fake := &fakeReporter{err: wantErr}
	r := TraceReporter{Reporter: fake}

	if err := r.Report(map[uint32]*CallTrace{1: nil}, CollectionMeta{}); !errors.Is(err, wantErr) {
		t.Errorf("Report() error = %v, want %v", err, wantErr)
	}
}
