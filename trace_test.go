package tracestore

import (
	"testing"

	"github.com/kolkov/tracestore/internal/tracestore/arena"
	"github.com/kolkov/tracestore/pagealloc"
)

// TestNewCallTrace_RoundTripsFrames verifies a trace allocated from the
// arena returns exactly the frames it was built from, via a zero-copy view.
func TestNewCallTrace_RoundTripsFrames(t *testing.T) {
	a := arena.New(pagealloc.NewFake(4096), 4096)
	want := []CallFrame{frame(1), frame(2), frame(3)}

	trace, err := newCallTrace(a, want)
	if err != nil {
		t.Fatalf("newCallTrace() error = %v", err)
	}
	if trace.NumFrames() != int32(len(want)) {
		t.Fatalf("NumFrames() = %d, want %d", trace.NumFrames(), len(want))
	}
	got := trace.Frames()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Frames()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestNewCallTrace_ZeroFrames verifies an empty trace is representable and
// its Frames view is empty rather than panicking.
func TestNewCallTrace_ZeroFrames(t *testing.T) {
	a := arena.New(pagealloc.NewFake(4096), 4096)
	trace, err := newCallTrace(a, nil)
	if err != nil {
		t.Fatalf("newCallTrace() error = %v", err)
	}
	if len(trace.Frames()) != 0 {
		t.Errorf("Frames() = %v, want empty", trace.Frames())
	}
}

// TestNewCallTrace_PropagatesArenaFailure verifies an out-of-memory arena
// surfaces an error instead of a nil-pointer panic downstream.
func TestNewCallTrace_PropagatesArenaFailure(t *testing.T) {
	fake := pagealloc.NewFake(4096)
	fake.FailNext(1)
	a := arena.New(fake, 4096)

	if _, err := newCallTrace(a, []CallFrame{frame(1)}); err == nil {
		t.Fatal("newCallTrace() error = nil, want non-nil")
	}
}

// TestCallTrace_NilReceiverIsSafe verifies the nil-safe accessors used by
// Collect when a slot's value was never published.
func TestCallTrace_NilReceiverIsSafe(t *testing.T) {
	var trace *CallTrace
	if trace.NumFrames() != 0 {
		t.Errorf("NumFrames() on nil = %d, want 0", trace.NumFrames())
	}
	if trace.Frames() != nil {
		t.Errorf("Frames() on nil = %v, want nil", trace.Frames())
	}
}
