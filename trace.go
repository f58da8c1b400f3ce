package tracestore

import (
	"unsafe"

	"github.com/kolkov/tracestore/internal/tracestore/arena"
)

// FrameSize is the fixed width, in bytes, of a single CallFrame.
const FrameSize = 8

// CallFrame is an opaque, fixed-size stack frame record. TraceStore never
// interprets a frame's contents: it only hashes and copies its raw bytes,
// the way async-profiler's callTraceStorage.cpp treats ASGCT_CallFrame as
// an undifferentiated block of memory. Callers are free to pack whatever
// they like into the eight bytes — a program counter, a symbol ID, a method
// pointer plus BCI — as long as it is a stable little-endian encoding.
type CallFrame [FrameSize]byte

// CallTrace is a variable-length, immutable record owned by a ChunkArena.
// Its header (NumFrames) is followed immediately in memory by NumFrames
// CallFrame values, so Frames is a zero-copy view rather than a separate
// allocation.
type CallTrace struct {
	numFrames int32
	_         int32 // pads Frames to an 8-byte boundary
}

// NumFrames reports how many frames the trace holds.
func (t *CallTrace) NumFrames() int32 {
	if t == nil {
		return 0
	}
	return t.numFrames
}

// Frames returns the trace's frames as a zero-copy view into arena memory.
// The returned slice is only valid for as long as the store that produced
// it has not been Cleared or Closed.
func (t *CallTrace) Frames() []CallFrame {
	if t == nil || t.numFrames == 0 {
		return nil
	}
	base := unsafe.Add(unsafe.Pointer(t), unsafe.Sizeof(CallTrace{}))
	return unsafe.Slice((*CallFrame)(base), t.numFrames)
}

// traceSize returns the number of bytes a CallTrace with n frames occupies,
// header included.
func traceSize(n int) uintptr {
	return unsafe.Sizeof(CallTrace{}) + uintptr(n)*unsafe.Sizeof(CallFrame{})
}

// newCallTrace allocates a CallTrace from a and copies frames into it
// element by element. The element-wise loop, rather than a single bulk
// copy, mirrors callTraceStorage.cpp's explicit avoidance of a library
// memmove call on this path.
func newCallTrace(a *arena.Arena, frames []CallFrame) (*CallTrace, error) {
	ptr, err := a.Alloc(traceSize(len(frames)))
	if err != nil {
		return nil, err
	}
	trace := (*CallTrace)(ptr)
	trace.numFrames = int32(len(frames))
	dst := trace.Frames()
	for i := range frames {
		dst[i] = frames[i]
	}
	return trace, nil
}
