// Package arena implements a lock-free bump allocator over fixed-size chunks
// of page-allocated memory, the way async-profiler's CallTraceStorage keeps
// call-trace records out of the general-purpose allocator's way on its hot
// insert path.
//
// Allocation is a single atomic fetch-add against the current chunk's
// offset; when a chunk fills, one goroutine wins a compare-and-swap race to
// install a fresh chunk and every loser simply retries against whatever
// chunk won. Clear releases every chunk back to the page allocator; it is
// only safe to call once no goroutine can be concurrently allocating.
package arena

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/kolkov/tracestore/pagealloc"
)

// wordAlign is the alignment every allocation is rounded up to, matching the
// natural alignment call-trace records need for their pointer-sized fields.
const wordAlign = 8

type chunk struct {
	buf    []byte
	offset atomic.Uintptr
	prev   *chunk
}

// Arena is a growable chain of chunks, each obtained from a pagealloc.Allocator.
type Arena struct {
	alloc     pagealloc.Allocator
	chunkSize uintptr
	current   atomic.Pointer[chunk]
}

// New returns an empty Arena. No chunk is allocated until the first Alloc
// call, so constructing an Arena never fails.
func New(alloc pagealloc.Allocator, chunkSize uintptr) *Arena {
	return &Arena{alloc: alloc, chunkSize: alignUp(chunkSize, wordAlign)}
}

// Alloc reserves size bytes of zero-filled memory and returns a pointer to
// the start of the reservation. It never blocks on a lock; the only
// operations on the fast path are an atomic load and an atomic add. It
// returns an error only when the underlying page allocator is out of memory.
func (a *Arena) Alloc(size uintptr) (unsafe.Pointer, error) {
	size = alignUp(size, wordAlign)
	for {
		c := a.current.Load()
		if c != nil {
			off := c.offset.Add(size) - size
			if off+size <= uintptr(len(c.buf)) {
				return unsafe.Pointer(&c.buf[off]), nil
			}
		}
		if err := a.growChunk(c, size); err != nil {
			return nil, err
		}
	}
}

// growChunk installs a fresh chunk sized to hold at least need bytes,
// chaining it behind old so Clear can walk every chunk ever allocated. If
// another goroutine has already installed a different current chunk by the
// time this one is ready to publish, the redundant chunk is freed rather
// than leaked.
func (a *Arena) growChunk(old *chunk, need uintptr) error {
	size := a.chunkSize
	if need > size {
		size = alignUp(need, wordAlign)
	}
	buf, err := a.alloc.Alloc(size)
	if err != nil {
		return fmt.Errorf("arena: chunk allocation: %w", err)
	}
	next := &chunk{buf: buf, prev: old}
	if !a.current.CompareAndSwap(old, next) {
		a.alloc.Free(buf)
	}
	return nil
}

// Clear releases every chunk back to the page allocator and resets the
// arena to its initial, chunk-less state. The caller must guarantee no
// concurrent Alloc call is in flight.
func (a *Arena) Clear() {
	c := a.current.Load()
	a.current.Store(nil)
	for c != nil {
		a.alloc.Free(c.buf)
		c = c.prev
	}
}

func alignUp(size, alignment uintptr) uintptr {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) &^ (alignment - 1)
}
