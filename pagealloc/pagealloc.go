// Package pagealloc allocates and releases page-aligned, zero-filled memory
// regions backed by the operating system rather than the Go heap.
//
// The hash-table chain and chunk arena in internal/tracestore need memory
// whose lifetime they control explicitly: a table or a chunk is released the
// moment it is no longer reachable, not whenever the garbage collector next
// runs. Routing that memory through anonymous mmap keeps the store's
// footprint bounded by what it is actually holding, and gives allocation
// failure an observable, non-fatal return value instead of a runtime panic.
package pagealloc

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrOutOfMemory is returned when the platform declines to hand back the
// requested number of pages.
var ErrOutOfMemory = errors.New("pagealloc: out of memory")

// Allocator is the collaborator interface the hash-table chain and chunk
// arena allocate pages through. The production implementation wraps mmap and
// munmap; tests substitute a fault-injecting fake to exercise the store's
// soft-failure paths without exhausting real memory.
type Allocator interface {
	// Alloc reserves a zero-filled region of at least size bytes, rounded up
	// to a whole number of pages, and returns it as a byte slice. It returns
	// ErrOutOfMemory (wrapped) instead of panicking when the platform cannot
	// satisfy the request.
	Alloc(size uintptr) ([]byte, error)
	// Free releases a region previously returned by Alloc. Freeing a region
	// that was not obtained from this Allocator, or freeing it twice, is a
	// caller error.
	Free(region []byte)
	// PageSize reports the platform's page size in bytes.
	PageSize() uintptr
}

type osAllocator struct {
	pageSize uintptr
	once     sync.Once
}

// New returns the platform Allocator: anonymous mmap on Unix targets, a
// zeroed heap slab (never returned to the OS) everywhere else.
func New() Allocator {
	return &osAllocator{}
}

func (a *osAllocator) PageSize() uintptr {
	a.once.Do(func() {
		a.pageSize = uintptr(os.Getpagesize())
	})
	return a.pageSize
}

func (a *osAllocator) Alloc(size uintptr) ([]byte, error) {
	size = alignUp(size, a.PageSize())
	region, err := safeAlloc(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	return region, nil
}

func (a *osAllocator) Free(region []byte) {
	safeFree(region)
}

func alignUp(size, alignment uintptr) uintptr {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) &^ (alignment - 1)
}
