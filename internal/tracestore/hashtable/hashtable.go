// Package hashtable implements a single open-addressed hash table with
// lock-free insertion, sized to a power of two and probed with a triangular
// (quadratic) sequence. It is the building block a chain of growing tables
// is made from; it knows nothing about growth, chaining policy or hashing —
// those live in the tracestore package that owns a chain of these tables.
//
// A Table's key and value arrays are backed by a single page-allocated
// region rather than ordinary Go slices, so that Destroy hands the memory
// straight back to the operating system instead of waiting on the garbage
// collector. Values are pointers into an arena the caller owns; the table
// only ever reads and writes the pointer itself.
package hashtable

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/kolkov/tracestore/pagealloc"
)

// ClaimResult reports the outcome of a Claim call.
type ClaimResult int

const (
	// Overflow means the probe sequence exhausted the table without finding
	// an empty slot or the key; the caller must grow before retrying.
	Overflow ClaimResult = iota
	// Inserted means this call won the race to claim a fresh slot for hash.
	Inserted
	// Found means hash already occupies a slot claimed by another caller.
	Found
)

// Table is a fixed-capacity, open-addressed hash table keyed by a 64-bit
// hash. It never reallocates its own storage; growing means allocating a
// new Table and chaining it behind this one.
type Table[V any] struct {
	prev     *Table[V]
	capacity uint32
	size     atomic.Uint32
	region   []byte
	keys     []atomic.Uint64
	values   []atomic.Pointer[V]
}

// Allocate reserves a page-aligned region sized for capacity slots and
// returns a fresh, zeroed Table chained behind prev. capacity must be a
// power of two. It returns an error, never a panic, if the page allocator
// is out of memory.
func Allocate[V any](alloc pagealloc.Allocator, prev *Table[V], capacity uint32) (*Table[V], error) {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("hashtable: capacity %d is not a power of two", capacity)
	}

	var zeroKey atomic.Uint64
	var zeroVal atomic.Pointer[V]
	slotSize := unsafe.Sizeof(zeroKey) + unsafe.Sizeof(zeroVal)
	region, err := alloc.Alloc(uintptr(capacity) * slotSize)
	if err != nil {
		return nil, fmt.Errorf("hashtable: table allocation: %w", err)
	}

	t := &Table[V]{prev: prev, capacity: capacity, region: region}
	keysBase := unsafe.Pointer(&region[0])
	t.keys = unsafe.Slice((*atomic.Uint64)(keysBase), capacity)
	valuesBase := unsafe.Add(keysBase, uintptr(capacity)*unsafe.Sizeof(zeroKey))
	t.values = unsafe.Slice((*atomic.Pointer[V])(valuesBase), capacity)
	return t, nil
}

// Capacity returns the table's fixed slot count.
func (t *Table[V]) Capacity() uint32 { return t.capacity }

// Prev returns the table this one was grown from, or nil for the oldest
// table in a chain.
func (t *Table[V]) Prev() *Table[V] { return t.prev }

// Size returns the number of slots claimed so far.
func (t *Table[V]) Size() uint32 { return t.size.Load() }

// IncSize atomically increments the claimed-slot counter and returns the
// new value, letting the caller detect exactly when a growth threshold is
// crossed without a second atomic read.
func (t *Table[V]) IncSize() uint32 { return t.size.Add(1) }

// Find probes for hash and returns its published value, or nil if hash has
// never been claimed in this table.
func (t *Table[V]) Find(hash uint64) *V {
	capacity := uint64(t.capacity)
	slot := hash & (capacity - 1)
	var step uint64
	for {
		k := t.keys[slot].Load()
		if k == hash {
			return t.values[slot].Load()
		}
		if k == 0 {
			return nil
		}
		step++
		if step >= capacity {
			return nil
		}
		slot = (slot + step) & (capacity - 1)
	}
}

// Claim probes for hash and either finds it already present or wins a
// compare-and-swap race to reserve an empty slot for it. It never blocks:
// a loser of the CAS simply re-examines the slot it just contended for.
func (t *Table[V]) Claim(hash uint64) (slot uint32, result ClaimResult) {
	capacity := uint64(t.capacity)
	s := hash & (capacity - 1)
	var step uint64
	for {
		k := t.keys[s].Load()
		if k == hash {
			return uint32(s), Found
		}
		if k == 0 {
			if t.keys[s].CompareAndSwap(0, hash) {
				return uint32(s), Inserted
			}
			continue
		}
		step++
		if step >= capacity {
			return 0, Overflow
		}
		s = (s + step) & (capacity - 1)
	}
}

// PublishValue stores v for a slot already claimed by Claim. The store is
// unconditional, not compare-and-swap: two callers racing to publish for
// the same freshly-claimed slot may both write, and the last write wins.
// This mirrors async-profiler's own callTraceStorage.cpp, which accepts the
// same benign race in exchange for staying allocation- and lock-free on the
// insert path.
func (t *Table[V]) PublishValue(slot uint32, v *V) {
	t.values[slot].Store(v)
}

// ValueAt returns the value published for slot, or nil if none has been
// published yet.
func (t *Table[V]) ValueAt(slot uint32) *V { return t.values[slot].Load() }

// KeyAt returns the raw key stored at slot, or 0 if the slot is empty.
func (t *Table[V]) KeyAt(slot uint32) uint64 { return t.keys[slot].Load() }

// Clear zeroes every slot and resets the size counter. The caller must
// guarantee no concurrent Find/Claim/PublishValue call is in flight.
func (t *Table[V]) Clear() {
	for i := range t.keys {
		t.keys[i].Store(0)
		t.values[i].Store(nil)
	}
	t.size.Store(0)
}

// Destroy releases this table's backing region to alloc and returns the
// table it was grown from (possibly nil). The caller must not use t again.
func (t *Table[V]) Destroy(alloc pagealloc.Allocator) *Table[V] {
	prev := t.prev
	alloc.Free(t.region)
	return prev
}
