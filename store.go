package tracestore

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kolkov/tracestore/internal/tracestore/arena"
	"github.com/kolkov/tracestore/internal/tracestore/hashtable"
	"github.com/kolkov/tracestore/pagealloc"
)

// Store is a concurrent, append-mostly deduplicating store for call traces.
// Put assigns a stable, non-zero ID to each distinct trace; Collect
// enumerates every (ID, trace) pair the store currently holds; Clear
// releases every grown table and arena chunk and empties the original
// table. Put is safe under
// arbitrary concurrent calls, including calls that race a Collect started
// in error — Collect and Clear are the two operations that require the
// caller to have quiesced Put first.
type Store struct {
	current         atomic.Pointer[hashtable.Table[CallTrace]]
	arena           *arena.Arena
	alloc           pagealloc.Allocator
	initialCapacity uint32
	loadFactorNum   uint32
	loadFactorDen   uint32
	observer        StoreObserver
	lastErr         atomic.Pointer[error]
	// hashFunc computes a trace's key. It defaults to hashFrames (a real
	// MurmurHash64A port); tests in this package override it to construct
	// deliberate hash collisions between distinct traces.
	hashFunc func([]CallFrame) uint64
}

// New allocates a Store's first table and returns it ready for use.
// Construction is the only operation that can fail: once New succeeds,
// every subsequent Put, Collect and Clear call is infallible from the
// caller's point of view (internal allocation failures are absorbed as
// documented on ErrTableAllocation and ErrArenaAllocation).
func New(cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	if !isPowerOfTwo(cfg.InitialCapacity) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, cfg.InitialCapacity)
	}

	s := &Store{
		arena:           arena.New(cfg.PageAllocator, cfg.ChunkSize),
		alloc:           cfg.PageAllocator,
		initialCapacity: cfg.InitialCapacity,
		loadFactorNum:   cfg.LoadFactorNum,
		loadFactorDen:   cfg.LoadFactorDen,
		observer:        cfg.Observer,
		hashFunc:        hashFrames,
	}

	root, err := hashtable.Allocate[CallTrace](s.alloc, nil, cfg.InitialCapacity)
	if err != nil {
		return nil, fmt.Errorf("tracestore: %w: %v", ErrTableAllocation, err)
	}
	s.current.Store(root)
	return s, nil
}

// Put assigns frames a stable, non-zero ID, allocating a new entry only if
// this exact sequence of frames has never been seen before. It returns 0 if
// the table chain's current table is completely full and cannot be grown
// (see the Overflow case of hashtable.Claim); callers upstream of a real
// signal handler are expected to drop the sample in that case.
//
// Put never blocks on a lock and never touches the general-purpose Go heap
// on its fast path (the hit case): everything it allocates comes from a
// page-allocated arena or hash-table region.
func (s *Store) Put(frames []CallFrame) uint32 {
	startedAt := time.Now()
	id := s.put(frames)
	s.observer.OnPut(time.Since(startedAt), id)
	return id
}

func (s *Store) put(frames []CallFrame) uint32 {
	hash := s.hashFunc(frames)
	table := s.current.Load()

	slot, result := table.Claim(hash)
	switch result {
	case hashtable.Overflow:
		return 0
	case hashtable.Found:
		return s.idFor(table.Capacity(), slot)
	}

	// result == hashtable.Inserted: this call won the race to claim hash.
	if table.IncSize() == s.growthThreshold(table.Capacity()) {
		s.grow(table)
	}

	trace := s.resolveTrace(table, hash, frames)
	table.PublishValue(slot, trace)

	return s.idFor(table.Capacity(), slot)
}

// resolveTrace reuses the predecessor table's CallTrace for hash if one
// already exists there, so a hash that survives across a growth event does
// not duplicate its backing memory. Otherwise it allocates a fresh trace
// from the arena; a nil return means the arena is out of memory, which
// leaves the newly claimed slot's value nil rather than failing the call.
func (s *Store) resolveTrace(table *hashtable.Table[CallTrace], hash uint64, frames []CallFrame) *CallTrace {
	if prev := table.Prev(); prev != nil {
		if trace := prev.Find(hash); trace != nil {
			return trace
		}
	}
	trace, err := newCallTrace(s.arena, frames)
	if err != nil {
		s.recordSoftFailure(fmt.Errorf("tracestore: %w: %v", ErrArenaAllocation, err))
		return nil
	}
	return trace
}

// grow allocates a table twice the size of table and installs it as
// current. Losing a race to install it (another Put already grew the
// chain) frees the redundant table instead of leaking its pages; a failed
// allocation is a soft failure the store continues past on the unchanged
// current table.
func (s *Store) grow(table *hashtable.Table[CallTrace]) {
	next, err := hashtable.Allocate[CallTrace](s.alloc, table, table.Capacity()*2)
	if err != nil {
		s.recordSoftFailure(fmt.Errorf("tracestore: %w: %v", ErrTableAllocation, err))
		return
	}
	if !s.current.CompareAndSwap(table, next) {
		next.Destroy(s.alloc)
		return
	}
	s.observer.OnGrow(next.Capacity())
}

// Collect enumerates every (ID, trace) pair currently held by the store
// into out, walking the table chain from newest to oldest. It is only
// meaningful when the caller has quiesced concurrent Put calls: with Put
// running concurrently, Collect may observe a torn snapshot (a claimed slot
// whose value has not yet been published).
func (s *Store) Collect(out map[uint32]*CallTrace) {
	startedAt := time.Now()
	for table := s.current.Load(); table != nil; table = table.Prev() {
		capacity := table.Capacity()
		for slot := uint32(0); slot < capacity; slot++ {
			if table.KeyAt(slot) == 0 {
				continue
			}
			out[s.idFor(capacity, slot)] = table.ValueAt(slot)
		}
	}
	s.observer.OnCollect(time.Since(startedAt), len(out))
}

// Clear destroys every table in the chain except the original, zeroes that
// original table's contents, and releases every arena chunk. After Clear,
// the store behaves as if freshly constructed: previously issued IDs are no
// longer present in a subsequent Collect, and because IDs derive from slot
// positions in the original table, an old ID may be issued again to a
// different trace and a trace put again may receive a different ID.
// Precondition: no concurrent Put or Collect call is in flight.
func (s *Store) Clear() {
	table := s.current.Load()
	for table.Prev() != nil {
		table = table.Destroy(s.alloc)
	}
	table.Clear()
	s.current.Store(table)
	s.arena.Clear()
}

// Close releases every resource the store holds, including the original
// table. The store must not be used after Close returns.
func (s *Store) Close() {
	table := s.current.Load()
	for table != nil {
		table = table.Destroy(s.alloc)
	}
	s.arena.Clear()
	s.current.Store(nil)
}

// LastError returns the most recent soft failure Put absorbed instead of
// propagating (ErrTableAllocation or ErrArenaAllocation, wrapped with
// errors.Is-checkable context), or nil if the store has never hit one.
// Safe for concurrent calls, including calls racing a concurrent Put.
func (s *Store) LastError() error {
	if p := s.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// recordSoftFailure stashes err for LastError and notifies the observer.
// It never blocks and never affects the caller's Put return value.
func (s *Store) recordSoftFailure(err error) {
	s.lastErr.Store(&err)
	s.observer.OnSoftFailure(err)
}

// Depth reports how many tables are currently chained, for diagnostics.
func (s *Store) Depth() int {
	depth := 0
	for table := s.current.Load(); table != nil; table = table.Prev() {
		depth++
	}
	return depth
}

// idFor implements ID = capacity(table) - (initialCapacity - 1) + slot,
// which for successive tables of double capacity yields disjoint,
// never-zero ranges.
func (s *Store) idFor(capacity, slot uint32) uint32 {
	return capacity - (s.initialCapacity - 1) + slot
}

// growthThreshold reports the claimed-slot count at which capacity should
// trigger a grow, per this store's configured load factor.
func (s *Store) growthThreshold(capacity uint32) uint32 {
	return capacity * s.loadFactorNum / s.loadFactorDen
}
