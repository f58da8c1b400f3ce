package tracestore

import "github.com/kolkov/tracestore/pagealloc"

// InitialCapacity is the slot count of the first table in a chain, matching
// async-profiler's CallTraceStorage default. It is also the unit the ID
// encoding's per-table range base is computed against, so overriding it via
// Config changes the ID ranges a store hands out, not just its footprint.
const InitialCapacity = 1 << 16 // 65536

// ChunkSize is the size, in bytes, of one arena chunk.
const ChunkSize = 8 << 20 // 8 MiB

// Load factor: a table grows once its claimed-slot count reaches
// capacity*LoadFactorNum/LoadFactorDen. These are the defaults Config falls
// back to when its own LoadFactorNum/LoadFactorDen fields are left zero.
const (
	loadFactorNum = 3
	loadFactorDen = 4
)

// Config configures a Store's resource knobs. New fills in every zero field
// with the defaults below, so the zero value is usable as is; DefaultConfig
// spells the numeric defaults out for callers that override single fields.
type Config struct {
	// InitialCapacity is the slot count of the first table. Must be a power
	// of two if non-zero. Defaults to InitialCapacity. Tests use small
	// values here to exercise growth without millions of inserts.
	InitialCapacity uint32
	// ChunkSize is the size of one arena chunk. Defaults to ChunkSize.
	ChunkSize uintptr
	// LoadFactorNum and LoadFactorDen set the fraction of a table's capacity
	// that must be claimed before it triggers a grow. Each one left zero
	// falls back to its own default independently (numerator 3,
	// denominator 4).
	LoadFactorNum uint32
	LoadFactorDen uint32
	// PageAllocator backs both the table chain and the arena. Defaults to
	// pagealloc.New(), the real mmap-backed allocator. Tests substitute a
	// pagealloc.Fake to inject allocation failures deterministically.
	PageAllocator pagealloc.Allocator
	// Observer, if non-nil, is notified of Put/Collect/grow activity.
	Observer StoreObserver
}

// DefaultConfig returns a Config using async-profiler's original constants.
// PageAllocator and Observer are left nil; New replaces them with the real
// OS-backed page allocator and a no-op observer.
func DefaultConfig() Config {
	return Config{
		InitialCapacity: InitialCapacity,
		ChunkSize:       ChunkSize,
		LoadFactorNum:   loadFactorNum,
		LoadFactorDen:   loadFactorDen,
	}
}

func (c Config) withDefaults() Config {
	if c.InitialCapacity == 0 {
		c.InitialCapacity = InitialCapacity
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = ChunkSize
	}
	if c.LoadFactorNum == 0 {
		c.LoadFactorNum = loadFactorNum
	}
	if c.LoadFactorDen == 0 {
		c.LoadFactorDen = loadFactorDen
	}
	if c.PageAllocator == nil {
		c.PageAllocator = pagealloc.New()
	}
	if c.Observer == nil {
		c.Observer = noopObserver{}
	}
	return c
}

func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}
