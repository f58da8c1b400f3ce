package tracestore

import "time"

// StoreObserver receives notifications about a TraceStore's activity. It is
// consulted from Put, Collect and the internal growth path, so an
// implementation must not block or itself call back into the store.
//
// TraceStore accepts a nil Observer and replaces it with a no-op
// implementation, so Put always times itself and makes the OnPut call,
// whether or not an observer is wired.
type StoreObserver interface {
	// OnPut is called once per Put, after the ID has been determined.
	OnPut(dur time.Duration, id uint32)
	// OnGrow is called once a new table has been installed as current.
	OnGrow(newCapacity uint32)
	// OnCollect is called once per Collect, after the snapshot is built.
	OnCollect(dur time.Duration, entries int)
	// OnSoftFailure is called whenever Put absorbs an internal allocation
	// failure rather than propagating it: err wraps ErrTableAllocation or
	// ErrArenaAllocation, checkable with errors.Is. Put's return value is
	// unaffected either way, but callers that want to notice a store that
	// is silently degrading (an arena that never grows, a table chain stuck
	// under load) have a hook to count or log it here.
	OnSoftFailure(err error)
}

type noopObserver struct{}

func (noopObserver) OnPut(time.Duration, uint32)  {}
func (noopObserver) OnGrow(uint32)                {}
func (noopObserver) OnCollect(time.Duration, int) {}
func (noopObserver) OnSoftFailure(error)          {}
