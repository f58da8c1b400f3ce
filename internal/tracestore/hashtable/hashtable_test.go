package hashtable

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kolkov/tracestore/pagealloc"
)

type record struct{ n int }

// ========================================
// Allocation Tests
// ========================================

// TestAllocate_RejectsNonPowerOfTwo verifies capacity is validated up front.
func TestAllocate_RejectsNonPowerOfTwo(t *testing.T) {
	if _, err := Allocate[record](pagealloc.NewFake(4096), nil, 100); err == nil {
		t.Fatal("Allocate(100) error = nil, want non-nil")
	}
}

// TestAllocate_ZeroedStorage verifies a fresh table has no claimed slots.
func TestAllocate_ZeroedStorage(t *testing.T) {
	tbl, err := Allocate[record](pagealloc.NewFake(4096), nil, 16)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	for slot := uint32(0); slot < tbl.Capacity(); slot++ {
		if tbl.KeyAt(slot) != 0 {
			t.Errorf("KeyAt(%d) = %d, want 0", slot, tbl.KeyAt(slot))
		}
		if tbl.ValueAt(slot) != nil {
			t.Errorf("ValueAt(%d) = %v, want nil", slot, tbl.ValueAt(slot))
		}
	}
}

// TestAllocate_PropagatesFailure verifies a page-allocator failure surfaces
// as an error.
func TestAllocate_PropagatesFailure(t *testing.T) {
	fake := pagealloc.NewFake(4096)
	fake.FailNext(1)
	if _, err := Allocate[record](fake, nil, 16); err == nil {
		t.Fatal("Allocate() error = nil, want non-nil")
	}
}

// ========================================
// Claim / Find Semantics
// ========================================

// TestClaim_FirstCallInserts verifies claiming a fresh hash reports Inserted.
func TestClaim_FirstCallInserts(t *testing.T) {
	tbl, _ := Allocate[record](pagealloc.NewFake(4096), nil, 16)

	slot, result := tbl.Claim(0xABCD)
	if result != Inserted {
		t.Fatalf("Claim() result = %v, want Inserted", result)
	}
	if tbl.KeyAt(slot) != 0xABCD {
		t.Errorf("KeyAt(%d) = %#x, want 0xABCD", slot, tbl.KeyAt(slot))
	}
}

// TestClaim_SecondCallFinds verifies re-claiming the same hash reports
// Found at the same slot, without disturbing the table's size.
func TestClaim_SecondCallFinds(t *testing.T) {
	tbl, _ := Allocate[record](pagealloc.NewFake(4096), nil, 16)

	slot1, result1 := tbl.Claim(0x42)
	if result1 != Inserted {
		t.Fatalf("first Claim() result = %v, want Inserted", result1)
	}
	tbl.IncSize()

	slot2, result2 := tbl.Claim(0x42)
	if result2 != Found {
		t.Fatalf("second Claim() result = %v, want Found", result2)
	}
	if slot1 != slot2 {
		t.Errorf("slot changed across calls: %d != %d", slot1, slot2)
	}
	if tbl.Size() != 1 {
		t.Errorf("Size() = %d, want 1", tbl.Size())
	}
}

// TestClaim_CollisionProbesToDistinctSlot verifies two hashes that collide
// on the home slot land in different slots via the triangular probe sequence.
func TestClaim_CollisionProbesToDistinctSlot(t *testing.T) {
	tbl, _ := Allocate[record](pagealloc.NewFake(4096), nil, 16)

	// Both hashes share the same low 4 bits (home slot), differ above it.
	slotA, resultA := tbl.Claim(0x10)
	slotB, resultB := tbl.Claim(0x20)

	if resultA != Inserted || resultB != Inserted {
		t.Fatalf("Claim() results = %v, %v, want Inserted, Inserted", resultA, resultB)
	}
	if slotA == slotB {
		t.Fatal("colliding hashes landed in the same slot")
	}
}

// TestClaim_OverflowWhenFull verifies a table with every slot claimed
// reports Overflow instead of looping forever.
func TestClaim_OverflowWhenFull(t *testing.T) {
	tbl, _ := Allocate[record](pagealloc.NewFake(4096), nil, 4)
	for i := uint64(1); i <= 4; i++ {
		if _, result := tbl.Claim(i); result != Inserted {
			t.Fatalf("Claim(%d) result = %v, want Inserted", i, result)
		}
	}
	if _, result := tbl.Claim(0xFFFF); result != Overflow {
		t.Fatalf("Claim() on full table result = %v, want Overflow", result)
	}
}

// TestFind_MissReturnsNil verifies Find on an untouched hash returns nil.
func TestFind_MissReturnsNil(t *testing.T) {
	tbl, _ := Allocate[record](pagealloc.NewFake(4096), nil, 16)
	if v := tbl.Find(0x99); v != nil {
		t.Errorf("Find() = %v, want nil", v)
	}
}

// TestPublishValue_RoundTrips verifies a published value is visible via
// both Find and ValueAt.
func TestPublishValue_RoundTrips(t *testing.T) {
	tbl, _ := Allocate[record](pagealloc.NewFake(4096), nil, 16)
	slot, _ := tbl.Claim(0x7)
	want := &record{n: 7}
	tbl.PublishValue(slot, want)

	if got := tbl.Find(0x7); got != want {
		t.Errorf("Find() = %v, want %v", got, want)
	}
	if got := tbl.ValueAt(slot); got != want {
		t.Errorf("ValueAt() = %v, want %v", got, want)
	}
}

// ========================================
// Clear / Destroy
// ========================================

// TestClear_ResetsTable verifies Clear zeroes every slot and the size
// counter.
func TestClear_ResetsTable(t *testing.T) {
	tbl, _ := Allocate[record](pagealloc.NewFake(4096), nil, 16)
	slot, _ := tbl.Claim(0x1)
	tbl.IncSize()
	tbl.PublishValue(slot, &record{n: 1})

	tbl.Clear()

	if tbl.Size() != 0 {
		t.Errorf("Size() after Clear() = %d, want 0", tbl.Size())
	}
	if tbl.KeyAt(slot) != 0 {
		t.Errorf("KeyAt(%d) after Clear() = %d, want 0", slot, tbl.KeyAt(slot))
	}
	if tbl.ValueAt(slot) != nil {
		t.Errorf("ValueAt(%d) after Clear() = %v, want nil", slot, tbl.ValueAt(slot))
	}
}

// TestDestroy_ReturnsPrevAndFrees verifies Destroy frees its region and
// returns the predecessor table in the chain.
func TestDestroy_ReturnsPrevAndFrees(t *testing.T) {
	fake := pagealloc.NewFake(4096)
	root, _ := Allocate[record](fake, nil, 16)
	grown, _ := Allocate[record](fake, root, 32)

	prev := grown.Destroy(fake)
	if prev != root {
		t.Errorf("Destroy() returned %v, want root table", prev)
	}
	if fake.Freed() != 1 {
		t.Errorf("Freed() = %d, want 1", fake.Freed())
	}
}

// ========================================
// Concurrency
// ========================================

// TestClaim_ConcurrentSameHashClaimedOnce verifies that when many goroutines
// race to claim the same hash, exactly one sees Inserted and the rest see
// Found at the same slot.
func TestClaim_ConcurrentSameHashClaimedOnce(t *testing.T) {
	tbl, _ := Allocate[record](pagealloc.NewFake(4096), nil, 1024)

	const goroutines = 64
	var wg sync.WaitGroup
	wg.Add(goroutines)

	var inserted atomic.Int64
	slots := make([]uint32, goroutines)
	for g := 0; g < goroutines; g++ {
		g := g
		go func() {
			defer wg.Done()
			slot, result := tbl.Claim(0xDEAD)
			slots[g] = slot
			if result == Inserted {
				inserted.Add(1)
			}
		}()
	}
	wg.Wait()

	if inserted.Load() != 1 {
		t.Errorf("Inserted count = %d, want 1", inserted.Load())
	}
	first := slots[0]
	for i, s := range slots {
		if s != first {
			t.Errorf("goroutine %d landed on slot %d, want %d", i, s, first)
		}
	}
}
