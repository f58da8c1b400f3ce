package pagealloc

import "testing"

// ========================================
// Allocator Tests
// ========================================

// TestAllocator_AllocZeroed verifies fresh regions come back zero-filled.
func TestAllocator_AllocZeroed(t *testing.T) {
	a := New()
	region, err := a.Alloc(a.PageSize())
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	defer a.Free(region)

	for i, b := range region {
		if b != 0 {
			t.Fatalf("region[%d] = %d, want 0", i, b)
		}
	}
}

// TestAllocator_RoundsUpToPageSize verifies odd sizes are rounded up.
func TestAllocator_RoundsUpToPageSize(t *testing.T) {
	a := New()
	region, err := a.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc(1) error = %v", err)
	}
	defer a.Free(region)

	if uintptr(len(region))%a.PageSize() != 0 {
		t.Errorf("len(region) = %d, not a multiple of page size %d", len(region), a.PageSize())
	}
	if len(region) < 1 {
		t.Errorf("len(region) = %d, want at least 1", len(region))
	}
}

// TestAllocator_ZeroSize verifies a zero-size request does not fail.
func TestAllocator_ZeroSize(t *testing.T) {
	a := New()
	region, err := a.Alloc(0)
	if err != nil {
		t.Fatalf("Alloc(0) error = %v", err)
	}
	a.Free(region)
}

// ========================================
// Fake Allocator Tests
// ========================================

// TestFake_FailNext verifies the fault injector fails exactly n calls.
func TestFake_FailNext(t *testing.T) {
	f := NewFake(4096)
	f.FailNext(2)

	if _, err := f.Alloc(64); err != ErrOutOfMemory {
		t.Fatalf("Alloc() #1 error = %v, want ErrOutOfMemory", err)
	}
	if _, err := f.Alloc(64); err != ErrOutOfMemory {
		t.Fatalf("Alloc() #2 error = %v, want ErrOutOfMemory", err)
	}
	region, err := f.Alloc(64)
	if err != nil {
		t.Fatalf("Alloc() #3 error = %v, want nil", err)
	}
	if len(region) == 0 {
		t.Error("Alloc() #3 returned empty region")
	}
	if f.Allocated() != 1 {
		t.Errorf("Allocated() = %d, want 1", f.Allocated())
	}
}

// TestFake_FreeCountsCalls verifies Free is tracked for leak-hygiene tests.
func TestFake_FreeCountsCalls(t *testing.T) {
	f := NewFake(0)
	region, err := f.Alloc(128)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	f.Free(region)
	if f.Freed() != 1 {
		t.Errorf("Freed() = %d, want 1", f.Freed())
	}
}
