//go:build unix

package pagealloc

import "golang.org/x/sys/unix"

// safeAlloc maps size bytes of anonymous, zero-filled memory. size must
// already be page-aligned. It never panics: mmap failure surfaces as an
// error the caller can propagate as a soft table/arena allocation failure.
func safeAlloc(size uintptr) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	region, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return region, nil
}

// safeFree unmaps a region previously returned by safeAlloc.
func safeFree(region []byte) {
	if len(region) == 0 {
		return
	}
	_ = unix.Munmap(region)
}
