package tracestore

import (
	"encoding/binary"
	"unsafe"
)

// MurmurHash64A constants, as published by Austin Appleby.
const (
	murmurSeedMul = 0xc6a4a7935bd1e995
	murmurShift   = 47
)

// murmurHash64A is a direct port of MurmurHash64A, adapted the way
// async-profiler's calcHash consumes a call trace's frames: full 8-byte
// words, then a possible 4-byte tail (frame sizes here are always 4-byte
// aligned multiples, so no other remainder is possible).
func murmurHash64A(data []byte) uint64 {
	h := uint64(len(data)) * murmurSeedMul

	n := len(data) &^ 7
	for i := 0; i < n; i += 8 {
		k := binary.LittleEndian.Uint64(data[i : i+8])
		k *= murmurSeedMul
		k ^= k >> murmurShift
		k *= murmurSeedMul
		h ^= k
		h *= murmurSeedMul
	}

	if len(data)&4 != 0 {
		h ^= uint64(binary.LittleEndian.Uint32(data[n : n+4]))
		h *= murmurSeedMul
	}

	h ^= h >> murmurShift
	h *= murmurSeedMul
	h ^= h >> murmurShift

	return h
}

// hashFrames computes the trace hash over the raw bytes of frames without
// copying them: CallFrame has no padding, so a slice of them can be
// reinterpreted directly as a byte slice.
func hashFrames(frames []CallFrame) uint64 {
	if len(frames) == 0 {
		return murmurHash64A(nil)
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(&frames[0])), len(frames)*FrameSize)
	return murmurHash64A(data)
}
