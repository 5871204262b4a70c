// atomic_float provides lock-free float64 helpers for the probe counters,
// which are written by per-service goroutines and read by the snapshot
// collector.
//
// The unsafe casts are confined to CAS loops over the same variable; no
// unsafe pointer outlives the expression it appears in, which keeps the
// code within the unsafe package's pointer-conversion rules even when the
// gc moves the underlying variable.
package atomic_float

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AtomicRead atomically reads a float64.
func AtomicRead(val *float64) (value float64) {
	return math.Float64frombits(atomic.LoadUint64((*uint64)(unsafe.Pointer(val))))
}

// AtomicAdd atomically adds to a float64.
func AtomicAdd(val *float64, addend float64) (newVal float64) {
	for {
		old := AtomicRead(val)
		newVal = old + addend
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(val)),
			math.Float64bits(old),
			math.Float64bits(newVal),
		) {
			break
		}
	}
	return
}

// AtomicSet atomically sets a float64.
func AtomicSet(val *float64, newVal float64) {
	for {
		old := AtomicRead(val)
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(val)),
			math.Float64bits(old),
			math.Float64bits(newVal),
		) {
			break
		}
	}
}

// AtomicMax atomically raises a float64 to candidate if it is greater.
func AtomicMax(val *float64, candidate float64) {
	for {
		old := AtomicRead(val)
		if candidate <= old {
			return
		}
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(val)),
			math.Float64bits(old),
			math.Float64bits(candidate),
		) {
			return
		}
	}
}
