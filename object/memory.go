package object

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"unsafe"
)

// Size of a Dynamic in bytes.
const DynamicSize = int64(unsafe.Sizeof(Dynamic{}))

// Returns the amount of free memory in bytes.
func FreeMemory() int64 {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	currentAlloc := memStats.HeapAlloc
	// retrieve the current limit.
	gomemlimit := debug.SetMemoryLimit(-1)
	return gomemlimit - int64(currentAlloc) //nolint:gosec // necessary, can be negative.
}

func SizeOk(n int) (bool, int64) {
	if n <= 256 { // no checks for small slices (a few pages of memory)
		return true, 0
	}
	free := FreeMemory()
	return ((free >= 0) && ((int64(n) * DynamicSize) < free)), free
}

func MustBeOk(n int) {
	if ok, _ := SizeOk(n); ok {
		return
	}
	runtime.GC()
	if ok, free := SizeOk(n); !ok {
		panic(fmt.Sprintf("would exceed memory requesting %d values, %d free", n, free))
	}
}

// Memory checking version of make(). To avoid OOM kills / fatal errors.
func MakeArray(n int) []Dynamic {
	MustBeOk(n)
	return make([]Dynamic, 0, n)
}
