package util

import (
	"sync/atomic"
	"unsafe"
)

// CacheLineSize is a reasonable default for most modern CPUs.
const CacheLineSize = 64

// Counter is an atomic uint64 padded to one cache line so that the hit,
// miss and computation counters of a map do not false-share.
type Counter struct {
	atomic.Uint64
	_ [CacheLineSize - 8]byte
}

// Compile-time size check.
var _ [CacheLineSize - int(unsafe.Sizeof(Counter{}))]byte
