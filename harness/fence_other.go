//go:build !amd64

package harness

import "sync/atomic"

var fenceWord uint64

// Fence is a sequentially consistent read-modify-write, which the Go memory
// model gives full fence semantics. The compiler won't move memory
// operations across it either.
func Fence() {
	atomic.AddUint64(&fenceWord, 1)
}

// without CLFLUSH only the eviction sweep runs
func flushBuffer(b []byte) {}

const hasLineFlush = false
