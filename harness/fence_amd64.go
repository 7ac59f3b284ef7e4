package harness

import "unsafe"

// Fence issues MFENCE. Being an assembly call it is also a compiler barrier.
func Fence() {
	mfence()
}

func flushBuffer(b []byte) {
	if len(b) == 0 {
		return
	}
	base := unsafe.Pointer(&b[0])
	offset := uintptr(base) & (lineSize - 1)
	lines := (offset + uintptr(len(b)) + lineSize - 1) / lineSize
	flushLines(base, lines)
}

const hasLineFlush = true

//go:noescape
func mfence()

// flushLines issues CLFLUSH on lines consecutive cache lines starting with
// the one holding base, then MFENCE.
//
//go:noescape
func flushLines(base unsafe.Pointer, lines uintptr)

// rdtscp reads the time stamp counter and TSC_AUX (the processor id on Linux).
//
//go:noescape
func rdtscp() (cycles, aux uint64)
