package harness

import "fmt"

const (
	lineSize = 64

	// DefaultEvictSize is larger than the last level cache of most machines
	// the oracle runs on
	DefaultEvictSize = 8 << 20
)

// Flusher pushes data out of the CPU caches before a measurement.
type Flusher interface {
	// Flush evicts the lines backing regions, and whatever else the
	// implementation can reach.
	Flush(regions [][]byte)
	String() string
}

// cacheFlusher flushes the given regions line by line where the CPU has an
// instruction for it, then streams through an eviction buffer so that lines
// nobody can address (cipher tables, the key schedule) are pushed out too.
type cacheFlusher struct {
	evict []byte
}

// NewFlusher returns a Flusher with an eviction buffer of evictSize bytes.
// With evictSize 0 only the regions passed to Flush are flushed, and on
// targets without a line flush instruction that means nothing is.
func NewFlusher(evictSize int) Flusher {
	f := &cacheFlusher{}
	if evictSize > 0 {
		f.evict = make([]byte, evictSize)
	}
	return f
}

func (f *cacheFlusher) Flush(regions [][]byte) {
	for _, r := range regions {
		flushBuffer(r)
	}
	// writing makes each line modified in this core's cache, which displaces
	// whatever was there before
	for i := 0; i < len(f.evict); i += lineSize {
		f.evict[i]++
	}
	if hasLineFlush {
		// don't leave the eviction buffer itself sitting in the cache
		flushBuffer(f.evict)
	}
}

func (f *cacheFlusher) String() string {
	method := "eviction sweep"
	if hasLineFlush {
		method = "clflush + eviction sweep"
	}
	if len(f.evict) == 0 {
		if !hasLineFlush {
			return "none"
		}
		method = "clflush"
	}
	return fmt.Sprintf("%s (%d bytes)", method, len(f.evict))
}
