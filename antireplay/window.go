// Package antireplay remembers which request ids were seen recently so the
// server can flag retransmitted or replayed requests in its status output.
// The server never drops a request because of it.
package antireplay

// the bitmap follows RFC 6479: a ring of words, indexed by the high bits of
// the id, that slides forward as higher ids arrive.
const (
	wordBits    = 64
	wordBitsLog = 6
	// total bits in the ring, a power of 2
	ringBits = 1024
	numWords = ringBits / wordBits

	// WindowSize is how far below the highest id a duplicate is still
	// detected. One word is kept spare so sliding never clears live bits.
	WindowSize = uint32(ringBits - wordBits)
)

// Window records which request ids have been seen. The zero value is ready
// to use.
type Window struct {
	highest uint32
	started bool
	words   [numWords]uint64
}

// Reset forgets every id
func (w *Window) Reset() {
	*w = Window{}
}

// Seen records id and reports whether it was already recorded. An id that
// falls behind the window restarts it, which is what a client that restarted
// its counter looks like.
func (w *Window) Seen(id uint32) bool {
	if !w.started || (id < w.highest && w.highest-id > WindowSize) {
		w.Reset()
		w.started = true
		w.highest = id
	}

	word := id >> wordBitsLog
	if id > w.highest {
		top := w.highest >> wordBitsLog
		fresh := word - top
		if fresh > numWords {
			fresh = numWords
		}
		for i := uint32(1); i <= fresh; i++ {
			w.words[(top+i)%numWords] = 0
		}
		w.highest = id
	}

	word %= numWords
	bit := uint64(1) << (id & (wordBits - 1))
	dup := w.words[word]&bit != 0
	w.words[word] |= bit
	return dup
}
