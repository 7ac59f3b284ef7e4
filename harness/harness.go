// Package harness runs a single block encryption inside a measurement window.
// Everything that isn't the cipher call (IV setup, cache flush, buffer
// clearing, the self check) happens outside the window, and a full fence on
// each side keeps the compiler and the CPU from moving work across it.
package harness

import (
	"bytes"
	"fmt"
	"io"

	"github.com/malcolmseyd/timing-oracle/crypto"
	"github.com/malcolmseyd/timing-oracle/wire"
	"lukechampine.com/frand"
)

// InconsistencyError is returned when decrypting the ciphertext doesn't give
// back the plaintext that went in. It means the contexts are corrupt.
type InconsistencyError struct {
	Expected []byte
	Actual   []byte
	// Err is set when decryption itself failed
	Err error
}

func (e *InconsistencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("harness: self check failed: %v", e.Err)
	}
	return fmt.Sprintf("harness: self check failed: expected %x, decrypted %x", e.Expected, e.Actual)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

// Config holds the harness parameters
type Config struct {
	// BlockSize of the cipher being measured
	BlockSize int
	Clock     Clock
	Flusher   Flusher
	// SelfCheck decrypts every ciphertext after the window closes
	SelfCheck bool
	// Rand supplies IVs. Defaults to frand.
	Rand io.Reader
}

// Sample is the outcome of one measurement. Ciphertext and IV are owned by
// the Harness and only valid until the next call to Measure.
type Sample struct {
	Ciphertext []byte
	IV         []byte
	Inbound    wire.Timestamp
	Outbound   wire.Timestamp
	// Encrypted is how many plaintext bytes went into the cipher
	Encrypted int
}

// Harness is not safe for concurrent use.
type Harness struct {
	cfg Config

	iv      []byte
	out     []byte
	check   []byte
	regions [3][]byte
}

// New allocates every buffer Measure needs up front.
func New(cfg Config) *Harness {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = wire.DefaultBlockSize
	}
	if cfg.Clock == nil {
		cfg.Clock = WallClock()
	}
	if cfg.Flusher == nil {
		cfg.Flusher = NewFlusher(0)
	}
	bs := cfg.BlockSize
	return &Harness{
		cfg:   cfg,
		iv:    make([]byte, bs),
		out:   make([]byte, 2*bs),
		check: make([]byte, 2*bs),
	}
}

// BlockSize is the cipher block size the harness was built for
func (h *Harness) BlockSize() int { return h.cfg.BlockSize }

// Clock is the timestamp source in use
func (h *Harness) Clock() Clock { return h.cfg.Clock }

// Measure encrypts the first block of plaintext with enc and times the call.
// key is only used to flush its cache lines.
func (h *Harness) Measure(enc, dec crypto.Context, key, plaintext []byte) (Sample, error) {
	if err := h.loadIV(enc, dec); err != nil {
		return Sample{}, err
	}

	Fence()
	h.regions[0] = key
	h.regions[1] = plaintext
	h.regions[2] = h.out
	h.cfg.Flusher.Flush(h.regions[:])
	// cleared after the flush so the buffer isn't warmed before the window
	clear(h.out)

	n := min(len(plaintext), h.cfg.BlockSize)
	input := plaintext[:n]

	inbound := h.cfg.Clock.Now()
	ciphertext, err := enc.Encrypt(h.out[:0], input)
	outbound := h.cfg.Clock.Now()
	Fence()

	if err != nil {
		return Sample{}, err
	}

	if h.cfg.SelfCheck {
		if err := h.verify(dec, ciphertext, input); err != nil {
			return Sample{}, err
		}
	}

	return Sample{
		Ciphertext: ciphertext,
		IV:         h.iv,
		Inbound:    inbound,
		Outbound:   outbound,
		Encrypted:  n,
	}, nil
}

func (h *Harness) loadIV(enc, dec crypto.Context) error {
	if h.cfg.Rand != nil {
		if _, err := io.ReadFull(h.cfg.Rand, h.iv); err != nil {
			return &crypto.CipherError{Op: "generate iv", Err: err}
		}
	} else {
		frand.Read(h.iv)
	}
	if err := enc.SetIV(h.iv); err != nil {
		return &crypto.CipherError{Op: "set encrypt iv", Err: err}
	}
	if err := dec.SetIV(h.iv); err != nil {
		return &crypto.CipherError{Op: "set decrypt iv", Err: err}
	}
	return nil
}

func (h *Harness) verify(dec crypto.Context, ciphertext, expected []byte) error {
	decrypted, err := dec.Decrypt(h.check[:0], ciphertext)
	if err != nil {
		return &InconsistencyError{Expected: expected, Err: err}
	}
	if !bytes.Equal(decrypted, expected) {
		return &InconsistencyError{Expected: expected, Actual: decrypted}
	}
	return nil
}
