package harness

import (
	"bytes"
	"errors"
	"testing"

	"github.com/malcolmseyd/timing-oracle/crypto"
)

type recordingFlusher struct {
	calls   int
	regions [][]byte
}

func (f *recordingFlusher) Flush(regions [][]byte) {
	f.calls++
	f.regions = append(f.regions[:0], regions...)
	// dirty the output buffer, Measure has to clear it afterwards
	for i := range regions[2] {
		regions[2][i] = 0xff
	}
}

func (f *recordingFlusher) String() string { return "recording" }

// corruptContext flips a bit in every ciphertext it produces
type corruptContext struct {
	crypto.Context
}

func (c corruptContext) Encrypt(dst, plaintext []byte) ([]byte, error) {
	out, err := c.Context.Encrypt(dst, plaintext)
	if err == nil && len(out) > 0 {
		out[0] ^= 1
	}
	return out, err
}

func setup(t *testing.T, name string) (crypto.Engine, crypto.Context, crypto.Context) {
	t.Helper()
	engine, err := crypto.Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	enc, dec, err := engine.Init(key)
	if err != nil {
		t.Fatal(err)
	}
	return engine, enc, dec
}

func TestMeasureTruncatesToOneBlock(t *testing.T) {
	for _, name := range []string{"aes", "blowfish"} {
		engine, enc, dec := setup(t, name)
		bs := engine.BlockSize()
		h := New(Config{BlockSize: bs, Clock: MonoClock(), SelfCheck: true})

		for _, n := range []int{0, 1, bs - 1, bs, bs + 1, 100} {
			plaintext := bytes.Repeat([]byte{0xAB}, n)
			sample, err := h.Measure(enc, dec, nil, plaintext)
			if err != nil {
				t.Fatal(name, n, err)
			}
			truncated := min(n, bs)
			if sample.Encrypted != truncated {
				t.Fatal(name, "encrypted", sample.Encrypted, "bytes of", n)
			}
			if len(sample.Ciphertext) != crypto.EncryptedLen(truncated, bs) {
				t.Fatal(name, "ciphertext for", n, "bytes is", len(sample.Ciphertext), "long")
			}
			if n < bs && len(sample.Ciphertext) != bs {
				t.Fatal(name, "short plaintext must give exactly one block")
			}
			if sample.Outbound.Before(sample.Inbound) {
				t.Fatal(name, "outbound", sample.Outbound, "before inbound", sample.Inbound)
			}

			// decrypt independently with the reported IV
			if err := dec.SetIV(sample.IV); err != nil {
				t.Fatal(err)
			}
			decrypted, err := dec.Decrypt(nil, sample.Ciphertext)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(decrypted, plaintext[:truncated]) {
				t.Fatal(name, "round trip failed for", n)
			}
		}
	}
}

func TestMeasureUsesFreshIV(t *testing.T) {
	_, enc, dec := setup(t, "aes")
	h := New(Config{BlockSize: 16})

	first, err := h.Measure(enc, dec, nil, []byte("same"))
	if err != nil {
		t.Fatal(err)
	}
	iv := append([]byte(nil), first.IV...)
	ct := append([]byte(nil), first.Ciphertext...)

	second, err := h.Measure(enc, dec, nil, []byte("same"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(iv, second.IV) {
		t.Fatal("IV repeated")
	}
	if bytes.Equal(ct, second.Ciphertext) {
		t.Fatal("Same plaintext encrypted to the same ciphertext under different IVs")
	}
}

func TestMeasureIVSource(t *testing.T) {
	_, enc, dec := setup(t, "aes")
	iv := bytes.Repeat([]byte{0x42}, 16)
	h := New(Config{BlockSize: 16, Rand: bytes.NewReader(iv)})

	sample, err := h.Measure(enc, dec, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sample.IV, iv) {
		t.Fatal("IV not taken from Rand:", sample.IV)
	}

	// the reader is empty now
	_, err = h.Measure(enc, dec, nil, nil)
	var cerr *crypto.CipherError
	if !errors.As(err, &cerr) {
		t.Fatal("expected a CipherError, got", err)
	}
}

func TestMeasureFlushesBuffers(t *testing.T) {
	_, enc, dec := setup(t, "aes")
	f := &recordingFlusher{}
	h := New(Config{BlockSize: 16, Flusher: f, SelfCheck: true})

	key := []byte("0123456789abcdef")
	plaintext := []byte("flush me")
	if _, err := h.Measure(enc, dec, key, plaintext); err != nil {
		t.Fatal(err)
	}
	if f.calls != 1 {
		t.Fatal("Flush called", f.calls, "times")
	}
	if !bytes.Equal(f.regions[0], key) || !bytes.Equal(f.regions[1], plaintext) {
		t.Fatal("Flush didn't get the key and plaintext")
	}
}

func TestSelfCheckCatchesCorruption(t *testing.T) {
	_, enc, dec := setup(t, "aes")
	h := New(Config{BlockSize: 16, SelfCheck: true})

	_, err := h.Measure(corruptContext{enc}, dec, nil, []byte{1, 2, 3, 4})
	var ierr *InconsistencyError
	if !errors.As(err, &ierr) {
		t.Fatal("expected an InconsistencyError, got", err)
	}

	h = New(Config{BlockSize: 16, SelfCheck: false})
	if _, err := h.Measure(corruptContext{enc}, dec, nil, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal("self check ran while disabled:", err)
	}
}

func TestClocks(t *testing.T) {
	for _, name := range []string{"wall", "mono", "cycles"} {
		c, err := NewClock(name)
		if err != nil {
			t.Fatal(err)
		}
		a := c.Now()
		b := c.Now()
		if b.Before(a) {
			t.Fatal(c.Name(), "went backwards:", a, b)
		}
	}
	if _, err := NewClock("sundial"); !errors.Is(err, ErrClock) {
		t.Fatal("expected ErrClock, got", err)
	}
}

func TestFlusher(t *testing.T) {
	f := NewFlusher(1 << 16)
	buf := make([]byte, 300)
	// unaligned and empty regions must both be fine
	f.Flush([][]byte{buf[3:], nil, buf[:1]})
	if f.String() == "" {
		t.Fatal("Flusher has no description")
	}
	Fence()
}
