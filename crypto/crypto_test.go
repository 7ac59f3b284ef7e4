package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal("Bad input data:", err)
	}
	return b
}

// first block of the CBC-AES128 vector from NIST SP 800-38A F.2.1
func TestAESKnownAnswer(t *testing.T) {
	key := mustHex(t, "2b7e151628aed2a6abf7158809cf4f3c")
	iv := mustHex(t, "000102030405060708090a0b0c0d0e0f")
	plaintext := mustHex(t, "6bc1bee22e409f96e93d7e117393172a")
	expected := mustHex(t, "7649abac8119b246cee98e9b12e9197d")

	engine, err := Lookup("aes")
	if err != nil {
		t.Fatal(err)
	}
	enc, dec, err := engine.Init(key)
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.SetIV(iv); err != nil {
		t.Fatal(err)
	}
	ciphertext, err := enc.Encrypt(nil, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	// a full block of plaintext gets a full block of padding
	if len(ciphertext) != 32 {
		t.Fatal("Ciphertext is the wrong length:", len(ciphertext))
	}
	if !bytes.Equal(ciphertext[:16], expected) {
		t.Fatal("Ciphertext mismatch"+
			"\nExpected:", hex.EncodeToString(expected),
			"\nActual:  ", hex.EncodeToString(ciphertext[:16]))
	}

	if err := dec.SetIV(iv); err != nil {
		t.Fatal(err)
	}
	decrypted, err := dec.Decrypt(nil, ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatal("Decrypted plaintext differs")
	}
}

func TestRoundTripAllEngines(t *testing.T) {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			engine, err := Lookup(name)
			if err != nil {
				t.Fatal(err)
			}
			bs := engine.BlockSize()
			enc, dec, err := engine.Init(key)
			if err != nil {
				t.Fatal(err)
			}
			defer enc.Close()
			defer dec.Close()

			iv := bytes.Repeat([]byte{0x5a}, bs)
			for _, n := range []int{0, 1, bs - 1, bs, bs + 1, 3 * bs} {
				plaintext := bytes.Repeat([]byte{0xAA}, n)
				if err := enc.SetIV(iv); err != nil {
					t.Fatal(err)
				}
				if err := dec.SetIV(iv); err != nil {
					t.Fatal(err)
				}
				ciphertext, err := enc.Encrypt(nil, plaintext)
				if err != nil {
					t.Fatal(err)
				}
				if len(ciphertext) != EncryptedLen(n, bs) {
					t.Fatal("Length", n, "encrypted to", len(ciphertext), "bytes")
				}
				decrypted, err := dec.Decrypt(nil, ciphertext)
				if err != nil {
					t.Fatal(err)
				}
				if !bytes.Equal(decrypted, plaintext) {
					t.Fatal("Round trip failed for length", n)
				}
			}
		})
	}
}

func TestEncryptReusesDst(t *testing.T) {
	engine, _ := Lookup(DefaultCipher)
	enc, _, _ := engine.Init(make([]byte, KeySize))
	_ = enc.SetIV(make([]byte, engine.BlockSize()))

	dst := make([]byte, 0, 64)
	out, err := enc.Encrypt(dst, []byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if &out[0] != &dst[:1][0] {
		t.Fatal("Encrypt allocated instead of using dst")
	}
}

func TestContextErrors(t *testing.T) {
	engine, _ := Lookup(DefaultCipher)

	_, _, err := engine.Init(make([]byte, 15))
	var cerr *CipherError
	if !errors.As(err, &cerr) || !errors.Is(err, ErrKeysize) {
		t.Fatal("expected a CipherError wrapping ErrKeysize, got", err)
	}

	enc, dec, err := engine.Init(make([]byte, KeySize))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Encrypt(nil, nil); !errors.Is(err, ErrNoIV) {
		t.Fatal("expected ErrNoIV, got", err)
	}
	if err := enc.SetIV(make([]byte, 8)); !errors.Is(err, ErrIVSize) {
		t.Fatal("expected ErrIVSize, got", err)
	}

	_ = dec.SetIV(make([]byte, 16))
	if _, err := dec.Decrypt(nil, make([]byte, 15)); !errors.Is(err, ErrBlocksize) {
		t.Fatal("expected ErrBlocksize, got", err)
	}

	enc.Close()
	if _, err := enc.Encrypt(nil, nil); !errors.Is(err, ErrClosed) {
		t.Fatal("expected ErrClosed, got", err)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("rot13"); !errors.Is(err, ErrUnknownCipher) {
		t.Fatal("expected ErrUnknownCipher, got", err)
	}
}
