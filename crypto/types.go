// Package crypto adapts block ciphers to the timing oracle: one key schedule
// shared by an encrypt and a decrypt context, CBC chaining with PKCS#7
// padding, and an IV that is replaced before every request.
package crypto

import (
	"errors"
	"fmt"
)

// KeySize is the size of the key material every engine accepts
const KeySize = 16

var (
	// ErrKeysize occurs on an invalid key size
	ErrKeysize = errors.New("oracle/crypto: key size should be 16")
	// ErrIVSize occurs when the IV isn't one block long
	ErrIVSize = errors.New("oracle/crypto: iv size should be one block")
	// ErrNoIV occurs when a context is used before SetIV
	ErrNoIV = errors.New("oracle/crypto: iv not set")
	// ErrClosed occurs when a context is used after Close
	ErrClosed = errors.New("oracle/crypto: context closed")
	// ErrBlocksize occurs when ciphertext isn't a whole number of blocks
	ErrBlocksize = errors.New("oracle/crypto: ciphertext not a multiple of the block size")
	// ErrPadding occurs when decrypted data has invalid PKCS#7 padding
	ErrPadding = errors.New("oracle/crypto: invalid padding")
	// ErrUnknownCipher occurs when Lookup is given a name that isn't registered
	ErrUnknownCipher = errors.New("oracle/crypto: unknown cipher")
)

// CipherError wraps a failure inside the cipher engine with the operation
// that caused it.
type CipherError struct {
	Op  string
	Err error
}

func (e *CipherError) Error() string {
	return fmt.Sprintf("cipher %s: %v", e.Op, e.Err)
}

func (e *CipherError) Unwrap() error { return e.Err }

// Engine builds cipher contexts from raw key material.
type Engine interface {
	// Name is the registry name of the cipher
	Name() string
	// BlockSize is the cipher block size in bytes
	BlockSize() int
	// Init runs the key schedule and returns an encrypt and a decrypt context.
	Init(key []byte) (enc, dec Context, err error)
}

// Context is one direction of a keyed cipher. It is reusable across calls
// and not safe for concurrent use.
type Context interface {
	// SetIV replaces the chaining IV. It must be one block long.
	SetIV(iv []byte) error
	// Encrypt pads plaintext and encrypts it into dst, which is grown if it
	// is too small. The result is len(plaintext)/bs*bs + bs bytes.
	Encrypt(dst, plaintext []byte) ([]byte, error)
	// Decrypt decrypts ciphertext into dst and strips the padding.
	Decrypt(dst, ciphertext []byte) ([]byte, error)
	// Close drops the key schedule.
	Close()
}

// EncryptedLen is the ciphertext length for n bytes of plaintext.
func EncryptedLen(n, blockSize int) int {
	return n/blockSize*blockSize + blockSize
}
