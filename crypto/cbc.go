package crypto

import (
	"crypto/cipher"
)

// blockEngine turns any cipher.Block constructor into an Engine.
type blockEngine struct {
	name      string
	blockSize int
	newBlock  func(key []byte) (cipher.Block, error)
}

func (e *blockEngine) Name() string   { return e.name }
func (e *blockEngine) BlockSize() int { return e.blockSize }

func (e *blockEngine) Init(key []byte) (enc, dec Context, err error) {
	if len(key) != KeySize {
		return nil, nil, &CipherError{Op: "init " + e.name, Err: ErrKeysize}
	}
	// each direction gets its own schedule so closing one can't corrupt the other
	encBlock, err := e.newBlock(key)
	if err != nil {
		return nil, nil, &CipherError{Op: "init " + e.name, Err: err}
	}
	decBlock, err := e.newBlock(key)
	if err != nil {
		return nil, nil, &CipherError{Op: "init " + e.name, Err: err}
	}
	return &cbcContext{block: encBlock, encrypt: true},
		&cbcContext{block: decBlock, encrypt: false},
		nil
}

type cbcContext struct {
	block   cipher.Block
	mode    cipher.BlockMode
	encrypt bool
}

// SetIV builds the chaining mode up front so Encrypt does no setup of its own.
func (c *cbcContext) SetIV(iv []byte) error {
	if c.block == nil {
		return ErrClosed
	}
	if len(iv) != c.block.BlockSize() {
		return ErrIVSize
	}
	if c.encrypt {
		c.mode = cipher.NewCBCEncrypter(c.block, iv)
	} else {
		c.mode = cipher.NewCBCDecrypter(c.block, iv)
	}
	return nil
}

func (c *cbcContext) Encrypt(dst, plaintext []byte) ([]byte, error) {
	if c.block == nil {
		return nil, &CipherError{Op: "encrypt", Err: ErrClosed}
	}
	if c.mode == nil {
		return nil, &CipherError{Op: "encrypt", Err: ErrNoIV}
	}
	bs := c.block.BlockSize()
	n := EncryptedLen(len(plaintext), bs)
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]

	copy(dst, plaintext)
	pad := byte(n - len(plaintext))
	for i := len(plaintext); i < n; i++ {
		dst[i] = pad
	}
	c.mode.CryptBlocks(dst, dst)
	return dst, nil
}

func (c *cbcContext) Decrypt(dst, ciphertext []byte) ([]byte, error) {
	if c.block == nil {
		return nil, &CipherError{Op: "decrypt", Err: ErrClosed}
	}
	if c.mode == nil {
		return nil, &CipherError{Op: "decrypt", Err: ErrNoIV}
	}
	bs := c.block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, &CipherError{Op: "decrypt", Err: ErrBlocksize}
	}
	if cap(dst) < len(ciphertext) {
		dst = make([]byte, len(ciphertext))
	}
	dst = dst[:len(ciphertext)]
	c.mode.CryptBlocks(dst, ciphertext)

	pad := int(dst[len(dst)-1])
	if pad == 0 || pad > bs {
		return nil, &CipherError{Op: "decrypt", Err: ErrPadding}
	}
	for _, b := range dst[len(dst)-pad:] {
		if int(b) != pad {
			return nil, &CipherError{Op: "decrypt", Err: ErrPadding}
		}
	}
	return dst[:len(dst)-pad], nil
}

func (c *cbcContext) Close() {
	c.block = nil
	c.mode = nil
}
