package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"sort"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/twofish"
	"golang.org/x/crypto/xtea"
)

// DefaultCipher is the engine used when none is asked for
const DefaultCipher = "aes"

// the table driven ciphers (blowfish, cast5, twofish) are the interesting
// targets for cache timing, aes on amd64 runs on AES-NI.
var engines = map[string]Engine{
	"aes": &blockEngine{
		name:      "aes",
		blockSize: aes.BlockSize,
		newBlock:  aes.NewCipher,
	},
	"twofish": &blockEngine{
		name:      "twofish",
		blockSize: twofish.BlockSize,
		newBlock: func(key []byte) (cipher.Block, error) {
			return twofish.NewCipher(key)
		},
	},
	"blowfish": &blockEngine{
		name:      "blowfish",
		blockSize: blowfish.BlockSize,
		newBlock: func(key []byte) (cipher.Block, error) {
			return blowfish.NewCipher(key)
		},
	},
	"cast5": &blockEngine{
		name:      "cast5",
		blockSize: cast5.BlockSize,
		newBlock: func(key []byte) (cipher.Block, error) {
			return cast5.NewCipher(key)
		},
	},
	"xtea": &blockEngine{
		name:      "xtea",
		blockSize: xtea.BlockSize,
		newBlock: func(key []byte) (cipher.Block, error) {
			return xtea.NewCipher(key)
		},
	},
}

// Lookup returns the engine registered under name
func Lookup(name string) (Engine, error) {
	e, ok := engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, name)
	}
	return e, nil
}

// Names lists the registered engines in sorted order
func Names() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
