// Package keycache decides, request by request, whether the live cipher
// contexts can be reused or have to be rebuilt from a new key.
package keycache

import (
	"errors"
	"fmt"

	"github.com/malcolmseyd/timing-oracle/crypto"
	"github.com/malcolmseyd/timing-oracle/wire"
)

// Policy selects when contexts are rebuilt
type Policy int

const (
	// Cached rebuilds only when the key differs from the previous request's.
	// Samples taken without a rebuild are steady state samples.
	Cached Policy = iota
	// Reinit rebuilds on every request.
	Reinit
)

// ErrPolicy is returned by ParsePolicy for an unknown name
var ErrPolicy = errors.New("keycache: unknown policy")

// ParsePolicy maps "cached" and "reinit" to a Policy
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "cached":
		return Cached, nil
	case "reinit":
		return Reinit, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrPolicy, s)
}

func (p Policy) String() string {
	switch p {
	case Cached:
		return "cached"
	case Reinit:
		return "reinit"
	default:
		return "unknown"
	}
}

// Cache owns the encrypt and decrypt contexts and the key they were built
// from. It is used by a single goroutine and does no locking.
type Cache struct {
	engine crypto.Engine
	policy Policy

	// keys[cur] is the loaded key, the other slot takes the next one so the
	// previous key stays put for comparison
	keys   [2]wire.Key
	cur    int
	loaded bool

	enc, dec crypto.Context

	rebuilds uint64
}

// New returns an empty cache; the first Ensure always rebuilds.
func New(engine crypto.Engine, policy Policy) *Cache {
	return &Cache{engine: engine, policy: policy}
}

// Ensure makes the contexts match key and reports whether they were rebuilt.
// If the rebuild fails the cache is left empty, so the next call rebuilds
// again instead of using a half initialized context.
func (c *Cache) Ensure(key wire.Key) (rebuilt bool, err error) {
	if c.loaded && c.policy == Cached && c.keys[c.cur] == key {
		return false, nil
	}

	next := 1 - c.cur
	c.keys[next] = key
	c.release()

	enc, dec, err := c.engine.Init(c.keys[next][:])
	if err != nil {
		c.keys[next] = wire.Key{}
		return false, err
	}
	c.enc, c.dec = enc, dec
	c.cur = next
	c.loaded = true
	c.rebuilds++
	return true, nil
}

// Encrypter is the live encrypt context, nil when the cache is empty
func (c *Cache) Encrypter() crypto.Context { return c.enc }

// Decrypter is the live decrypt context, nil when the cache is empty
func (c *Cache) Decrypter() crypto.Context { return c.dec }

// Key returns the loaded key and whether there is one
func (c *Cache) Key() (wire.Key, bool) {
	return c.keys[c.cur], c.loaded
}

// KeyBytes is the loaded key's storage inside the cache, so callers can
// touch the same memory the contexts were built from. Nil when empty.
func (c *Cache) KeyBytes() []byte {
	if !c.loaded {
		return nil
	}
	return c.keys[c.cur][:]
}

// Rebuilds counts successful rebuilds since New
func (c *Cache) Rebuilds() uint64 { return c.rebuilds }

// Policy returns the cache's rebuild policy
func (c *Cache) Policy() Policy { return c.policy }

// Close releases the contexts and forgets the key
func (c *Cache) Close() {
	c.release()
	c.keys = [2]wire.Key{}
}

func (c *Cache) release() {
	if c.enc != nil {
		c.enc.Close()
	}
	if c.dec != nil {
		c.dec.Close()
	}
	c.enc, c.dec = nil, nil
	c.loaded = false
}
