package keycache

import (
	"errors"
	"testing"

	"github.com/malcolmseyd/timing-oracle/crypto"
	"github.com/malcolmseyd/timing-oracle/wire"
)

// countingEngine counts Init calls and can be told to fail
type countingEngine struct {
	crypto.Engine
	inits int
	fail  error
}

func (e *countingEngine) Init(key []byte) (crypto.Context, crypto.Context, error) {
	e.inits++
	if e.fail != nil {
		return nil, nil, &crypto.CipherError{Op: "init", Err: e.fail}
	}
	return e.Engine.Init(key)
}

func newCounting(t *testing.T) *countingEngine {
	t.Helper()
	aes, err := crypto.Lookup("aes")
	if err != nil {
		t.Fatal(err)
	}
	return &countingEngine{Engine: aes}
}

func key(b byte) wire.Key {
	var k wire.Key
	for i := range k {
		k[i] = b
	}
	return k
}

func TestCachedPolicy(t *testing.T) {
	engine := newCounting(t)
	c := New(engine, Cached)
	defer c.Close()

	steps := []struct {
		key     wire.Key
		rebuilt bool
	}{
		{key(0), true}, // empty cache always rebuilds
		{key(0), false},
		{key(0), false},
		{key(1), true},
		{key(1), false},
		{key(0), true}, // the previous key doesn't count
		{key(2), true},
	}
	for i, s := range steps {
		rebuilt, err := c.Ensure(s.key)
		if err != nil {
			t.Fatal(err)
		}
		if rebuilt != s.rebuilt {
			t.Fatalf("step %d: rebuilt = %v, expected %v", i, rebuilt, s.rebuilt)
		}
		loaded, ok := c.Key()
		if !ok || loaded != s.key {
			t.Fatalf("step %d: cache holds the wrong key", i)
		}
		if c.Encrypter() == nil || c.Decrypter() == nil {
			t.Fatalf("step %d: contexts missing", i)
		}
	}
	if engine.inits != 4 || c.Rebuilds() != 4 {
		t.Fatal("Expected 4 inits, got", engine.inits, c.Rebuilds())
	}
}

func TestReinitPolicy(t *testing.T) {
	engine := newCounting(t)
	c := New(engine, Reinit)
	defer c.Close()

	for i := 0; i < 3; i++ {
		rebuilt, err := c.Ensure(key(7))
		if err != nil {
			t.Fatal(err)
		}
		if !rebuilt {
			t.Fatal("Reinit policy skipped a rebuild")
		}
	}
	if engine.inits != 3 {
		t.Fatal("Expected 3 inits, got", engine.inits)
	}
}

func TestFailedRebuildEmptiesCache(t *testing.T) {
	engine := newCounting(t)
	c := New(engine, Cached)
	defer c.Close()

	if _, err := c.Ensure(key(1)); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	engine.fail = boom
	_, err := c.Ensure(key(2))
	var cerr *crypto.CipherError
	if !errors.As(err, &cerr) || !errors.Is(err, boom) {
		t.Fatal("expected the engine error, got", err)
	}
	if _, ok := c.Key(); ok {
		t.Fatal("Cache still claims a key after a failed rebuild")
	}
	if c.Encrypter() != nil || c.Decrypter() != nil {
		t.Fatal("Contexts survived a failed rebuild")
	}

	// the same key that was loaded before must rebuild now
	engine.fail = nil
	rebuilt, err := c.Ensure(key(1))
	if err != nil {
		t.Fatal(err)
	}
	if !rebuilt {
		t.Fatal("Empty cache reused a context")
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{Cached, Reinit} {
		got, err := ParsePolicy(p.String())
		if err != nil || got != p {
			t.Fatal("ParsePolicy failed for", p)
		}
	}
	if _, err := ParsePolicy("sometimes"); !errors.Is(err, ErrPolicy) {
		t.Fatal("expected ErrPolicy, got", err)
	}
}

func TestKeyBytes(t *testing.T) {
	c := New(newCounting(t), Cached)
	if c.KeyBytes() != nil {
		t.Fatal("Empty cache returned key storage")
	}
	if _, err := c.Ensure(key(3)); err != nil {
		t.Fatal(err)
	}
	b := c.KeyBytes()
	if len(b) != wire.KeySize || b[0] != 3 {
		t.Fatal("Wrong key storage:", b)
	}

	c.Close()
	if c.KeyBytes() != nil {
		t.Fatal("Closed cache returned key storage")
	}
	if b[0] != 0 {
		t.Fatal("Close didn't zero the key")
	}
}
