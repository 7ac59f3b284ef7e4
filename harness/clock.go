package harness

import (
	"errors"
	"fmt"
	"time"

	"github.com/malcolmseyd/timing-oracle/wire"
)

// ErrClock is returned by NewClock for an unknown clock name
var ErrClock = errors.New("harness: unknown clock")

// Clock produces the timestamps that bracket the encryption.
type Clock interface {
	Now() wire.Timestamp
	Name() string
}

// NewClock returns the clock called name: "wall", "mono" or "cycles".
// "cycles" falls back to "mono" on targets without a cycle counter, check
// Name() to see what you got.
func NewClock(name string) (Clock, error) {
	switch name {
	case "wall":
		return WallClock(), nil
	case "mono":
		return MonoClock(), nil
	case "cycles":
		if c, ok := cycleClock(); ok {
			return c, nil
		}
		return MonoClock(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrClock, name)
}

type wallClock struct{}

// WallClock reads the system clock as unix seconds and nanoseconds, the same
// numbers a timespec would hold.
func WallClock() Clock { return wallClock{} }

func (wallClock) Now() wire.Timestamp {
	t := time.Now()
	return wire.Timestamp{Sec: uint64(t.Unix()), Nsec: uint64(t.Nanosecond())}
}

func (wallClock) Name() string { return "wall" }

type monoClock struct {
	base time.Time
}

// MonoClock reads the monotonic clock relative to its creation. Unlike the
// wall clock it never steps backwards.
func MonoClock() Clock { return monoClock{base: time.Now()} }

func (c monoClock) Now() wire.Timestamp {
	d := time.Since(c.base)
	return wire.Timestamp{Sec: uint64(d / time.Second), Nsec: uint64(d % time.Second)}
}

func (monoClock) Name() string { return "mono" }
