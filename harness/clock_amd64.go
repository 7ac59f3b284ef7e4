package harness

import "github.com/malcolmseyd/timing-oracle/wire"

// tscClock puts the cycle count in Sec and TSC_AUX in Nsec. A different Nsec
// in the two timestamps of a sample means the thread migrated mid window.
type tscClock struct{}

func cycleClock() (Clock, bool) { return tscClock{}, true }

func (tscClock) Now() wire.Timestamp {
	cycles, aux := rdtscp()
	return wire.Timestamp{Sec: cycles, Nsec: aux}
}

func (tscClock) Name() string { return "cycles" }
