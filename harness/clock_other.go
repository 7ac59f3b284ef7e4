//go:build !amd64

package harness

func cycleClock() (Clock, bool) { return nil, false }
