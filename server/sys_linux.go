package main

import (
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// pinCPU locks the calling goroutine to its thread and the thread to cpu
func pinCPU(cpu int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}

// logBroadcastAddrs lists the IPv4 broadcast addresses the socket answers on
func logBroadcastAddrs(log logrus.FieldLogger) {
	addrs, err := netlink.AddrList(nil, netlink.FAMILY_V4)
	if err != nil {
		log.WithError(err).Debug("Couldn't list interface addresses")
		return
	}
	for _, addr := range addrs {
		if addr.Broadcast == nil || addr.IPNet == nil {
			continue
		}
		log.WithFields(logrus.Fields{
			"iface":     addr.Label,
			"addr":      addr.IPNet.String(),
			"broadcast": addr.Broadcast.String(),
		}).Info("Reachable by broadcast")
	}
}
