//go:build !linux

package main

import (
	"errors"

	"github.com/sirupsen/logrus"
)

var errNoAffinity = errors.New("server: cpu pinning is only supported on linux")

func pinCPU(cpu int) error {
	return errNoAffinity
}

func logBroadcastAddrs(log logrus.FieldLogger) {
	log.Debug("Broadcast address listing is only supported on linux")
}
