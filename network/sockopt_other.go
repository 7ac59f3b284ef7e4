//go:build !unix

package network

import "syscall"

// broadcast isn't enabled here, the oracle only answers unicast requests.
func enableBroadcast(network, address string, rc syscall.RawConn) error {
	return nil
}
