package network

import (
	"errors"
	"net"

	"github.com/vishvananda/netlink"
)

// ErrNoIP is returned when no appropriate ip address could be found
var ErrNoIP = errors.New("client/network: no valid ip address found")

// GetClientIP gets the source ip address that will be used when sending data
// to dstIP
func GetClientIP(dstIP net.IP) (net.IP, error) {
	routes, err := netlink.RouteGet(dstIP)
	if err != nil {
		return nil, err
	}
	for _, route := range routes {
		if route.Src != nil {
			return route.Src, nil
		}
	}
	return nil, ErrNoIP
}

// HostToAddr resolves a hostname, whether DNS or IP to a valid net.IPAddr
func HostToAddr(hostStr string) (*net.IPAddr, error) {
	remoteAddrs, err := net.LookupHost(hostStr)
	if err != nil {
		return nil, err
	}

	for _, addrStr := range remoteAddrs {
		if remoteAddr, err := net.ResolveIPAddr("ip4", addrStr); err == nil {
			return remoteAddr, nil
		}
	}
	return nil, ErrNoIP
}
