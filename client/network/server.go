package network

import (
	"net"
)

// Server stores data relating to the oracle
type Server struct {
	Hostname string
	Addr     *net.IPAddr
	Port     uint16
}

// NewServer creates a new Server struct from the specified hostname and port
func NewServer(hostname string, port uint16) (Server, error) {
	serverAddr, err := HostToAddr(hostname)
	if err != nil {
		return Server{}, err
	}

	return Server{
		Hostname: hostname,
		Addr:     serverAddr,
		Port:     port,
	}, nil
}

// UDPAddr is the oracle's socket address
func (s Server) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: s.Addr.IP, Port: int(s.Port)}
}
