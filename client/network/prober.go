package network

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/malcolmseyd/timing-oracle/wire"
)

// Prober sends requests to one oracle and waits for the matching response.
// It is not safe for concurrent use.
type Prober struct {
	conn      *net.UDPConn
	timeout   time.Duration
	blockSize int
	buf       []byte
}

// Dial connects a Prober to server. blockSize is the oracle's cipher block
// size, which is needed to find the IV in responses.
func Dial(server Server, blockSize int, timeout time.Duration) (*Prober, error) {
	conn, err := net.DialUDP("udp4", nil, server.UDPAddr())
	if err != nil {
		return nil, err
	}
	return &Prober{
		conn:      conn,
		timeout:   timeout,
		blockSize: blockSize,
		buf:       make([]byte, 65535),
	}, nil
}

// LocalAddr is the address requests are sent from
func (p *Prober) LocalAddr() *net.UDPAddr {
	return p.conn.LocalAddr().(*net.UDPAddr)
}

// Probe sends one request and returns the response along with the round trip
// time. Responses to earlier requests that arrive late are skipped. The
// response aliases the Prober's buffer until the next call.
func (p *Prober) Probe(req *wire.Request) (resp wire.Response, rtt time.Duration, err error) {
	packet, err := wire.Encode(req)
	if err != nil {
		return
	}

	start := time.Now()
	deadline := start.Add(p.timeout)
	if err = p.conn.SetReadDeadline(deadline); err != nil {
		return
	}
	if _, err = p.conn.Write(packet); err != nil {
		return
	}

	for {
		var n int
		n, err = p.conn.Read(p.buf)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return resp, 0, fmt.Errorf("client/network: no response to request %d after %v: %w", req.ID, p.timeout, err)
		}
		if err != nil {
			return
		}
		rtt = time.Since(start)

		resp = wire.Response{BlockSize: p.blockSize}
		if err = resp.DecodeFromBytes(p.buf[:n], gopacket.NilDecodeFeedback); err != nil {
			return
		}
		if resp.ID == req.ID {
			return resp, rtt, nil
		}
		// stale answer, keep waiting
	}
}

// Close closes the socket
func (p *Prober) Close() error {
	return p.conn.Close()
}
