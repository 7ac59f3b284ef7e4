package network

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/google/gopacket"
	"github.com/malcolmseyd/timing-oracle/wire"
)

// Conn is the oracle's UDP endpoint. It remembers only the sender of the
// most recent datagram, and replies always go there.
type Conn struct {
	port uint16
	// mu guards swapping conn against Interrupt from other goroutines
	mu       sync.Mutex
	conn     *net.UDPConn
	sender   *net.UDPAddr
	filtered bool

	recv []byte
	send gopacket.SerializeBuffer
}

// Open binds a broadcast enabled UDP socket on 0.0.0.0:port. Port 0 picks a
// free port, see Port.
func Open(port uint16) (*Conn, error) {
	c := &Conn{
		port: port,
		recv: make([]byte, wire.RequestMaxSize),
		send: gopacket.NewSerializeBuffer(),
	}
	if err := c.bind(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conn) bind() error {
	lc := net.ListenConfig{Control: enableBroadcast}
	// the protocol is IPv4 only, like the socket it replaces
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf("0.0.0.0:%d", c.port))
	if err != nil {
		return &TransportError{Op: "bind", Err: err}
	}
	c.mu.Lock()
	c.conn = pc.(*net.UDPConn)
	c.mu.Unlock()
	c.port = uint16(c.conn.LocalAddr().(*net.UDPAddr).Port)
	return nil
}

// Port is the bound UDP port
func (c *Conn) Port() uint16 { return c.port }

// LocalAddr is the bound address, nil when closed
func (c *Conn) LocalAddr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

// Sender is the address of the most recent datagram
func (c *Conn) Sender() *net.UDPAddr { return c.sender }

// Receive blocks for one datagram and copies its payload into buf. The
// declared length is checked against wire.DataMaxSize and len(buf) before
// anything is copied. Malformed datagrams give a *ProtocolError and the
// caller may keep receiving; socket failures give a *TransportError.
func (c *Conn) Receive(buf []byte) (wire.Request, error) {
	if c.conn == nil {
		return wire.Request{}, &TransportError{Op: "receive", Err: ErrClosed}
	}
	n, addr, err := c.conn.ReadFromUDP(c.recv)
	if err != nil {
		return wire.Request{}, &TransportError{Op: "receive", Err: err}
	}
	c.sender = addr

	var req wire.Request
	if err := req.DecodeFromBytes(c.recv[:n], gopacket.NilDecodeFeedback); err != nil {
		return wire.Request{}, &ProtocolError{From: addr, Err: err}
	}
	if req.Length > uint64(len(buf)) {
		return wire.Request{}, &ProtocolError{
			From: addr,
			Err:  fmt.Errorf("%w: %w: %d > %d", wire.ErrOversize, ErrBufferSize, req.Length, len(buf)),
		}
	}
	copy(buf, req.Payload)
	req.Payload = buf[:req.Length]
	return req, nil
}

// Reply sends resp to the sender of the last datagram.
func (c *Conn) Reply(resp *wire.Response) error {
	if c.conn == nil {
		return &TransportError{Op: "reply", Err: ErrClosed}
	}
	if c.sender == nil {
		return &TransportError{Op: "reply", Err: ErrNoSender}
	}
	if err := c.send.Clear(); err != nil {
		return &TransportError{Op: "reply", Err: err}
	}
	if err := resp.SerializeTo(c.send, gopacket.SerializeOptions{}); err != nil {
		return &TransportError{Op: "reply", Err: err}
	}
	if _, err := c.conn.WriteToUDP(c.send.Bytes(), c.sender); err != nil {
		return &TransportError{Op: "reply", Err: err}
	}
	return nil
}

// Interrupt closes the socket without touching any other state, which makes
// a Receive blocked in another goroutine return. Follow it with Close or
// Reopen from the receiving goroutine.
func (c *Conn) Interrupt() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Close releases the socket and forgets the sender.
func (c *Conn) Close() error {
	c.sender = nil
	if c.conn == nil {
		return nil
	}
	c.mu.Lock()
	err := c.conn.Close()
	c.conn = nil
	c.mu.Unlock()
	if err != nil && !isClosed(err) {
		return &TransportError{Op: "close", Err: err}
	}
	return nil
}

// Reopen replaces the socket with a fresh one bound to the same port. The
// kernel filter is attached again if it was on.
func (c *Conn) Reopen() error {
	if err := c.Close(); err != nil {
		return err
	}
	if err := c.bind(); err != nil {
		return err
	}
	if c.filtered {
		return c.FilterRunts()
	}
	return nil
}
