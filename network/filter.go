package network

import (
	"github.com/malcolmseyd/timing-oracle/wire"
	"golang.org/x/net/bpf"
	"golang.org/x/net/ipv4"
)

// socket filters on UDP sockets see the UDP header in front of the payload
const udpHeaderLen = 8

// runtFilter accepts datagrams that can hold a request header and drops the
// rest before they wake the server up.
func runtFilter() ([]bpf.RawInstruction, error) {
	return bpf.Assemble([]bpf.Instruction{
		bpf.LoadExtension{Num: bpf.ExtLen},
		bpf.JumpIf{Cond: bpf.JumpGreaterOrEqual, Val: udpHeaderLen + wire.RequestHeaderSize, SkipTrue: 1},
		bpf.RetConstant{Val: 0},            // drop packet
		bpf.RetConstant{Val: 1<<(8*4) - 1}, // entire packet
	})
}

// FilterRunts attaches runtFilter to the socket. Not every platform supports
// socket filters; the error says so.
func (c *Conn) FilterRunts() error {
	if c.conn == nil {
		return &TransportError{Op: "filter", Err: ErrClosed}
	}
	prog, err := runtFilter()
	if err != nil {
		return &TransportError{Op: "filter", Err: err}
	}
	if err := ipv4.NewPacketConn(c.conn).SetBPF(prog); err != nil {
		return &TransportError{Op: "filter", Err: err}
	}
	c.filtered = true
	return nil
}
