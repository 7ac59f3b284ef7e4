package network

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNoSender is returned by Reply before anything has been received
	ErrNoSender = errors.New("network: no sender to reply to")
	// ErrBufferSize is returned when the caller's buffer can't hold the payload
	ErrBufferSize = errors.New("network: payload larger than buffer")
	// ErrClosed is returned when the Conn has no socket
	ErrClosed = errors.New("network: connection closed")
)

// TransportError is a socket failure. Err keeps the OS error, so
// errors.As(err, new(syscall.Errno)) recovers the code.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a datagram that can't be processed. Err wraps one of the
// wire errors or ErrBufferSize.
type ProtocolError struct {
	From net.Addr
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error from %v: %v", e.From, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
