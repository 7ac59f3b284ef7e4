package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/malcolmseyd/timing-oracle/antireplay"
	"github.com/malcolmseyd/timing-oracle/harness"
	"github.com/malcolmseyd/timing-oracle/keycache"
	"github.com/malcolmseyd/timing-oracle/network"
	"github.com/malcolmseyd/timing-oracle/wire"
	"github.com/sirupsen/logrus"
)

type state struct {
	conn    *network.Conn
	cache   *keycache.Cache
	harness *harness.Harness
	replay  antireplay.Window

	// payload receives request data, sized for the largest request
	payload   []byte
	flushInfo string

	// rebind is set before the socket is interrupted for a reopen
	rebind atomic.Bool

	out io.Writer
	log logrus.FieldLogger
}

func newState(out io.Writer, log logrus.FieldLogger) *state {
	return &state{out: out, log: log}
}

// serve answers requests until ctx is cancelled or an error that isn't
// scoped to a single datagram comes up. Signals on hup reopen the socket.
func (s *state) serve(ctx context.Context, hup <-chan os.Signal) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-ctx.Done():
				s.conn.Interrupt()
				return
			case <-hup:
				s.rebind.Store(true)
				s.conn.Interrupt()
			case <-done:
				return
			}
		}
	}()

	for {
		err := s.handleConnection()
		if err == nil {
			continue
		}

		var perr *network.ProtocolError
		if errors.As(err, &perr) {
			s.log.WithFields(logrus.Fields{"from": perr.From, "error": perr.Err}).Warn("Dropped request")
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var terr *network.TransportError
		if errors.As(err, &terr) && s.rebind.CompareAndSwap(true, false) {
			if err := s.conn.Reopen(); err != nil {
				return err
			}
			// a shutdown may have closed the old socket instead of this one
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.replay.Reset()
			s.log.WithField("port", s.conn.Port()).Info("Reopened socket")
			continue
		}
		return err
	}
}

// handleConnection serves exactly one request
func (s *state) handleConnection() error {
	req, err := s.conn.Receive(s.payload)
	if err != nil {
		return err
	}

	rebuilt, err := s.cache.Ensure(req.Key)
	if err != nil {
		return err
	}
	dup := s.replay.Seen(req.ID)

	sample, err := s.harness.Measure(s.cache.Encrypter(), s.cache.Decrypter(), s.cache.KeyBytes(), req.Payload)
	if err != nil {
		return err
	}

	resp := wire.Response{
		ID:         req.ID,
		Ciphertext: sample.Ciphertext,
		IV:         sample.IV,
		Inbound:    sample.Inbound,
		Outbound:   sample.Outbound,
	}
	if err := s.conn.Reply(&resp); err != nil {
		return err
	}

	s.printStatus(req, sample, rebuilt, dup)
	return nil
}

// printStatus writes one line per answered request. It runs after the
// reply so none of the formatting lands in the measurement window.
func (s *state) printStatus(req wire.Request, sample harness.Sample, rebuilt, dup bool) {
	fmt.Fprintf(s.out, "Packet Id: %d\t Data size: %d\t Key: % X\t IV: % X\t %s -> %s",
		req.ID, req.Length, req.Key[:], sample.IV, sample.Inbound, sample.Outbound)
	if rebuilt {
		fmt.Fprint(s.out, "\t rekey")
	}
	if dup {
		fmt.Fprint(s.out, "\t dup")
	}
	fmt.Fprintln(s.out)

	s.log.WithFields(logrus.Fields{
		"id":        req.ID,
		"from":      s.conn.Sender(),
		"encrypted": sample.Encrypted,
		"rebuilds":  s.cache.Rebuilds(),
	}).Debug("Answered request")
}

func (s *state) close() {
	if s.cache != nil {
		s.cache.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
