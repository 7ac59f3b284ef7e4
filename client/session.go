package main

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/malcolmseyd/timing-oracle/client/network"
	"github.com/malcolmseyd/timing-oracle/crypto"
	"github.com/malcolmseyd/timing-oracle/wire"
	"lukechampine.com/frand"
)

// Session drives one run of probes against an oracle
type Session struct {
	cfg    Config
	server network.Server
	engine crypto.Engine
	prober *network.Prober
	out    io.Writer
}

// Init connects to the server
func (s *Session) Init() error {
	var err error
	s.engine, err = crypto.Lookup(s.cfg.cipher)
	if err != nil {
		return err
	}
	s.prober, err = network.Dial(s.server, s.engine.BlockSize(), s.cfg.timeout)
	return err
}

// Run sends the configured number of requests and prints one line per
// response: id, ciphertext, iv, and the measured duration.
func (s *Session) Run() error {
	req := &wire.Request{Key: s.cfg.key}
	plaintext := s.cfg.data
	if plaintext == nil {
		plaintext = make([]byte, s.cfg.size)
	}

	for i := 0; i < s.cfg.count; i++ {
		req.ID = s.cfg.startID + uint32(i)
		if s.cfg.randomKey {
			frand.Read(req.Key[:])
		}
		if s.cfg.data == nil {
			frand.Read(plaintext)
		}
		req.Payload = plaintext

		resp, rtt, err := s.prober.Probe(req)
		if err != nil {
			return err
		}
		if s.cfg.verify {
			if err := s.verify(req, resp); err != nil {
				return err
			}
		}
		window, migrated := elapsed(s.cfg.clock, resp.Inbound, resp.Outbound)
		fmt.Fprintf(s.out, "%d\t%X\t%X\t%d\t%v", resp.ID, resp.Ciphertext, resp.IV, window, rtt)
		if migrated {
			fmt.Fprint(s.out, "\t migrated")
		}
		fmt.Fprintln(s.out)

		if s.cfg.delay > 0 && i+1 < s.cfg.count {
			time.Sleep(s.cfg.delay)
		}
	}
	return nil
}

// verify decrypts resp locally, it must give back the first block of the
// request's payload
func (s *Session) verify(req *wire.Request, resp wire.Response) error {
	_, dec, err := s.engine.Init(req.Key[:])
	if err != nil {
		return err
	}
	defer dec.Close()
	if err := dec.SetIV(resp.IV); err != nil {
		return err
	}
	decrypted, err := dec.Decrypt(nil, resp.Ciphertext)
	if err != nil {
		return fmt.Errorf("client: response %d doesn't decrypt: %w", resp.ID, err)
	}
	expected := req.Payload[:min(len(req.Payload), s.engine.BlockSize())]
	if !bytes.Equal(decrypted, expected) {
		return fmt.Errorf("client: response %d decrypted to %X, sent %X", resp.ID, decrypted, expected)
	}
	return nil
}

// Stop closes the connection
func (s *Session) Stop() error {
	if s.prober == nil {
		return nil
	}
	return s.prober.Close()
}

// elapsed is the measured window: nanoseconds for wall and mono timestamps,
// cycles for cycle timestamps. migrated reports a cycle sample whose two
// readings came from different CPUs, its count is not comparable.
func elapsed(clock string, inbound, outbound wire.Timestamp) (window int64, migrated bool) {
	if clock == "cycles" {
		return int64(outbound.Sec - inbound.Sec), inbound.Nsec != outbound.Nsec
	}
	return outbound.Sub(inbound), false
}
