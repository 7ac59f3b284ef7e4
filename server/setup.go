package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/malcolmseyd/timing-oracle/crypto"
	"github.com/malcolmseyd/timing-oracle/harness"
	"github.com/malcolmseyd/timing-oracle/keycache"
	"github.com/malcolmseyd/timing-oracle/network"
	"github.com/malcolmseyd/timing-oracle/wire"
	"github.com/ogier/pflag"
)

// ErrUsage is returned when the positional arguments are wrong
var ErrUsage = errors.New("server: incorrect program parameter: <PORT>")

type config struct {
	port      uint16
	policy    keycache.Policy
	cipher    string
	clock     string
	evictSize int
	selfCheck bool
	filter    bool
	cpu       int
	verbose   bool
}

func parseArgs(name string, args []string, output io.Writer) (cfg config, err error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() { printUsage(fs, name, output) }

	policy := fs.StringP("policy", "p", "cached", "when to rebuild the cipher: cached (on key change) or reinit (every request)")
	cipherName := fs.StringP("cipher", "c", crypto.DefaultCipher, "block cipher: "+strings.Join(crypto.Names(), ", "))
	clock := fs.String("clock", "wall", "timestamp source: wall, mono or cycles")
	evictSize := fs.Int("evict-size", harness.DefaultEvictSize, "bytes swept to evict the cache before each measurement, 0 to disable")
	noSelfCheck := fs.Bool("no-self-check", false, "skip decrypting each ciphertext after the measurement")
	filter := fs.Bool("kernel-filter", false, "drop datagrams too short to be requests in the kernel")
	cpu := fs.Int("cpu", -1, "pin the server to this CPU (Linux)")
	verbose := fs.BoolP("verbose", "v", false, "log debug information")

	if err = fs.Parse(args); err != nil {
		return
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return cfg, ErrUsage
	}

	port, err := strconv.ParseUint(fs.Arg(0), 10, 16)
	if err != nil {
		return cfg, fmt.Errorf("server: parsing port: %w", err)
	}
	cfg.port = uint16(port)

	cfg.policy, err = keycache.ParsePolicy(*policy)
	if err != nil {
		return
	}
	if _, err = crypto.Lookup(*cipherName); err != nil {
		return
	}
	if _, err = harness.NewClock(*clock); err != nil {
		return
	}
	if *evictSize < 0 {
		return cfg, fmt.Errorf("server: negative evict size %d", *evictSize)
	}

	cfg.cipher = *cipherName
	cfg.clock = *clock
	cfg.evictSize = *evictSize
	cfg.selfCheck = !*noSelfCheck
	cfg.filter = *filter
	cfg.cpu = *cpu
	cfg.verbose = *verbose
	return cfg, nil
}

func printUsage(fs *pflag.FlagSet, name string, output io.Writer) {
	fmt.Fprintln(output, "Usage: "+name+" [OPTION]... PORT")
	fmt.Fprintln(output, "Flags:")
	fs.PrintDefaults()
	fmt.Fprintln(output, "Example:")
	fmt.Fprintln(output, "    "+name+" --cipher aes --clock cycles 4000")
}

// init opens the socket and builds the cipher state. On error everything
// acquired so far is released.
func (s *state) init(cfg config, engine crypto.Engine) (err error) {
	clock, err := harness.NewClock(cfg.clock)
	if err != nil {
		return err
	}

	s.conn, err = network.Open(cfg.port)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	if cfg.filter {
		if err = s.conn.FilterRunts(); err != nil {
			return err
		}
	}

	s.cache = keycache.New(engine, cfg.policy)
	// start from the zero key so a zero key request is a steady state sample
	if _, err = s.cache.Ensure(wire.Key{}); err != nil {
		return err
	}

	flusher := harness.NewFlusher(cfg.evictSize)
	s.flushInfo = flusher.String()
	s.harness = harness.New(harness.Config{
		BlockSize: engine.BlockSize(),
		Clock:     clock,
		Flusher:   flusher,
		SelfCheck: cfg.selfCheck,
	})
	s.payload = make([]byte, wire.DataMaxSize)
	return nil
}
