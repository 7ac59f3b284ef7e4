package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/malcolmseyd/timing-oracle/crypto"
	"github.com/malcolmseyd/timing-oracle/wire"
	"github.com/ogier/pflag"
)

var (
	// ErrUsage is returned when the positional arguments are wrong
	ErrUsage = errors.New("client: expected exactly one SERVER_HOSTNAME:PORT")
	// ErrKeyFormat is returned when the key isn't 16 bytes of hex
	ErrKeyFormat = errors.New("client: key must be 32 hex digits")
	// ErrClock is returned for a clock the server doesn't have
	ErrClock = errors.New("client: unknown clock")
)

// Config stores values related to program configuration
type Config struct {
	count   int
	startID uint32
	delay   time.Duration
	timeout time.Duration

	// key is used for every request unless randomKey is set
	key       wire.Key
	randomKey bool
	// data is sent as is when set, otherwise size random bytes
	data []byte
	size int

	cipher string
	verify bool
	// clock is the server's --clock, it decides how windows are read
	clock string

	hostname string
	port     uint16
}

func parseConfig(name string, args []string, output io.Writer) (config Config, err error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() { printUsage(fs, name, output) }

	count := fs.IntP("count", "n", 1, "number of requests to send")
	startID := fs.Uint("id", 1, "request id of the first request, incremented for each one after")
	delay := fs.Float64P("delay", "d", 0, "time to wait between requests (in seconds)")
	timeout := fs.Float64P("timeout", "t", 2.0, "time to wait for each response (in seconds)")
	keyHex := fs.StringP("key", "k", strings.Repeat("00", wire.KeySize), "cipher key as hex, or \"random\" for a new key per request")
	dataHex := fs.String("data", "", "plaintext as hex, overrides --size")
	size := fs.IntP("size", "s", 16, "number of random plaintext bytes per request")
	cipherName := fs.StringP("cipher", "c", crypto.DefaultCipher, "the oracle's cipher: "+strings.Join(crypto.Names(), ", "))
	clock := fs.String("clock", "wall", "the oracle's clock: wall, mono or cycles")
	verify := fs.Bool("verify", false, "decrypt each response locally and compare with the plaintext")

	if err = fs.Parse(args); err != nil {
		return
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return config, ErrUsage
	}

	host, portStr, err := net.SplitHostPort(fs.Arg(0))
	if err != nil {
		return config, fmt.Errorf("client: please include a port like this: HOST:PORT: %w", err)
	}
	// ParseUint can be safely cast to uint16 because of the last argument
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return config, fmt.Errorf("client: parsing server port: %w", err)
	}
	config.hostname = host
	config.port = uint16(port)

	if *keyHex == "random" {
		config.randomKey = true
	} else {
		key, err := hex.DecodeString(*keyHex)
		if err != nil || len(key) != wire.KeySize {
			return config, ErrKeyFormat
		}
		copy(config.key[:], key)
	}

	if *dataHex != "" {
		config.data, err = hex.DecodeString(*dataHex)
		if err != nil {
			return config, fmt.Errorf("client: parsing data: %w", err)
		}
	}
	config.size = *size
	if len(config.data) > wire.DataMaxSize || config.size < 0 || config.size > wire.DataMaxSize {
		return config, fmt.Errorf("client: plaintext must be 0 to %d bytes", wire.DataMaxSize)
	}

	if _, err = crypto.Lookup(*cipherName); err != nil {
		return
	}
	switch *clock {
	case "wall", "mono", "cycles":
	default:
		return config, fmt.Errorf("%w: %q", ErrClock, *clock)
	}
	if *count < 1 || *timeout <= 0 || *delay < 0 {
		return config, errors.New("client: count and timeout must be positive")
	}

	config.count = *count
	config.startID = uint32(*startID)
	config.delay = time.Duration(*delay * float64(time.Second))
	config.timeout = time.Duration(*timeout * float64(time.Second))
	config.cipher = *cipherName
	config.clock = *clock
	config.verify = *verify
	return config, nil
}

func printUsage(fs *pflag.FlagSet, name string, output io.Writer) {
	fmt.Fprintln(output, "Usage: "+name+" [OPTION]... SERVER_HOSTNAME:PORT")
	fmt.Fprintln(output, "Flags:")
	fs.PrintDefaults()
	fmt.Fprintln(output, "Example:")
	fmt.Fprintln(output, "    "+name+" -n 1000 --key random --size 16 oracle.example.com:4000")
}
