package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/malcolmseyd/timing-oracle/crypto"
	"github.com/ogier/pflag"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := parseArgs(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		// usage is already printed
		os.Exit(0)
	}
	if err != nil {
		Fatalln(err)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if cfg.cpu >= 0 {
		// the measurement loop runs on this goroutine, keep it on one core
		if err := pinCPU(cfg.cpu); err != nil {
			Fatalln("Error pinning to CPU", cfg.cpu, err)
		}
		log.WithField("cpu", cfg.cpu).Debug("Pinned to CPU")
	}

	engine, err := crypto.Lookup(cfg.cipher)
	if err != nil {
		Fatalln(err)
	}

	s := newState(os.Stdout, log)
	if err := s.init(cfg, engine); err != nil {
		Fatalln("Error setting up the server:", err)
	}

	fmt.Println("Starting timing oracle on port", s.conn.Port())
	fmt.Printf("Cipher: %s (%d byte blocks), policy %s, clock %s\n",
		engine.Name(), engine.BlockSize(), cfg.policy, s.harness.Clock().Name())
	fmt.Println("Cache flush:", s.flushInfo)
	logBroadcastAddrs(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	err = s.serve(ctx, hup)
	s.close()
	if errors.Is(err, context.Canceled) {
		fmt.Println("Shutting down")
		return
	}
	reportFatal(err)
	os.Exit(1)
}

// reportFatal prints err along with the OS error number when there is one
func reportFatal(err error) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		Eprintf("Error handling the connection: %v (errno %d)\n", err, int(errno))
		return
	}
	Eprintln("Error handling the connection:", err)
}
