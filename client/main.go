package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/malcolmseyd/timing-oracle/client/network"
	"github.com/malcolmseyd/timing-oracle/client/util"
	"github.com/ogier/pflag"
)

func main() {
	var err error
	sess := Session{out: os.Stdout}

	sess.cfg, err = parseConfig(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		// usage is already printed
		os.Exit(0)
	}
	if err != nil {
		util.Fatalln(err)
	}
	sess.server, err = network.NewServer(sess.cfg.hostname, sess.cfg.port)
	if err != nil {
		util.Fatalln("Error configuring server:", err)
	}

	if err := sess.Init(); err != nil {
		util.Fatalln("Error connecting to server:", err)
	}
	defer func() {
		if err := sess.Stop(); err != nil {
			util.Eprintln("Error stopping session:", err)
		}
	}()

	src, err := network.GetClientIP(sess.server.Addr.IP)
	if err != nil {
		// the socket knows its own address even when the route lookup fails
		src = sess.prober.LocalAddr().IP
	}
	fmt.Printf("Probing %s (%s:%d) from %s\n", sess.server.Hostname, sess.server.Addr.IP, sess.server.Port, src)

	if err := sess.Run(); err != nil {
		util.Eprintln("Error probing:", err)
		sess.Stop()
		os.Exit(1)
	}
}
