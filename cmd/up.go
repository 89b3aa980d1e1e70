package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"github.com/czietz/usbsting/port"
	"github.com/czietz/usbsting/transport"
)

type UpCommand struct {
	iface        string
	typ          string
	addr         string
	mask         string
	mtu          int
	ttl          int
	cacheEntries int
	traceEntries int
	debug        bool
}

func (u *UpCommand) Name() string {
	return "up"
}

func (u *UpCommand) Synopsis() string {
	return "run the port driver on an interface"
}

func (u *UpCommand) Usage() string {
	return `usbsting up -i <interface> -addr <ip> [-mask <mask>] [-t afpacket|tap]:
	bring the port up and poll it until interrupted; prints the
	statistics report on shutdown`
}

func (u *UpCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&u.iface, "i", "", "interface name")
	f.StringVar(&u.typ, "t", "", "transport type (afpacket or tap, probed when empty)")
	f.StringVar(&u.addr, "addr", "", "local IP address")
	f.StringVar(&u.mask, "mask", "255.255.255.0", "subnet mask")
	f.IntVar(&u.mtu, "mtu", port.DefaultMTU, "interface mtu")
	f.IntVar(&u.ttl, "ttl", 30, "queued datagram lifetime in seconds")
	f.IntVar(&u.cacheEntries, "cache", 0, "arp cache capacity")
	f.IntVar(&u.traceEntries, "trace", 0, "trace ring size (0 disables tracing)")
	f.BoolVar(&u.debug, "debug", false, "enable debug logging")
}

func (u *UpCommand) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := u.attach()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer p.Detach()
	p.SetState(true)
	fmt.Printf("port up on %s (%s)\n", p.Name(), p.MACAddress())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sig:
			writeReport(os.Stdout, p)
			return subcommands.ExitSuccess
		case <-ticker.C:
			p.SendPending()
			p.ReceivePending()
		}
	}
}

func (u *UpCommand) attach() (*port.Port, error) {
	cfg, err := portConfig(u.addr, u.mask, u.mtu, u.ttl, u.cacheEntries, u.traceEntries, u.debug)
	if err != nil {
		return nil, err
	}
	device, err := openTransport(u.iface, u.typ)
	if err != nil {
		return nil, err
	}
	p, err := port.Attach(device, cfg)
	if err != nil {
		device.Close()
		return nil, err
	}
	return p, nil
}

func openTransport(name, typ string) (transport.Transport, error) {
	if name == "" {
		return nil, fmt.Errorf("an interface name is required (-i)")
	}
	if typ == "" {
		return transport.Probe(name)
	}
	return transport.New(name, typ)
}
