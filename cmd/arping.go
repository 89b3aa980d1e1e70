package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/czietz/usbsting/packet/ipv4"
	"github.com/czietz/usbsting/port"
)

type ArpingCommand struct {
	iface   string
	typ     string
	addr    string
	mask    string
	timeout int
	debug   bool
}

func (a *ArpingCommand) Name() string {
	return "arping"
}

func (a *ArpingCommand) Synopsis() string {
	return "resolve a hardware address over ARP"
}

func (a *ArpingCommand) Usage() string {
	return `usbsting arping -i <interface> -addr <ip> <target>:
	broadcast an ARP request for the target and print the answer`
}

func (a *ArpingCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&a.iface, "i", "", "interface name")
	f.StringVar(&a.typ, "t", "", "transport type (afpacket or tap, probed when empty)")
	f.StringVar(&a.addr, "addr", "", "local IP address")
	f.StringVar(&a.mask, "mask", "255.255.255.0", "subnet mask")
	f.IntVar(&a.timeout, "timeout", 3, "seconds to wait for an answer")
	f.BoolVar(&a.debug, "debug", false, "enable debug logging")
}

func (a *ArpingCommand) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, a.Usage())
		return subcommands.ExitUsageError
	}
	target, err := ipv4.ParseAddress(f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	cfg, err := portConfig(a.addr, a.mask, 0, 0, 0, 0, a.debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	device, err := openTransport(a.iface, a.typ)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	p, err := port.Attach(device, cfg)
	if err != nil {
		device.Close()
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer p.Detach()
	p.SetState(true)

	deadline := time.Now().Add(time.Duration(a.timeout) * time.Second)
	for time.Now().Before(deadline) {
		if hwaddr, ok := p.Resolve(target); ok {
			fmt.Printf("%s is at %s\n", target, hwaddr)
			return subcommands.ExitSuccess
		}
		p.ReceivePending()
		time.Sleep(50 * time.Millisecond)
	}
	fmt.Fprintf(os.Stderr, "no answer from %s\n", target)
	return subcommands.ExitFailure
}

func portConfig(addr, mask string, mtu, ttl, cacheEntries, traceEntries int, debug bool) (port.Config, error) {
	cfg := port.Config{
		MTU:          mtu,
		CacheEntries: cacheEntries,
		TraceEntries: traceEntries,
		Debug:        debug,
	}
	if ttl > 0 {
		cfg.TTL = time.Duration(ttl) * time.Second
	}
	if addr == "" {
		return cfg, fmt.Errorf("a local IP address is required (-addr)")
	}
	ipaddr, err := ipv4.ParseAddress(addr)
	if err != nil {
		return cfg, err
	}
	subnet, err := ipv4.ParseAddress(mask)
	if err != nil {
		return cfg, err
	}
	cfg.IPAddr = ipaddr
	cfg.SubnetMask = subnet
	return cfg, nil
}
