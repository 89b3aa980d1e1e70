// Package port implements the network-layer glue of the Ethernet port
// driver: it turns outbound IP datagrams into frames, resolving
// destination hardware addresses over ARP, and turns inbound frames
// into datagrams for the IP layer, keeping the statistics surface
// current while it does so.
package port

import (
	"errors"
	"fmt"
	"time"

	"github.com/czietz/usbsting/arpcache"
	"github.com/czietz/usbsting/dgram"
	"github.com/czietz/usbsting/logger"
	"github.com/czietz/usbsting/packet/ethernet"
	"github.com/czietz/usbsting/packet/ipv4"
	"github.com/czietz/usbsting/trace"
	"github.com/czietz/usbsting/transport"
)

// Reject reasons for outbound datagrams.  All of them mean the
// datagram was dropped and counted, never retried.
var (
	ErrBadLength  = errors.New("datagram exceeds maximum frame size")
	ErrBadHost    = errors.New("destination host part is all-zeros or all-ones")
	ErrBadNetwork = errors.New("destination not reachable on this subnet")
)

const (
	DefaultMTU = 1500
	// DefaultTTL is the lifetime granted to datagrams parked on a
	// queue before dequeueing silently discards them.
	DefaultTTL = 30 * time.Second
)

type Config struct {
	IPAddr       ipv4.IPAddress
	SubnetMask   ipv4.IPAddress
	MTU          int
	TTL          time.Duration
	CacheEntries int
	// TraceEntries enables the operation trace ring when positive.
	TraceEntries int
	Debug        bool
}

// Port is the per-interface processing context.  The two stack-visible
// queues are exported: the host stack appends outbound datagrams to
// SendQueue and consumes inbound ones from RecvQueue.  Everything is
// driven from a single goroutine through SendPending and
// ReceivePending; the port itself never blocks.
type Port struct {
	SendQueue *dgram.Queue
	RecvQueue *dgram.Queue

	ipAddr     uint32
	subnetMask uint32
	mtu        int
	ttl        time.Duration
	hwAddr     ethernet.HardwareAddress // burned into the hardware
	macAddr    ethernet.HardwareAddress // current, override-able
	active     bool

	arpwait *dgram.Queue
	cache   *arpcache.Cache
	device  transport.Transport
	stats   Stats
	ring    *trace.Ring
	log     *logger.Logger
}

// Attach binds a port to its transport and reads the hardware address
// from the device.  The port starts inactive; SetState(true) brings it
// up.
func Attach(device transport.Transport, cfg Config) (*Port, error) {
	p := &Port{
		SendQueue:  &dgram.Queue{},
		RecvQueue:  &dgram.Queue{},
		arpwait:    &dgram.Queue{},
		ipAddr:     cfg.IPAddr.Uint32(),
		subnetMask: cfg.SubnetMask.Uint32(),
		mtu:        cfg.MTU,
		ttl:        cfg.TTL,
		cache:      arpcache.New(cfg.CacheEntries),
		device:     device,
		ring:       trace.NewRing(cfg.TraceEntries),
		log:        logger.New(cfg.Debug, "port"),
	}
	if p.mtu <= 0 {
		p.mtu = DefaultMTU
	}
	if p.ttl <= 0 {
		p.ttl = DefaultTTL
	}
	hwaddr, err := device.HardwareAddress()
	p.traceMACQuery(hwaddr, err)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", device.Name(), err)
	}
	p.hwAddr = hwaddr
	p.macAddr = hwaddr
	p.log.Infof("attached %s, hwaddr %s", device.Name(), hwaddr)
	return p, nil
}

func (p *Port) Name() string {
	return p.device.Name()
}

func (p *Port) Active() bool {
	return p.active
}

func (p *Port) IPAddress() ipv4.IPAddress {
	return ipv4.AddressFromUint32(p.ipAddr)
}

func (p *Port) SubnetMask() ipv4.IPAddress {
	return ipv4.AddressFromUint32(p.subnetMask)
}

func (p *Port) MTU() int {
	return p.mtu
}

// SetState brings the interface up or down.  Going down synchronously
// discards both stack-visible queues, so no partially drained state is
// ever observable.
func (p *Port) SetState(up bool) {
	if up {
		p.active = true
		return
	}
	p.active = false
	dropped := p.SendQueue.Drain() + p.RecvQueue.Drain()
	if dropped > 0 {
		p.log.Debugf("interface down, discarded %d queued datagrams", dropped)
	}
}

// Detach takes the interface down and releases the transport.
func (p *Port) Detach() error {
	p.SetState(false)
	return p.device.Close()
}
