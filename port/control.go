package port

import (
	"github.com/czietz/usbsting/arpcache"
	"github.com/czietz/usbsting/packet/ethernet"
	"github.com/czietz/usbsting/packet/ipv4"
	"github.com/czietz/usbsting/trace"
	"github.com/czietz/usbsting/transport"
)

// The control surface: statistics, cache and trace inspection, MAC
// management.  Pure observation plus explicit clears; none of it
// affects the datapath.

func (p *Port) Stats() Stats {
	return p.stats
}

func (p *Port) ClearStats() {
	p.stats = Stats{}
}

// ARPEntries snapshots the cache contents in insertion order.
func (p *Port) ARPEntries() []arpcache.Entry {
	return p.cache.Entries()
}

func (p *Port) ARPCount() int {
	return p.cache.Count()
}

func (p *Port) ARPCapacity() int {
	return p.cache.Capacity()
}

func (p *Port) ClearARPCache() {
	p.cache.Reset()
}

// Waiting reports how many datagrams sit on the resolution queue.
func (p *Port) Waiting() int {
	return p.arpwait.Len()
}

// MACAddress asks the hardware for its current address first and falls
// back to the last known value when the query fails.
func (p *Port) MACAddress() ethernet.HardwareAddress {
	hwaddr, err := p.device.HardwareAddress()
	p.traceMACQuery(hwaddr, err)
	if err == nil {
		p.macAddr = hwaddr
	}
	return p.macAddr
}

// HardwareAddress is the address read from the device at attach time.
func (p *Port) HardwareAddress() ethernet.HardwareAddress {
	return p.hwAddr
}

// SetMAC overrides the address used as source on outgoing frames.
func (p *Port) SetMAC(hwaddr ethernet.HardwareAddress) {
	p.macAddr = hwaddr
}

func (p *Port) Trace() []trace.Record {
	return p.ring.Records()
}

func (p *Port) TraceCapacity() int {
	return p.ring.Cap()
}

func (p *Port) ClearTrace() {
	p.ring.Clear()
}

// Resolve reports the hardware address for ip when it is already
// cached, otherwise it broadcasts an ARP request and reports a miss.
// Callers poll again after feeding ReceivePending.
func (p *Port) Resolve(ip ipv4.IPAddress) (ethernet.HardwareAddress, bool) {
	if hwaddr, ok := p.cache.Lookup(ip); ok {
		return hwaddr, true
	}
	if p.active {
		p.sendARPRequest(ip)
	}
	return ethernet.HardwareAddress{}, false
}

// SupportedHardware lists the transport variants a port can attach to.
func SupportedHardware() []string {
	return transport.Supported()
}

func (p *Port) traceMACQuery(hwaddr ethernet.HardwareAddress, err error) {
	rc := 0
	if err != nil {
		rc = -1
	}
	p.ring.Add(trace.OpMACGet, rc, len(hwaddr), hwaddr.Bytes())
}
