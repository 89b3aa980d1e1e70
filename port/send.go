package port

import (
	"fmt"

	"github.com/czietz/usbsting/dgram"
	"github.com/czietz/usbsting/packet/arp"
	"github.com/czietz/usbsting/packet/ethernet"
	"github.com/czietz/usbsting/packet/ipv4"
	"github.com/czietz/usbsting/trace"
)

// SendPending drains the stack's send queue.  Each datagram is either
// transmitted, dropped with a counted reason, or parked on the waiting
// queue until an ARP event resolves its target.
func (p *Port) SendPending() {
	if !p.active {
		return
	}
	for {
		dg := p.SendQueue.Dequeue()
		if dg == nil {
			return
		}
		p.stats.Send.Dequeued++
		n, err := p.processOutput(dg)
		switch {
		case err != nil:
			p.stats.Dropped++
			p.log.Debugf("dropped outbound datagram to %s: %v", dg.Header.Dst, err)
		case n == 0:
			// accepted but unresolved; processARP drains this
			// queue whenever new ARP information shows up
			p.arpwait.Enqueue(dg)
			p.stats.ARP.WaitQueued++
		default:
			p.stats.SentBytes += uint64(n)
		}
	}
}

// processOutput decides deliverability of one datagram.
// Returns (n, nil) with n > 0 when the datagram went out on the wire,
// (0, nil) when it is valid but its target is not yet resolved, and
// (0, err) when it was rejected; the error carries the reason already
// counted in the statistics.
func (p *Port) processOutput(dg *dgram.Datagram) (int, error) {
	if ethernet.HeaderSize+dg.Length() > ethernet.MaxFrameSize {
		p.stats.Send.BadLength++
		return 0, ErrBadLength
	}

	network := p.ipAddr & p.subnetMask
	dest := dg.Header.Dst.Uint32()

	// host part all-zeros or all-ones is not a unicast target
	host := dest &^ p.subnetMask
	if host == 0 || host == ^p.subnetMask {
		p.stats.Send.BadHost++
		return 0, ErrBadHost
	}

	var target uint32
	switch {
	case dest&p.subnetMask == network:
		target = dest
	case !dg.Gateway.IsZero() && dg.Gateway.Uint32()&p.subnetMask == network:
		target = dg.Gateway.Uint32()
	default:
		p.stats.Send.BadNetwork++
		return 0, ErrBadNetwork
	}

	hwaddr, ok := p.cache.Lookup(ipv4.AddressFromUint32(target))
	if !ok {
		// ask the network; failure to send the request is tolerated,
		// the datagram waits either way
		p.sendARPRequest(ipv4.AddressFromUint32(target))
		return 0, nil
	}

	header, err := dg.Header.Marshal()
	if err != nil {
		return 0, fmt.Errorf("marshal ip header: %w", err)
	}
	frame, ipLength, err := ethernet.BuildIPFrame(hwaddr, p.macAddr, header, dg.Options, dg.Payload)
	if err != nil {
		p.stats.Send.BadLength++
		return 0, err
	}
	if err := p.write(frame); err != nil {
		// transport failures are terminal here; retrying is the
		// business of higher layers
		return 0, err
	}
	p.stats.Send.IPPackets++
	return ipLength, nil
}

func (p *Port) sendARPRequest(target ipv4.IPAddress) {
	packet := arp.Request(p.macAddr, ipv4.AddressFromUint32(p.ipAddr), target)
	p.sendARP(ethernet.BroadcastAddress, packet)
}

func (p *Port) sendARP(dst ethernet.HardwareAddress, packet *arp.Packet) {
	payload, err := packet.Serialize()
	if err != nil {
		p.stats.Send.ARPPacketErrors++
		return
	}
	frame := ethernet.BuildRaw(dst, p.macAddr, ethernet.ETHER_TYPE_ARP, payload)
	p.stats.Send.ARPPackets++
	if err := p.write(frame); err != nil {
		p.stats.Send.ARPPacketErrors++
		p.log.Debugf("arp %s to %s failed: %v", packet.Header.OpCode, dst, err)
		return
	}
	p.stats.SentBytes += uint64(len(frame))
}

func (p *Port) write(frame []byte) error {
	p.stats.Write.TotalPackets++
	err := p.device.Send(frame)
	rc := len(frame)
	if err != nil {
		rc = -1
	}
	p.ring.Add(trace.OpWrite, rc, len(frame), frame)
	if err != nil {
		p.stats.Write.Failed++
		return err
	}
	return nil
}
