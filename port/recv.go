package port

import (
	"fmt"

	"github.com/czietz/usbsting/dgram"
	"github.com/czietz/usbsting/packet/arp"
	"github.com/czietz/usbsting/packet/ethernet"
	"github.com/czietz/usbsting/packet/ipv4"
	"github.com/czietz/usbsting/trace"
)

// ReceivePending pulls frames from the transport until it reports
// nothing pending or fails, classifying each by protocol type.  IP
// frames become datagrams on the receive queue; ARP frames update the
// cache and drive the resolution engine.
func (p *Port) ReceivePending() {
	if !p.active {
		return
	}
	buf := make([]byte, ethernet.MaxFrameSize)
	for {
		n, err := p.read(buf)
		if err != nil {
			p.log.Debugf("device read failed: %v", err)
			return
		}
		if n == 0 {
			return
		}
		p.stats.Receive.TotalPackets++
		if p.dispatch(buf[:n]) {
			p.stats.ReceivedBytes += uint64(n)
		} else {
			p.stats.Dropped++
		}
	}
}

// dispatch classifies one frame and reports whether it was accepted.
func (p *Port) dispatch(raw []byte) bool {
	frame, err := ethernet.New(raw)
	if err != nil {
		p.stats.Receive.BadPackets++
		return false
	}
	switch frame.Type() {
	case ethernet.ETHER_TYPE_IP:
		p.stats.Receive.GoodPackets++
		if frame.Header.Dst.IsBroadcast() {
			// link-layer broadcast IP is counted and ignored
			p.stats.Process.BroadcastIPPackets++
			return true
		}
		p.stats.Process.NormalIPPackets++
		if err := p.processIP(frame, len(raw)); err != nil {
			p.stats.Process.BadIPPackets++
			p.log.Debugf("bad ip packet: %v", err)
			return false
		}
		return true
	case ethernet.ETHER_TYPE_ARP:
		p.stats.Receive.GoodPackets++
		p.stats.Process.ARPPackets++
		if err := p.processARP(frame.Payload()); err != nil {
			p.stats.Process.BadARPPackets++
			p.log.Debugf("bad arp packet: %v", err)
			return false
		}
		return true
	default:
		p.stats.Receive.BadPackets++
		return false
	}
}

// processIP validates one inbound IP frame and queues it for the IP
// layer.
func (p *Port) processIP(frame *ethernet.Frame, frameLength int) error {
	if frameLength < ethernet.MinFrameSize || frameLength > ethernet.MaxFrameSize {
		return fmt.Errorf("frame length out of bounds (%d)", frameLength)
	}
	data := frame.Payload()
	header, err := ipv4.ParseHeader(data)
	if err != nil {
		return err
	}
	if int(header.Length) > frameLength {
		return fmt.Errorf("ip length %d exceeds frame length %d", header.Length, frameLength)
	}
	if int(header.Length) > len(data) {
		return fmt.Errorf("ip length %d exceeds frame payload %d", header.Length, len(data))
	}
	headerLength := header.HeaderLength()
	if headerLength < ipv4.HeaderSize || headerLength > int(header.Length) {
		return fmt.Errorf("bad ip header length %d", headerLength)
	}

	dg := dgram.New(*header, data[ipv4.HeaderSize:headerLength], data[headerLength:header.Length])
	dg.SetTTL(p.ttl)
	p.RecvQueue.Enqueue(dg)
	return nil
}

// processARP handles one inbound ARP packet: learn, answer if it asks
// for us, then retry everything waiting on resolution.
func (p *Port) processARP(payload []byte) error {
	packet, err := arp.New(payload)
	if err != nil {
		p.stats.ARP.InputErrors++
		return err
	}
	if err := packet.Validate(); err != nil {
		p.stats.ARP.InputErrors++
		return err
	}
	opcode := packet.Header.OpCode
	if opcode != arp.ARP_REQUEST && opcode != arp.ARP_REPLY {
		p.stats.ARP.OpcodeErrors++
		return fmt.Errorf("unsupported arp opcode %d", opcode)
	}

	// learn from any ARP traffic we see, addressed to us or not;
	// this saves requests of our own later
	p.cache.Update(packet.SourceProtocolAddress, packet.SourceHardwareAddress)

	if packet.TargetProtocolAddress.Uint32() == p.ipAddr {
		if opcode == arp.ARP_REQUEST {
			p.stats.ARP.RequestsReceived++
			reply := arp.Reply(p.macAddr, ipv4.AddressFromUint32(p.ipAddr),
				packet.SourceHardwareAddress, packet.SourceProtocolAddress)
			p.sendARP(packet.SourceHardwareAddress, reply)
		} else {
			p.stats.ARP.AnswersReceived++
		}
	}

	p.drainWaiting()
	return nil
}

// drainWaiting re-runs resolution for everything parked on the waiting
// queue.  Datagrams that still miss are collected on a fresh queue
// which then replaces the waiting queue, so one ARP event costs exactly
// one pass over the backlog and the unresolved keep their FIFO order.
func (p *Port) drainWaiting() {
	requeue := &dgram.Queue{}
	for {
		dg := p.arpwait.Dequeue()
		if dg == nil {
			break
		}
		p.stats.ARP.WaitDequeued++
		n, err := p.processOutput(dg)
		switch {
		case err != nil:
			p.stats.Dropped++
			p.log.Debugf("dropped waiting datagram to %s: %v", dg.Header.Dst, err)
		case n == 0:
			requeue.Enqueue(dg)
			p.stats.ARP.WaitRequeued++
		default:
			p.stats.SentBytes += uint64(n)
		}
	}
	p.arpwait = requeue
}

func (p *Port) read(buf []byte) (int, error) {
	p.stats.Read.TotalPackets++
	n, err := p.device.Recv(buf)
	rc := n
	if err != nil {
		rc = -1
	}
	if rc != 0 {
		p.ring.Add(trace.OpRead, rc, n, buf[:n])
	}
	if err != nil {
		p.stats.Read.Failed++
		return 0, err
	}
	return n, nil
}
