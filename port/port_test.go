package port

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/czietz/usbsting/dgram"
	"github.com/czietz/usbsting/packet/arp"
	"github.com/czietz/usbsting/packet/ethernet"
	"github.com/czietz/usbsting/packet/ipv4"
	"github.com/czietz/usbsting/trace"
)

var (
	ourHW  = ethernet.HardwareAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	peerHW = ethernet.HardwareAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	ourIP  = ipv4.IPAddress{192, 168, 0, 10}
	peerIP = ipv4.IPAddress{192, 168, 0, 20}
	mask   = ipv4.IPAddress{255, 255, 255, 0}
)

type mockTransport struct {
	sent    [][]byte
	pending [][]byte
	hwaddr  ethernet.HardwareAddress
	sendErr error
	recvErr error
}

func (m *mockTransport) Name() string { return "mock0" }

func (m *mockTransport) Send(frame []byte) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	m.sent = append(m.sent, cp)
	return nil
}

func (m *mockTransport) Recv(buf []byte) (int, error) {
	if len(m.pending) == 0 {
		if m.recvErr != nil {
			return 0, m.recvErr
		}
		return 0, nil
	}
	frame := m.pending[0]
	m.pending = m.pending[1:]
	return copy(buf, frame), nil
}

func (m *mockTransport) HardwareAddress() (ethernet.HardwareAddress, error) {
	return m.hwaddr, nil
}

func (m *mockTransport) Close() error { return nil }

func (m *mockTransport) deliver(frame []byte) {
	m.pending = append(m.pending, frame)
}

func newTestPort(t *testing.T) (*Port, *mockTransport) {
	t.Helper()
	device := &mockTransport{hwaddr: ourHW}
	p, err := Attach(device, Config{
		IPAddr:       ourIP,
		SubnetMask:   mask,
		TTL:          time.Minute,
		CacheEntries: 8,
		TraceEntries: 32,
	})
	require.NoError(t, err)
	p.SetState(true)
	return p, device
}

func outboundDatagram(dst ipv4.IPAddress, payload []byte) *dgram.Datagram {
	dg := dgram.New(ipv4.Header{
		VHL:    0x45,
		Length: uint16(ipv4.HeaderSize + len(payload)),
		TTL:    64,
		Src:    ourIP,
		Dst:    dst,
	}, nil, payload)
	dg.SetTTL(time.Minute)
	return dg
}

func arpReplyFrame(senderHW ethernet.HardwareAddress, senderIP ipv4.IPAddress) []byte {
	packet := arp.Reply(senderHW, senderIP, ourHW, ourIP)
	payload, _ := packet.Serialize()
	return ethernet.BuildRaw(ourHW, senderHW, ethernet.ETHER_TYPE_ARP, payload)
}

func arpRequestFrame(senderHW ethernet.HardwareAddress, senderIP, targetIP ipv4.IPAddress) []byte {
	packet := arp.Request(senderHW, senderIP, targetIP)
	payload, _ := packet.Serialize()
	return ethernet.BuildRaw(ethernet.BroadcastAddress, senderHW, ethernet.ETHER_TYPE_ARP, payload)
}

func ipFrame(dst ethernet.HardwareAddress, header ipv4.Header, payload []byte) []byte {
	raw, _ := header.Marshal()
	return ethernet.BuildRaw(dst, peerHW, ethernet.ETHER_TYPE_IP, append(raw, payload...))
}

func parseSentARP(t *testing.T, raw []byte) *arp.Packet {
	t.Helper()
	frame, err := ethernet.New(raw)
	require.NoError(t, err)
	require.Equal(t, ethernet.ETHER_TYPE_ARP, frame.Type())
	packet, err := arp.New(frame.Payload())
	require.NoError(t, err)
	return packet
}

// Scenario A: on-subnet destination, empty cache.  The datagram is
// parked and a broadcast ARP request goes out.
func TestSendPendingCacheMiss(t *testing.T) {
	p, device := newTestPort(t)
	p.SendQueue.Enqueue(outboundDatagram(peerIP, []byte("hello")))
	p.SendPending()

	assert.True(t, p.SendQueue.Empty())
	assert.Equal(t, 1, p.Waiting())
	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Send.Dequeued)
	assert.Equal(t, uint64(1), stats.ARP.WaitQueued)
	assert.Equal(t, uint64(1), stats.Send.ARPPackets)
	assert.Equal(t, uint64(1), stats.Waiting())

	require.Equal(t, 1, len(device.sent))
	frame, err := ethernet.New(device.sent[0])
	require.NoError(t, err)
	assert.Equal(t, ethernet.BroadcastAddress, frame.Header.Dst)
	packet := parseSentARP(t, device.sent[0])
	assert.Equal(t, arp.ARP_REQUEST, packet.Header.OpCode)
	assert.Equal(t, peerIP, packet.TargetProtocolAddress)
	assert.Equal(t, ourIP, packet.SourceProtocolAddress)
	assert.Equal(t, ourHW, packet.SourceHardwareAddress)
}

// Scenario B: an ARP reply resolves the parked datagram's target; the
// waiting queue drains and the datagram leaves the wire.
func TestARPReplyDrainsWaitingQueue(t *testing.T) {
	p, device := newTestPort(t)
	p.SendQueue.Enqueue(outboundDatagram(peerIP, []byte("hello")))
	p.SendPending()
	require.Equal(t, 1, p.Waiting())

	device.deliver(arpReplyFrame(peerHW, peerIP))
	p.ReceivePending()

	assert.Equal(t, 0, p.Waiting())
	hwaddr, ok := p.cache.Lookup(peerIP)
	require.True(t, ok)
	assert.Equal(t, peerHW, hwaddr)

	// request first, then the resolved IP frame
	require.Equal(t, 2, len(device.sent))
	frame, err := ethernet.New(device.sent[1])
	require.NoError(t, err)
	assert.Equal(t, ethernet.ETHER_TYPE_IP, frame.Type())
	assert.Equal(t, peerHW, frame.Header.Dst)
	assert.Equal(t, ourHW, frame.Header.Src)

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Send.IPPackets)
	assert.Equal(t, uint64(1), stats.ARP.WaitDequeued)
	assert.Equal(t, uint64(1), stats.ARP.AnswersReceived)
	assert.Equal(t, uint64(0), stats.Waiting())
	assert.Equal(t, uint64(ipv4.HeaderSize+5), stats.SentBytes-uint64(ethernet.MinFrameSize))
}

// Scenario C: destination host bits all-zero under the mask.
func TestSendPendingBadHost(t *testing.T) {
	p, device := newTestPort(t)
	p.SendQueue.Enqueue(outboundDatagram(ipv4.IPAddress{192, 168, 0, 0}, nil))
	p.SendQueue.Enqueue(outboundDatagram(ipv4.IPAddress{192, 168, 0, 255}, nil))
	p.SendPending()

	stats := p.Stats()
	assert.Equal(t, uint64(2), stats.Send.BadHost)
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Equal(t, 0, len(device.sent))
	assert.Equal(t, 0, p.Waiting())
}

func TestSendPendingBadNetwork(t *testing.T) {
	p, device := newTestPort(t)
	p.SendQueue.Enqueue(outboundDatagram(ipv4.IPAddress{10, 0, 0, 5}, nil))
	p.SendPending()

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Send.BadNetwork)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 0, len(device.sent))
}

func TestOffSubnetUsesGatewayHint(t *testing.T) {
	p, device := newTestPort(t)
	gateway := ipv4.IPAddress{192, 168, 0, 1}
	dg := outboundDatagram(ipv4.IPAddress{10, 0, 0, 5}, nil)
	dg.Gateway = gateway
	p.SendQueue.Enqueue(dg)
	p.SendPending()

	assert.Equal(t, 1, p.Waiting())
	require.Equal(t, 1, len(device.sent))
	packet := parseSentARP(t, device.sent[0])
	assert.Equal(t, gateway, packet.TargetProtocolAddress)
}

func TestSendPendingOversize(t *testing.T) {
	p, device := newTestPort(t)
	p.SendQueue.Enqueue(outboundDatagram(peerIP, make([]byte, ethernet.MaxFrameSize)))
	p.SendPending()

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Send.BadLength)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 0, len(device.sent))
}

func TestTransportFailureDropsWithoutRetry(t *testing.T) {
	p, device := newTestPort(t)
	device.deliver(arpReplyFrame(peerHW, peerIP))
	p.ReceivePending()

	device.sendErr = errors.New("device gone")
	p.SendQueue.Enqueue(outboundDatagram(peerIP, []byte("x")))
	p.SendPending()

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Write.Failed)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 0, p.Waiting())
	assert.Equal(t, uint64(0), stats.Send.IPPackets)
}

// P1: the cache learns the sender of any valid ARP packet, including
// requests addressed to somebody else entirely.
func TestCacheLearnsFromOverheardRequests(t *testing.T) {
	p, device := newTestPort(t)
	other := ipv4.IPAddress{192, 168, 0, 30}
	device.deliver(arpRequestFrame(peerHW, peerIP, other))
	p.ReceivePending()

	hwaddr, ok := p.cache.Lookup(peerIP)
	require.True(t, ok)
	assert.Equal(t, peerHW, hwaddr)
	// not addressed to us: no reply goes out
	assert.Equal(t, 0, len(device.sent))
	assert.Equal(t, uint64(0), p.Stats().ARP.RequestsReceived)
}

func TestSelfAddressedRequestGetsReply(t *testing.T) {
	p, device := newTestPort(t)
	device.deliver(arpRequestFrame(peerHW, peerIP, ourIP))
	p.ReceivePending()

	require.Equal(t, 1, len(device.sent))
	frame, err := ethernet.New(device.sent[0])
	require.NoError(t, err)
	assert.Equal(t, peerHW, frame.Header.Dst)
	packet := parseSentARP(t, device.sent[0])
	assert.Equal(t, arp.ARP_REPLY, packet.Header.OpCode)
	assert.Equal(t, ourIP, packet.SourceProtocolAddress)
	assert.Equal(t, ourHW, packet.SourceHardwareAddress)
	assert.Equal(t, peerIP, packet.TargetProtocolAddress)
	assert.Equal(t, uint64(1), p.Stats().ARP.RequestsReceived)
}

func TestMalformedARPCounted(t *testing.T) {
	p, device := newTestPort(t)
	packet := arp.Request(peerHW, peerIP, ourIP)
	packet.Header.HardwareType = 6 // not ethernet
	payload, _ := packet.Serialize()
	device.deliver(ethernet.BuildRaw(ourHW, peerHW, ethernet.ETHER_TYPE_ARP, payload))

	packet = arp.Request(peerHW, peerIP, ourIP)
	packet.Header.OpCode = 3 // RARP-style opcode
	payload, _ = packet.Serialize()
	device.deliver(ethernet.BuildRaw(ourHW, peerHW, ethernet.ETHER_TYPE_ARP, payload))

	p.ReceivePending()
	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.ARP.InputErrors)
	assert.Equal(t, uint64(1), stats.ARP.OpcodeErrors)
	assert.Equal(t, uint64(2), stats.Process.BadARPPackets)
	assert.Equal(t, uint64(2), stats.Dropped)
	_, ok := p.cache.Lookup(peerIP)
	assert.False(t, ok)
}

// P4: datagrams awaiting resolution are retried in enqueue order, and
// the ones still unresolved keep their relative order.
func TestResolutionRetryOrder(t *testing.T) {
	p, device := newTestPort(t)
	addrA := ipv4.IPAddress{192, 168, 0, 21}
	addrB := ipv4.IPAddress{192, 168, 0, 22}
	addrC := ipv4.IPAddress{192, 168, 0, 23}
	for _, dst := range []ipv4.IPAddress{addrA, addrB, addrC} {
		p.SendQueue.Enqueue(outboundDatagram(dst, []byte{dst[3]}))
	}
	p.SendPending()
	require.Equal(t, 3, p.Waiting())
	device.sent = nil

	// resolve B only: the drain sends B and keeps A, C in order
	hwB := ethernet.HardwareAddress{0x02, 0, 0, 0, 0, 0x22}
	device.deliver(arpReplyFrame(hwB, addrB))
	p.ReceivePending()
	assert.Equal(t, 2, p.Waiting())

	var ipDst []ethernet.HardwareAddress
	for _, raw := range device.sent {
		frame, err := ethernet.New(raw)
		require.NoError(t, err)
		if frame.Type() == ethernet.ETHER_TYPE_IP {
			ipDst = append(ipDst, frame.Header.Dst)
		}
	}
	require.Equal(t, []ethernet.HardwareAddress{hwB}, ipDst)

	// resolving both leftovers in one event emits A before C
	hwA := ethernet.HardwareAddress{0x02, 0, 0, 0, 0, 0x21}
	hwC := ethernet.HardwareAddress{0x02, 0, 0, 0, 0, 0x23}
	p.cache.Update(addrC, hwC)
	device.sent = nil
	device.deliver(arpReplyFrame(hwA, addrA))
	p.ReceivePending()
	assert.Equal(t, 0, p.Waiting())

	ipDst = nil
	for _, raw := range device.sent {
		frame, err := ethernet.New(raw)
		require.NoError(t, err)
		if frame.Type() == ethernet.ETHER_TYPE_IP {
			ipDst = append(ipDst, frame.Header.Dst)
		}
	}
	assert.Equal(t, []ethernet.HardwareAddress{hwA, hwC}, ipDst)
	assert.Equal(t, uint64(0), p.Stats().Waiting())
}

// Scenario D: declared IP header length below the minimum.
func TestInboundBadHeaderLength(t *testing.T) {
	p, device := newTestPort(t)
	device.deliver(ipFrame(ourHW, ipv4.Header{VHL: 0x40, Length: 40}, nil))
	p.ReceivePending()

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Process.BadIPPackets)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.True(t, p.RecvQueue.Empty())
}

func TestInboundDeclaredLengthExceedsFrame(t *testing.T) {
	p, device := newTestPort(t)
	device.deliver(ipFrame(ourHW, ipv4.Header{VHL: 0x45, Length: 4000}, nil))
	p.ReceivePending()

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Process.BadIPPackets)
	assert.True(t, p.RecvQueue.Empty())
}

// Scenario E: link-layer broadcast IP frames are counted and ignored.
func TestInboundBroadcastIP(t *testing.T) {
	p, device := newTestPort(t)
	device.deliver(ipFrame(ethernet.BroadcastAddress, ipv4.Header{VHL: 0x45, Length: 28}, make([]byte, 8)))
	p.ReceivePending()

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Process.BroadcastIPPackets)
	assert.Equal(t, uint64(0), stats.Process.BadIPPackets)
	assert.Equal(t, uint64(0), stats.Dropped)
	assert.True(t, p.RecvQueue.Empty())
	assert.Equal(t, uint64(ethernet.MinFrameSize), stats.ReceivedBytes)
}

func TestInboundGoodIPQueued(t *testing.T) {
	p, device := newTestPort(t)
	payload := []byte{0xca, 0xfe, 0xba, 0xbe}
	header := ipv4.Header{
		VHL:    0x46, // IHL 6: 4 bytes of options
		Length: uint16(24 + len(payload)),
		TTL:    64,
		Src:    peerIP,
		Dst:    ourIP,
	}
	options := []byte{1, 2, 3, 4}
	raw, _ := header.Marshal()
	body := append(append(raw, options...), payload...)
	device.deliver(ethernet.BuildRaw(ourHW, peerHW, ethernet.ETHER_TYPE_IP, body))
	p.ReceivePending()

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Process.NormalIPPackets)
	assert.Equal(t, uint64(0), stats.Process.BadIPPackets)
	dg := p.RecvQueue.Dequeue()
	require.NotNil(t, dg)
	assert.Equal(t, options, dg.Options)
	assert.Equal(t, payload, dg.Payload)
	assert.Equal(t, peerIP, dg.Header.Src)
	assert.True(t, p.RecvQueue.Empty())
}

func TestInboundUnknownTypeCounted(t *testing.T) {
	p, device := newTestPort(t)
	device.deliver(ethernet.BuildRaw(ourHW, peerHW, ethernet.ETHER_TYPE_IPV6, make([]byte, 40)))
	p.ReceivePending()

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Receive.BadPackets)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestReceiveStopsOnTransportError(t *testing.T) {
	p, device := newTestPort(t)
	device.recvErr = errors.New("device gone")
	p.ReceivePending()
	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Read.Failed)
	assert.Equal(t, uint64(0), stats.Receive.TotalPackets)
}

func TestExpiredOutboundSkipped(t *testing.T) {
	p, device := newTestPort(t)
	dg := outboundDatagram(peerIP, nil)
	dg.SetDeadline(time.Now().Add(-time.Second))
	p.SendQueue.Enqueue(dg)
	p.SendPending()

	assert.Equal(t, uint64(0), p.Stats().Send.Dequeued)
	assert.Equal(t, 0, len(device.sent))
	assert.Equal(t, 0, p.Waiting())
}

func TestSetStateDownDiscardsQueues(t *testing.T) {
	p, device := newTestPort(t)
	p.SendQueue.Enqueue(outboundDatagram(peerIP, nil))
	device.deliver(ipFrame(ourHW, ipv4.Header{VHL: 0x45, Length: 20}, nil))
	p.ReceivePending()
	require.False(t, p.RecvQueue.Empty())

	p.SetState(false)
	assert.True(t, p.SendQueue.Empty())
	assert.True(t, p.RecvQueue.Empty())

	// a down port processes nothing
	p.SendQueue.Enqueue(outboundDatagram(peerIP, nil))
	p.SendPending()
	assert.Equal(t, 1, p.SendQueue.Len())
	device.deliver(arpReplyFrame(peerHW, peerIP))
	p.ReceivePending()
	assert.Equal(t, 1, len(device.pending))
}

func TestControlSurface(t *testing.T) {
	p, device := newTestPort(t)
	device.deliver(arpReplyFrame(peerHW, peerIP))
	p.ReceivePending()

	entries := p.ARPEntries()
	require.Equal(t, 1, len(entries))
	assert.Equal(t, peerIP, entries[0].IPAddress)
	assert.Equal(t, peerHW, entries[0].HardwareAddress)
	assert.Equal(t, 1, p.ARPCount())

	p.ClearARPCache()
	assert.Equal(t, 0, p.ARPCount())

	require.NotEqual(t, Stats{}, p.Stats())
	p.ClearStats()
	assert.Equal(t, Stats{}, p.Stats())

	assert.Equal(t, ourHW, p.MACAddress())
	assert.Equal(t, ourHW, p.HardwareAddress())

	// an override is used as frame source until the hardware is asked again
	override := ethernet.HardwareAddress{0x02, 0xff, 0, 0, 0, 1}
	p.SetMAC(override)
	p.cache.Update(peerIP, peerHW)
	device.sent = nil
	p.SendQueue.Enqueue(outboundDatagram(peerIP, nil))
	p.SendPending()
	require.Equal(t, 1, len(device.sent))
	frame, err := ethernet.New(device.sent[0])
	require.NoError(t, err)
	assert.Equal(t, override, frame.Header.Src)
	assert.Equal(t, ourHW, p.MACAddress()) // hardware query wins when it succeeds

	assert.Equal(t, ourIP, p.IPAddress())
	assert.Equal(t, mask, p.SubnetMask())
	assert.Equal(t, DefaultMTU, p.MTU())
	assert.Equal(t, "mock0", p.Name())
	assert.NotEmpty(t, SupportedHardware())
}

func TestResolve(t *testing.T) {
	p, device := newTestPort(t)
	_, ok := p.Resolve(peerIP)
	assert.False(t, ok)
	require.Equal(t, 1, len(device.sent))
	packet := parseSentARP(t, device.sent[0])
	assert.Equal(t, arp.ARP_REQUEST, packet.Header.OpCode)
	assert.Equal(t, peerIP, packet.TargetProtocolAddress)

	device.deliver(arpReplyFrame(peerHW, peerIP))
	p.ReceivePending()
	hwaddr, ok := p.Resolve(peerIP)
	require.True(t, ok)
	assert.Equal(t, peerHW, hwaddr)
}

func TestTraceRecordsReadsAndWrites(t *testing.T) {
	p, device := newTestPort(t)
	p.ClearTrace() // drop the attach-time MAC query
	device.deliver(arpReplyFrame(peerHW, peerIP))
	p.ReceivePending()
	p.SendQueue.Enqueue(outboundDatagram(peerIP, []byte("y")))
	p.SendPending()

	records := p.Trace()
	require.Equal(t, 2, len(records))
	assert.Equal(t, trace.OpRead, records[0].Op)
	assert.Equal(t, ethernet.MinFrameSize, records[0].RC)
	assert.Equal(t, trace.OpWrite, records[1].Op)
	assert.Equal(t, ethernet.MinFrameSize, records[1].Length)
	assert.Equal(t, 32, p.TraceCapacity())

	p.ClearTrace()
	assert.Empty(t, p.Trace())
}
