package arp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/czietz/usbsting/packet/ethernet"
	"github.com/czietz/usbsting/packet/ipv4"
)

var (
	srcHW = ethernet.HardwareAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstHW = ethernet.HardwareAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	srcIP = ipv4.IPAddress{192, 168, 0, 1}
	dstIP = ipv4.IPAddress{192, 168, 0, 2}
)

func TestRequestSerialize(t *testing.T) {
	packet := Request(srcHW, srcIP, dstIP)
	raw, err := packet.Serialize()
	require.NoError(t, err)
	require.Equal(t, PacketSize, len(raw))
	// header
	assert.Equal(t, []byte{0x00, 0x01, 0x08, 0x00, 0x06, 0x04, 0x00, 0x01}, raw[:8])
	// sender pair
	assert.Equal(t, srcHW.Bytes(), raw[8:14])
	assert.Equal(t, srcIP.Bytes(), raw[14:18])
	// target pair: broadcast hardware address in a request
	assert.Equal(t, ethernet.BroadcastAddress.Bytes(), raw[18:24])
	assert.Equal(t, dstIP.Bytes(), raw[24:28])
}

func TestReplyRoundTrip(t *testing.T) {
	packet := Reply(srcHW, srcIP, dstHW, dstIP)
	raw, err := packet.Serialize()
	require.NoError(t, err)
	parsed, err := New(raw)
	require.NoError(t, err)
	assert.Equal(t, *packet, *parsed)
	assert.Equal(t, ARP_REPLY, parsed.Header.OpCode)
	require.NoError(t, parsed.Validate())
}

func TestNewTooShort(t *testing.T) {
	_, err := New(make([]byte, PacketSize-1))
	assert.Error(t, err)
}

func TestValidateRejectsOtherSpaces(t *testing.T) {
	cases := []func(*Packet){
		func(p *Packet) { p.Header.HardwareType = 6 },
		func(p *Packet) { p.Header.HardwareSize = 8 },
		func(p *Packet) { p.Header.ProtocolType = 0x86dd },
		func(p *Packet) { p.Header.ProtocolSize = 16 },
	}
	for _, mutate := range cases {
		packet := Request(srcHW, srcIP, dstIP)
		mutate(packet)
		assert.Error(t, packet.Validate())
	}
}
