package arp

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/czietz/usbsting/packet/ethernet"
	"github.com/czietz/usbsting/packet/ipv4"
)

type Header struct {
	HardwareType HardwareType
	ProtocolType ProtocolType
	HardwareSize uint8
	ProtocolSize uint8
	OpCode       OperationCode
}

// Packet is an ARP packet in the Ethernet/IPv4 profile of RFC 826.
type Packet struct {
	Header                Header
	SourceHardwareAddress ethernet.HardwareAddress
	SourceProtocolAddress ipv4.IPAddress
	TargetHardwareAddress ethernet.HardwareAddress
	TargetProtocolAddress ipv4.IPAddress
}

type HardwareType uint16
type ProtocolType uint16
type OperationCode uint16

func (op OperationCode) String() string {
	switch op {
	case ARP_REQUEST:
		return "(REQUEST)"
	case ARP_REPLY:
		return "(REPLY)"
	default:
		return "(UNKNOWN)"
	}
}

func New(data []byte) (*Packet, error) {
	if len(data) < PacketSize {
		return nil, fmt.Errorf("arp packet is too short (%d)", len(data))
	}
	packet := &Packet{}
	buf := bytes.NewBuffer(data)
	if err := binary.Read(buf, binary.BigEndian, packet); err != nil {
		return nil, err
	}
	return packet, nil
}

func (arp *Packet) Serialize() ([]byte, error) {
	packet := bytes.NewBuffer(make([]byte, 0, PacketSize))
	if err := binary.Write(packet, binary.BigEndian, arp); err != nil {
		return nil, err
	}
	return packet.Bytes(), nil
}

// Validate rejects packets outside the Ethernet/IPv4 profile.  Anything
// else on the wire (other hardware spaces, RARP-style lengths) is
// counted by the caller as an input error, never answered.
func (arp *Packet) Validate() error {
	if arp.Header.HardwareType != HARDWARE_ETHERNET ||
		arp.Header.HardwareSize != 6 ||
		arp.Header.ProtocolType != PROTOCOL_IPv4 ||
		arp.Header.ProtocolSize != 4 {
		return fmt.Errorf("unsupported arp spaces %v", arp.Header)
	}
	return nil
}

func Request(srcHardwareAddress ethernet.HardwareAddress, srcProtocolAddress, targetProtocolAddress ipv4.IPAddress) *Packet {
	return &Packet{
		Header: Header{
			HardwareType: HARDWARE_ETHERNET,
			ProtocolType: PROTOCOL_IPv4,
			HardwareSize: uint8(6),
			ProtocolSize: uint8(4),
			OpCode:       ARP_REQUEST,
		},
		SourceHardwareAddress: srcHardwareAddress,
		SourceProtocolAddress: srcProtocolAddress,
		TargetHardwareAddress: ethernet.BroadcastAddress,
		TargetProtocolAddress: targetProtocolAddress,
	}
}

func Reply(srcHardwareAddress ethernet.HardwareAddress, srcProtocolAddress ipv4.IPAddress, targetHardwareAddress ethernet.HardwareAddress, targetProtocolAddress ipv4.IPAddress) *Packet {
	return &Packet{
		Header: Header{
			HardwareType: HARDWARE_ETHERNET,
			ProtocolType: PROTOCOL_IPv4,
			HardwareSize: uint8(6),
			ProtocolSize: uint8(4),
			OpCode:       ARP_REPLY,
		},
		SourceHardwareAddress: srcHardwareAddress,
		SourceProtocolAddress: srcProtocolAddress,
		TargetHardwareAddress: targetHardwareAddress,
		TargetProtocolAddress: targetProtocolAddress,
	}
}
