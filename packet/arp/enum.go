package arp

// PacketSize is the full ARP packet length for the Ethernet/IPv4
// profile: 8 byte header plus two (hardware, protocol) address pairs.
const PacketSize int = 28

const HARDWARE_ETHERNET HardwareType = 1

const PROTOCOL_IPv4 ProtocolType = 0x0800

const (
	ARP_REQUEST OperationCode = 0x0001
	ARP_REPLY   OperationCode = 0x0002
)
