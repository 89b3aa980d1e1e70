package ethernet

// HeaderSize is the fixed Ethernet header length: two hardware
// addresses plus the type field.
const HeaderSize int = 14

// Frame size bounds on the wire.  Frames shorter than MinFrameSize are
// zero-padded before transmission; frames longer than MaxFrameSize are
// rejected outright.
const (
	MinFrameSize int = 60
	MaxFrameSize int = 1514
)

const (
	ETHER_TYPE_IP   EtherType = 0x0800
	ETHER_TYPE_ARP  EtherType = 0x0806
	ETHER_TYPE_IPV6 EtherType = 0x86dd
)

var BroadcastAddress = HardwareAddress{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
