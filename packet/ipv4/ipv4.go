package ipv4

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed IPv4 header length, without options.
const HeaderSize int = 20

type Header struct {
	VHL      VerIHL              // 8bits
	TOS      uint8               // 8bits
	Length   uint16              // 16bits
	Ident    uint16              // 16bits
	FlOffset FlagsFragmentOffset // 16bits
	TTL      uint8               // 8bits
	Protocol IPProtocol          // 8bits
	Checksum uint16              // 16bits
	Src      IPAddress           // 32bits
	Dst      IPAddress           // 32bits
}

type VerIHL uint8

func (vi VerIHL) Version() uint8 {
	return uint8(vi) >> 4
}

func (vi VerIHL) IHL() uint8 {
	return uint8(vi) & 0x0F
}

type FlagsFragmentOffset uint16

type IPProtocol uint8

type IPAddress [4]byte

func NewIPAddress(addr []byte) IPAddress {
	return IPAddress{addr[0], addr[1], addr[2], addr[3]}
}

func (ipaddr IPAddress) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", ipaddr[0], ipaddr[1], ipaddr[2], ipaddr[3])
}

func (ipaddr IPAddress) Bytes() []byte {
	return ipaddr[:]
}

func (ipaddr IPAddress) Uint32() uint32 {
	return binary.BigEndian.Uint32(ipaddr[:])
}

func (ipaddr IPAddress) IsZero() bool {
	return ipaddr == IPAddress{}
}

func AddressFromUint32(v uint32) IPAddress {
	var addr IPAddress
	binary.BigEndian.PutUint32(addr[:], v)
	return addr
}

func Address(addr []byte) (IPAddress, error) {
	if len(addr) != 4 {
		return IPAddress{}, fmt.Errorf("invalid address %v", addr)
	}
	return IPAddress{addr[0], addr[1], addr[2], addr[3]}, nil
}

// ParseAddress parses dotted-decimal notation.
func ParseAddress(s string) (IPAddress, error) {
	var addr IPAddress
	var a, b, c, d int
	if _, err := fmt.Sscanf(s, "%d.%d.%d.%d", &a, &b, &c, &d); err != nil {
		return addr, fmt.Errorf("invalid address %q", s)
	}
	for i, v := range []int{a, b, c, d} {
		if v < 0 || v > 255 {
			return addr, fmt.Errorf("invalid address %q", s)
		}
		addr[i] = byte(v)
	}
	return addr, nil
}

// HeaderLength reports the full header length in bytes as declared by
// the IHL field.
func (iphdr *Header) HeaderLength() int {
	return int(iphdr.VHL.IHL()) * 4
}

// ParseHeader decodes the fixed 20 byte header from the start of data.
// It does not validate the declared lengths against anything; the
// dispatcher owns those checks because they involve the frame size.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("ip header is too short (%d)", len(data))
	}
	header := &Header{}
	buf := bytes.NewBuffer(data)
	if err := binary.Read(buf, binary.BigEndian, header); err != nil {
		return nil, fmt.Errorf("encoding error: %v", err)
	}
	return header, nil
}

func (iphdr *Header) Marshal() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	if err := binary.Write(buf, binary.BigEndian, iphdr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
