package ethernet

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type HardwareAddress [6]byte

type EtherType uint16

type Header struct {
	Dst  HardwareAddress
	Src  HardwareAddress
	Type EtherType
}

type Frame struct {
	Header Header
	Data   []byte
}

func (hwaddr HardwareAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", hwaddr[0], hwaddr[1], hwaddr[2], hwaddr[3], hwaddr[4], hwaddr[5])
}

func (hwaddr HardwareAddress) Bytes() []byte {
	return hwaddr[:]
}

func (hwaddr HardwareAddress) IsBroadcast() bool {
	return hwaddr == BroadcastAddress
}

func Address(data []byte) (HardwareAddress, error) {
	var addr HardwareAddress
	if len(data) < 6 {
		return addr, fmt.Errorf("invalid hardware address %v", data)
	}
	copy(addr[:], data[:6])
	return addr, nil
}

func New(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("ethernet frame is too short (%d)", len(data))
	}
	frame := &Frame{}
	header := &Header{}
	buf := bytes.NewBuffer(data)
	if err := binary.Read(buf, binary.BigEndian, header); err != nil {
		return nil, err
	}
	frame.Header = *header
	frame.Data = buf.Bytes()
	return frame, nil
}

func (eth *Frame) Payload() []byte {
	return eth.Data
}

func (eth *Frame) Type() EtherType {
	return eth.Header.Type
}

func (eth *Frame) Serialize() ([]byte, error) {
	frame := bytes.NewBuffer(make([]byte, 0))
	if err := binary.Write(frame, binary.BigEndian, eth.Header); err != nil {
		return nil, err
	}
	if err := binary.Write(frame, binary.BigEndian, eth.Data); err != nil {
		return nil, err
	}
	return frame.Bytes(), nil
}
