package ethernet

import (
	"encoding/binary"
	"errors"
)

// ErrOversizeFrame is returned when an assembled frame would exceed
// MaxFrameSize.  Callers are expected to drop the packet, not retry.
var ErrOversizeFrame = errors.New("frame exceeds maximum ethernet frame size")

// BuildRaw assembles a complete frame around payload and zero-pads it
// up to MinFrameSize.  The padding carries no meaning, it only keeps
// short frames legal on the wire.
func BuildRaw(dst, src HardwareAddress, typ EtherType, payload []byte) []byte {
	length := HeaderSize + len(payload)
	if length < MinFrameSize {
		length = MinFrameSize
	}
	frame := make([]byte, length)
	copy(frame[0:6], dst[:])
	copy(frame[6:12], src[:])
	binary.BigEndian.PutUint16(frame[12:14], uint16(typ))
	copy(frame[HeaderSize:], payload)
	return frame
}

// BuildIPFrame assembles an IP frame from the pieces of a datagram:
// the fixed header bytes, the options block and the packet data, laid
// out contiguously after the Ethernet header.  It returns the frame
// and the semantic IP length (header + options + data, excluding the
// Ethernet header and any padding), which is what the send statistics
// account in.
func BuildIPFrame(dst, src HardwareAddress, header, options, payload []byte) ([]byte, int, error) {
	ipLength := len(header) + len(options) + len(payload)
	if HeaderSize+ipLength > MaxFrameSize {
		return nil, 0, ErrOversizeFrame
	}
	body := make([]byte, 0, ipLength)
	body = append(body, header...)
	body = append(body, options...)
	body = append(body, payload...)
	return BuildRaw(dst, src, ETHER_TYPE_IP, body), ipLength, nil
}
