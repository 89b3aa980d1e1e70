// Package transport abstracts the hardware path frames travel over.
// Exactly one implementation is active per running port, chosen at
// attach time.
package transport

import (
	"fmt"

	"github.com/czietz/usbsting/packet/ethernet"
)

type Transport interface {
	Name() string
	// Send transmits one complete frame.
	Send(frame []byte) error
	// Recv copies the next pending frame into buf and returns its
	// length.  It never blocks: 0 means nothing is pending.
	Recv(buf []byte) (int, error)
	// HardwareAddress reads the device's link-layer address.
	HardwareAddress() (ethernet.HardwareAddress, error)
	Close() error
}

func New(name, typ string) (Transport, error) {
	switch typ {
	case "afpacket":
		return newAfPacket(name)
	case "tap":
		return newTap(name)
	default:
		return nil, fmt.Errorf("invalid transport type %q", typ)
	}
}

// Probe tries each supported transport in turn and returns the first
// that attaches.
func Probe(name string) (Transport, error) {
	afp, err := newAfPacket(name)
	if err == nil {
		return afp, nil
	}
	return newTap(name)
}

// Supported lists the selectable transport types.
func Supported() []string {
	return []string{"afpacket", "tap"}
}
