package transport

import (
	"fmt"
	"sync"
	"syscall"

	"github.com/songgao/water"

	"github.com/czietz/usbsting/ioctl"
	"github.com/czietz/usbsting/packet/ethernet"
)

// tapDevice serves frames through a kernel TAP interface.  The water
// device only offers blocking reads, so a reader goroutine feeds a
// channel and Recv drains it without blocking.
type tapDevice struct {
	device *water.Interface
	name   string
	frames chan []byte
	rdErr  chan error
	closed chan struct{}
	once   sync.Once
}

func newTap(name string) (*tapDevice, error) {
	config := water.Config{DeviceType: water.TAP}
	config.Name = name
	device, err := water.New(config)
	if err != nil {
		return nil, fmt.Errorf("tap open: %w", err)
	}
	tap := &tapDevice{
		device: device,
		name:   device.Name(),
		frames: make(chan []byte, 64),
		rdErr:  make(chan error, 1),
		closed: make(chan struct{}),
	}
	if err := tap.up(); err != nil {
		device.Close()
		return nil, err
	}
	go tap.readLoop()
	return tap, nil
}

func (tap *tapDevice) up() error {
	flags, err := ioctl.Siocgifflags(tap.name)
	if err != nil {
		return err
	}
	flags |= syscall.IFF_UP | syscall.IFF_RUNNING
	return ioctl.Siocsifflags(tap.name, flags)
}

func (tap *tapDevice) readLoop() {
	for {
		buf := make([]byte, ethernet.MaxFrameSize)
		n, err := tap.device.Read(buf)
		if err != nil {
			select {
			case tap.rdErr <- err:
			default:
			}
			return
		}
		select {
		case tap.frames <- buf[:n]:
		case <-tap.closed:
			return
		}
	}
}

func (tap *tapDevice) Name() string {
	return tap.name
}

func (tap *tapDevice) Send(frame []byte) error {
	if _, err := tap.device.Write(frame); err != nil {
		return fmt.Errorf("tap send: %w", err)
	}
	return nil
}

func (tap *tapDevice) Recv(buf []byte) (int, error) {
	select {
	case frame := <-tap.frames:
		if len(frame) > len(buf) {
			return 0, fmt.Errorf("tap recv: buffer too small (%d < %d)", len(buf), len(frame))
		}
		return copy(buf, frame), nil
	default:
	}
	select {
	case err := <-tap.rdErr:
		return 0, fmt.Errorf("tap recv: %w", err)
	default:
		return 0, nil
	}
}

func (tap *tapDevice) HardwareAddress() (ethernet.HardwareAddress, error) {
	addr, err := ioctl.Siocgifhwaddr(tap.name)
	if err != nil {
		return ethernet.HardwareAddress{}, err
	}
	return ethernet.Address(addr)
}

func (tap *tapDevice) Close() error {
	tap.once.Do(func() { close(tap.closed) })
	return tap.device.Close()
}
