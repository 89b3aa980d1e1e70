package transport

import (
	"encoding/binary"
	"fmt"
	"syscall"
	"unsafe"

	"github.com/czietz/usbsting/ioctl"
	"github.com/czietz/usbsting/packet/ethernet"
)

type afPacket struct {
	fd   int
	name string
}

func newAfPacket(name string) (*afPacket, error) {
	fd, err := openPFPacket(name)
	if err != nil {
		return nil, err
	}
	return &afPacket{
		fd:   fd,
		name: name,
	}, nil
}

func (af *afPacket) Name() string {
	return af.name
}

func (af *afPacket) Send(frame []byte) error {
	if _, err := syscall.Write(af.fd, frame); err != nil {
		return fmt.Errorf("afpacket send: %w", err)
	}
	return nil
}

func (af *afPacket) Recv(buf []byte) (int, error) {
	n, err := syscall.Read(af.fd, buf)
	if err != nil {
		// the socket is non-blocking: nothing pending is not an error
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			return 0, nil
		}
		return 0, fmt.Errorf("afpacket recv: %w", err)
	}
	return n, nil
}

func (af *afPacket) HardwareAddress() (ethernet.HardwareAddress, error) {
	addr, err := ioctl.Siocgifhwaddr(af.name)
	if err != nil {
		return ethernet.HardwareAddress{}, err
	}
	return ethernet.Address(addr)
}

func (af *afPacket) Close() error {
	return syscall.Close(af.fd)
}

func openPFPacket(name string) (int, error) {
	if name == "" {
		return -1, fmt.Errorf("name is empty")
	}
	if len(name) >= syscall.IFNAMSIZ {
		return -1, fmt.Errorf("name is too long")
	}
	protocol := hton16(syscall.ETH_P_ALL)
	fd, err := syscall.Socket(syscall.AF_PACKET, syscall.SOCK_RAW, int(protocol))
	if err != nil {
		return -1, fmt.Errorf("socket open error %v", err)
	}
	index, err := ioctl.Siocgifindex(name)
	if err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("siocgifindex error: %v", err)
	}
	addr := &syscall.SockaddrLinklayer{
		Protocol: protocol,
		Ifindex:  int(index),
	}
	if err = syscall.Bind(fd, addr); err != nil {
		syscall.Close(fd)
		return -1, err
	}
	flags, err := ioctl.Siocgifflags(name)
	if err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("siocgifflags error: %v", err)
	}
	flags |= syscall.IFF_PROMISC
	if err := ioctl.Siocsifflags(name, flags); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("siocsifflags error: %v", err)
	}
	if err := syscall.SetNonblock(fd, true); err != nil {
		syscall.Close(fd)
		return -1, err
	}
	return fd, nil
}

func hton16(i uint16) uint16 {
	var ret uint16
	binary.BigEndian.PutUint16((*[2]byte)(unsafe.Pointer(&ret))[:], i)
	return ret
}
