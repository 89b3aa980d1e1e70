// Package dgram holds the driver's internal IP datagram representation
// and the FIFO queues datagrams move through on their way to or from
// the wire.
package dgram

import (
	"time"

	"github.com/czietz/usbsting/packet/ipv4"
)

// Datagram is one IP packet in flight.  Header, options and payload are
// owned copies; the intrusive next link belongs to whichever queue the
// datagram currently sits on, and a datagram sits on at most one queue
// at a time.
type Datagram struct {
	Header  ipv4.Header
	Options []byte
	Payload []byte

	// Gateway is the next-hop hint used when the destination is not
	// on the local subnet.  Zero when unset.
	Gateway ipv4.IPAddress

	deadline time.Time
	next     *Datagram
}

// New builds a datagram with owned copies of options and payload.
func New(header ipv4.Header, options, payload []byte) *Datagram {
	dg := &Datagram{Header: header}
	dg.Options = make([]byte, len(options))
	copy(dg.Options, options)
	dg.Payload = make([]byte, len(payload))
	copy(dg.Payload, payload)
	return dg
}

// SetTTL arms the expiry deadline relative to now.
func (dg *Datagram) SetTTL(ttl time.Duration) {
	dg.deadline = time.Now().Add(ttl)
}

// SetDeadline arms an absolute expiry deadline.
func (dg *Datagram) SetDeadline(t time.Time) {
	dg.deadline = t
}

// Expired reports whether the datagram's lifetime has run out.  A
// datagram with no deadline set never expires.
func (dg *Datagram) Expired(now time.Time) bool {
	return !dg.deadline.IsZero() && now.After(dg.deadline)
}

// Length is the semantic IP length: fixed header plus options plus
// payload.
func (dg *Datagram) Length() int {
	return ipv4.HeaderSize + len(dg.Options) + len(dg.Payload)
}

// Queue is a singly linked FIFO of datagrams.  Head and tail pointers
// make append O(1).  Enqueue transfers ownership of the datagram to the
// queue; Dequeue transfers it back to the caller.
type Queue struct {
	head *Datagram
	tail *Datagram
	size int
}

func (q *Queue) Len() int {
	return q.size
}

func (q *Queue) Empty() bool {
	return q.head == nil
}

func (q *Queue) Enqueue(dg *Datagram) {
	dg.next = nil
	if q.tail == nil {
		q.head = dg
	} else {
		q.tail.next = dg
	}
	q.tail = dg
	q.size++
}

// Dequeue pops datagrams from the head until it finds one that is
// still alive and returns it.  Expired datagrams traversed on the way
// are discarded.  Returns nil once the queue is exhausted, exactly as
// for an empty queue.
func (q *Queue) Dequeue() *Datagram {
	now := time.Now()
	for {
		dg := q.pop()
		if dg == nil {
			return nil
		}
		if !dg.Expired(now) {
			return dg
		}
	}
}

func (q *Queue) pop() *Datagram {
	dg := q.head
	if dg == nil {
		return nil
	}
	q.head = dg.next
	if q.head == nil {
		q.tail = nil
	}
	dg.next = nil
	q.size--
	return dg
}

// Drain discards every queued datagram and reports how many were
// dropped.  Used when the interface goes down.
func (q *Queue) Drain() int {
	n := q.size
	q.head = nil
	q.tail = nil
	q.size = 0
	return n
}
