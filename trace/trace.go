// Package trace keeps a fixed-size ring of recent device operations
// for after-the-fact inspection.
package trace

import (
	"sync"
	"time"
)

type Op uint8

const (
	OpRead Op = iota + 1
	OpWrite
	OpMACGet
)

func (op Op) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpMACGet:
		return "mac-get"
	default:
		return "unknown"
	}
}

// DataLen bytes of each traced buffer are captured.
const DataLen = 16

type Record struct {
	Time   time.Time
	Op     Op
	RC     int
	Length int
	Data   [DataLen]byte
}

// Ring is a fixed ring of trace records.  A nil *Ring is a valid
// disabled ring: Add is a no-op and Records is empty.
type Ring struct {
	mutex   sync.Mutex
	records []Record
	next    int
	filled  bool
}

func NewRing(entries int) *Ring {
	if entries <= 0 {
		return nil
	}
	return &Ring{records: make([]Record, entries)}
}

func (r *Ring) Cap() int {
	if r == nil {
		return 0
	}
	return len(r.records)
}

// Add records one operation, overwriting the oldest entry when full.
func (r *Ring) Add(op Op, rc int, length int, data []byte) {
	if r == nil {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rec := &r.records[r.next]
	rec.Time = time.Now()
	rec.Op = op
	rec.RC = rc
	rec.Length = length
	rec.Data = [DataLen]byte{}
	if length > 0 {
		copy(rec.Data[:], data)
	}
	r.next++
	if r.next >= len(r.records) {
		r.next = 0
		r.filled = true
	}
}

// Records returns the recorded operations, oldest first.
func (r *Ring) Records() []Record {
	if r == nil {
		return nil
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if !r.filled {
		out := make([]Record, r.next)
		copy(out, r.records[:r.next])
		return out
	}
	out := make([]Record, 0, len(r.records))
	out = append(out, r.records[r.next:]...)
	out = append(out, r.records[:r.next]...)
	return out
}

// Clear forgets all recorded operations.
func (r *Ring) Clear() {
	if r == nil {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for i := range r.records {
		r.records[i] = Record{}
	}
	r.next = 0
	r.filled = false
}
