// Package arpcache maps IP addresses to hardware addresses learned
// from observed ARP traffic.
package arpcache

import (
	"sync"
	"time"

	"github.com/czietz/usbsting/packet/ethernet"
	"github.com/czietz/usbsting/packet/ipv4"
)

// DefaultEntries is the cache capacity used when the caller does not
// pick one.
const DefaultEntries = 16

type Entry struct {
	IPAddress       ipv4.IPAddress
	HardwareAddress ethernet.HardwareAddress
	Updated         time.Time
}

// Cache is a fixed-capacity set of address pairs keyed by IP address.
// Entries never expire; they are refreshed in place whenever the same
// sender is seen again.  When the cache is full new addresses are
// simply not recorded, which the sender tolerates by re-querying.
type Cache struct {
	mutex    sync.RWMutex
	entries  []Entry
	capacity int
}

func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultEntries
	}
	return &Cache{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
	}
}

func (c *Cache) Capacity() int {
	return c.capacity
}

// Lookup returns the hardware address recorded for ipaddr.  Exact key
// match only.
func (c *Cache) Lookup(ipaddr ipv4.IPAddress) (ethernet.HardwareAddress, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	for i := range c.entries {
		if c.entries[i].IPAddress == ipaddr {
			return c.entries[i].HardwareAddress, true
		}
	}
	return ethernet.HardwareAddress{}, false
}

// Update records the pair, overwriting in place when ipaddr is already
// known.  Returns false when the address is new and the cache is full.
func (c *Cache) Update(ipaddr ipv4.IPAddress, hwaddr ethernet.HardwareAddress) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for i := range c.entries {
		if c.entries[i].IPAddress == ipaddr {
			c.entries[i].HardwareAddress = hwaddr
			c.entries[i].Updated = time.Now()
			return true
		}
	}
	if len(c.entries) >= c.capacity {
		return false
	}
	c.entries = append(c.entries, Entry{
		IPAddress:       ipaddr,
		HardwareAddress: hwaddr,
		Updated:         time.Now(),
	})
	return true
}

func (c *Cache) Count() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Reset empties the cache.
func (c *Cache) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = c.entries[:0]
}

// Entries returns a snapshot of the cache contents in insertion order,
// for the inspection surface.
func (c *Cache) Entries() []Entry {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	snapshot := make([]Entry, len(c.entries))
	copy(snapshot, c.entries)
	return snapshot
}
