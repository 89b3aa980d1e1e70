package port

// Statistics counters, grouped the way the inspection tool reports
// them.  Counters only ever increase between explicit clears; none of
// them carry invariants.

type SendStats struct {
	Dequeued        uint64
	BadLength       uint64
	BadHost         uint64
	BadNetwork      uint64
	IPPackets       uint64
	ARPPackets      uint64
	ARPPacketErrors uint64
}

type ReceiveStats struct {
	TotalPackets uint64
	GoodPackets  uint64
	BadPackets   uint64
}

type ProcessStats struct {
	BroadcastIPPackets uint64
	NormalIPPackets    uint64
	BadIPPackets       uint64
	ARPPackets         uint64
	BadARPPackets      uint64
}

type ARPStats struct {
	InputErrors      uint64
	OpcodeErrors     uint64
	RequestsReceived uint64
	AnswersReceived  uint64
	WaitQueued       uint64
	WaitDequeued     uint64
	WaitRequeued     uint64
}

type IOStats struct {
	TotalPackets uint64
	Failed       uint64
}

type Stats struct {
	Send    SendStats
	Receive ReceiveStats
	Process ProcessStats
	ARP     ARPStats
	Read    IOStats
	Write   IOStats

	// port-level accounting
	SentBytes     uint64
	ReceivedBytes uint64
	Dropped       uint64
}

// Waiting reports how many datagrams the ARP counters say are still
// parked for address resolution.
func (s Stats) Waiting() uint64 {
	return s.ARP.WaitQueued + s.ARP.WaitRequeued - s.ARP.WaitDequeued
}
