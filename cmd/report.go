package cmd

import (
	"fmt"
	"io"

	"github.com/czietz/usbsting/port"
	"github.com/czietz/usbsting/trace"
)

// writeReport prints the statistics, the ARP cache contents and the
// operation trace of a port in the layout the old control tool used.
func writeReport(w io.Writer, p *port.Port) {
	stats := p.Stats()

	fmt.Fprintf(w, "%s statistics\n", p.Name())
	fmt.Fprintf(w, "--------------------\n")
	fmt.Fprintf(w, "  Default MAC address: %s\n", p.HardwareAddress())
	fmt.Fprintf(w, "  Current MAC address: %s\n\n", p.MACAddress())

	fmt.Fprintf(w, "  Input counts:\n")
	fmt.Fprintf(w, "    %7d reads\n", stats.Read.TotalPackets)
	if stats.Read.Failed > 0 {
		fmt.Fprintf(w, "    *** %d reads failed ***\n", stats.Read.Failed)
	}
	fmt.Fprintf(w, "    %7d packets received (%d valid, %d invalid)\n",
		stats.Receive.TotalPackets, stats.Receive.GoodPackets, stats.Receive.BadPackets)
	fmt.Fprintf(w, "    %7d packets processed (%d broadcast IP, %d normal IP, %d ARP)\n",
		stats.Process.BroadcastIPPackets+stats.Process.NormalIPPackets+stats.Process.ARPPackets,
		stats.Process.BroadcastIPPackets, stats.Process.NormalIPPackets, stats.Process.ARPPackets)
	if stats.Process.BadIPPackets > 0 {
		fmt.Fprintf(w, "    *** %d invalid IP packets ***\n", stats.Process.BadIPPackets)
	}
	if stats.Process.BadARPPackets > 0 {
		fmt.Fprintf(w, "    *** %d invalid ARP packets ***\n", stats.Process.BadARPPackets)
	}

	fmt.Fprintf(w, "  Output counts:\n")
	fmt.Fprintf(w, "    %7d packets dequeued for sending\n", stats.Send.Dequeued)
	if stats.Send.BadLength > 0 {
		fmt.Fprintf(w, "    *** %d packets with invalid length ***\n", stats.Send.BadLength)
	}
	if stats.Send.BadHost > 0 {
		fmt.Fprintf(w, "    *** %d packets with invalid host ***\n", stats.Send.BadHost)
	}
	if stats.Send.BadNetwork > 0 {
		fmt.Fprintf(w, "    *** %d packets with invalid network ***\n", stats.Send.BadNetwork)
	}
	fmt.Fprintf(w, "    %7d packets sent (%d IP, %d ARP)\n",
		stats.Send.IPPackets+stats.Send.ARPPackets, stats.Send.IPPackets, stats.Send.ARPPackets)
	if stats.Send.ARPPacketErrors > 0 {
		fmt.Fprintf(w, "    *** %d ARP packet sends failed ***\n", stats.Send.ARPPacketErrors)
	}
	fmt.Fprintf(w, "    %7d writes\n", stats.Write.TotalPackets)
	if stats.Write.Failed > 0 {
		fmt.Fprintf(w, "    *** %d writes failed ***\n", stats.Write.Failed)
	}

	fmt.Fprintf(w, "  ARP handling:\n")
	if stats.ARP.InputErrors > 0 {
		fmt.Fprintf(w, "    *** %d ARP input packets with unusual contents ***\n", stats.ARP.InputErrors)
	}
	if stats.ARP.OpcodeErrors > 0 {
		fmt.Fprintf(w, "    *** %d ARP input packets with unexpected opcodes ***\n", stats.ARP.OpcodeErrors)
	}
	fmt.Fprintf(w, "    %7d ARP requests received, %d ARP answers received\n",
		stats.ARP.RequestsReceived, stats.ARP.AnswersReceived)
	fmt.Fprintf(w, "    %7d packets queued, %d dequeued, %d requeued (waiting for ARP)\n",
		stats.ARP.WaitQueued, stats.ARP.WaitDequeued, stats.ARP.WaitRequeued)
	if n := stats.Waiting(); n > 0 {
		fmt.Fprintf(w, "    *** %d packets are currently awaiting address resolution ***\n", n)
	}
	fmt.Fprintf(w, "\n")

	writeARPTable(w, p)
	writeTrace(w, p)
}

func writeARPTable(w io.Writer, p *port.Port) {
	entries := p.ARPEntries()
	fmt.Fprintf(w, "  ARP cache (%d of %d entries):\n", len(entries), p.ARPCapacity())
	for _, e := range entries {
		fmt.Fprintf(w, "    %-15s  %s\n", e.IPAddress, e.HardwareAddress)
	}
	fmt.Fprintf(w, "\n")
}

func writeTrace(w io.Writer, p *port.Port) {
	if p.TraceCapacity() == 0 {
		return
	}
	records := p.Trace()
	fmt.Fprintf(w, "  Trace (%d of %d entries):\n", len(records), p.TraceCapacity())
	for _, rec := range records {
		fmt.Fprintf(w, "    %s %-8s rc=%-5d len=%-5d % x\n",
			rec.Time.Format("15:04:05.000"), rec.Op, rec.RC, rec.Length,
			rec.Data[:min(rec.Length, trace.DataLen)])
	}
	fmt.Fprintf(w, "\n")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
