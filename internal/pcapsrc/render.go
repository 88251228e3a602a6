package pcapsrc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"handshakewatch/internal/analysis"
)

const maxTrackedFlows = 65536

type flowKey struct {
	src, dst     string
	sport, dport layers.TCPPort
}

func (f flowKey) reverse() flowKey {
	return flowKey{src: f.dst, dst: f.src, sport: f.dport, dport: f.sport}
}

// Renderer turns decoded packets into tcpdump-style summary lines:
//
//	11:26:43.974019 IP 10.0.0.2.51234 > 10.0.0.1.http: Flags [S], seq 1, win 64240, length 0
//
// Acknowledgement numbers are printed relative to the peer's initial sequence
// number once its SYN has been seen, as tcpdump does.
type Renderer struct {
	ResolvePorts bool
	Location     *time.Location

	isn map[flowKey]uint32
}

// NewRenderer creates a renderer printing local times.
func NewRenderer(resolvePorts bool) *Renderer {
	return &Renderer{
		ResolvePorts: resolvePorts,
		Location:     time.Local,
		isn:          make(map[flowKey]uint32),
	}
}

// Render formats an IPv4 TCP packet with SYN or ACK set. Other packets return false.
func (r *Renderer) Render(pkt gopacket.Packet) (string, bool) {
	ipLayer, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		return "", false
	}
	tcp, ok := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if !ok || (!tcp.SYN && !tcp.ACK) {
		return "", false
	}
	if r.isn == nil {
		r.isn = make(map[flowKey]uint32)
	}

	flow := flowKey{src: ipLayer.SrcIP.String(), dst: ipLayer.DstIP.String(), sport: tcp.SrcPort, dport: tcp.DstPort}
	peerISN, peerKnown := r.isn[flow.reverse()]
	ownISN, ownKnown := r.isn[flow]
	payload := len(tcp.Payload)

	var b strings.Builder
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	b.WriteString(pkt.Metadata().Timestamp.In(loc).Format("15:04:05.000000"))
	fmt.Fprintf(&b, " IP %s.%s > %s.%s: Flags [%s],",
		flow.src, r.port(tcp.SrcPort), flow.dst, r.port(tcp.DstPort), tcpFlags(tcp))

	switch {
	case tcp.SYN:
		fmt.Fprintf(&b, " seq %d,", tcp.Seq)
	case payload > 0 && ownKnown:
		start := tcp.Seq - ownISN
		fmt.Fprintf(&b, " seq %d:%d,", start, start+uint32(payload))
	case payload > 0:
		fmt.Fprintf(&b, " seq %d:%d,", tcp.Seq, tcp.Seq+uint32(payload))
	}

	if tcp.ACK {
		if !tcp.SYN && peerKnown {
			fmt.Fprintf(&b, " ack %d,", tcp.Ack-peerISN)
		} else {
			fmt.Fprintf(&b, " ack %d,", tcp.Ack)
		}
	}
	fmt.Fprintf(&b, " win %d, length %d", tcp.Window, payload)

	switch {
	case tcp.SYN:
		if len(r.isn) >= maxTrackedFlows {
			clear(r.isn)
		}
		r.isn[flow] = tcp.Seq
	case tcp.FIN || tcp.RST:
		delete(r.isn, flow)
		delete(r.isn, flow.reverse())
	}

	return b.String(), true
}

func (r *Renderer) port(p layers.TCPPort) string {
	if r.ResolvePorts {
		return analysis.GetServiceName(int(p))
	}
	return strconv.Itoa(int(p))
}

// tcpFlags uses tcpdump's flag letters and ordering.
func tcpFlags(tcp *layers.TCP) string {
	var b strings.Builder
	if tcp.FIN {
		b.WriteByte('F')
	}
	if tcp.SYN {
		b.WriteByte('S')
	}
	if tcp.RST {
		b.WriteByte('R')
	}
	if tcp.PSH {
		b.WriteByte('P')
	}
	if tcp.ACK {
		b.WriteByte('.')
	}
	if tcp.URG {
		b.WriteByte('U')
	}
	if tcp.ECE {
		b.WriteByte('E')
	}
	if tcp.CWR {
		b.WriteByte('W')
	}
	if b.Len() == 0 {
		return "none"
	}
	return b.String()
}
