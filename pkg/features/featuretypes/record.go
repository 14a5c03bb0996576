// Package featuretypes holds the value types passed between the stages of the
// feature extraction pipeline
package featuretypes

import "math"

// Transport denotes the transport layer protocol of a packet
type Transport uint8

// Supported transport layer kinds
const (
	TransportOther Transport = iota
	TransportTCP
	TransportUDP

	// NumTransports : number of tracked transport kinds
	NumTransports
)

var transportNames = [NumTransports]string{
	"other",
	"tcp",
	"udp",
}

// String returns a string representation of the transport kind
func (t Transport) String() string {
	if t >= NumTransports {
		return transportNames[TransportOther]
	}
	return transportNames[t]
}

// Port is an optional transport layer port
type Port struct {
	Num   uint16
	Valid bool
}

// NewPort returns a present port
func NewPort(num uint16) Port {
	return Port{Num: num, Valid: true}
}

// PacketRecord is the canonical, protocol independent view of a single packet
type PacketRecord struct {
	Timestamp float64 // Timestamp: capture time in seconds
	Length    uint32  // Length: total frame length in bytes
	Transport Transport
	SrcPort   Port
	DstPort   Port
}

// Ports groups the source and destination port of a transport header
type Ports struct {
	Src uint16
	Dst uint16
}

// Event is a decoded packet as handed over by a trace source. It carries the raw
// fields the decoder could extract, without any interpretation
type Event struct {
	Timestamp  float64 // Timestamp: capture time in seconds
	FrameLen   int     // FrameLen: total frame length in bytes
	HasNetwork bool    // HasNetwork: an IPv4 / IPv6 header was decoded
	Malformed  bool    // Malformed: the decoder flagged the packet as inconsistent

	TCP *Ports // TCP: ports of the TCP header, if any
	UDP *Ports // UDP: ports of the UDP header, if any
}

// Consistent reports if the fields of the event can be turned into a record
func (e *Event) Consistent() bool {
	return !e.Malformed && e.FrameLen >= 0 && int64(e.FrameLen) <= math.MaxUint32 &&
		!math.IsNaN(e.Timestamp) && !math.IsInf(e.Timestamp, 0)
}
