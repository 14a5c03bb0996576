package trace

import (
	"io"

	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var defaultDecodeOptions = gopacket.DecodeOptions{
	Lazy:   true,
	NoCopy: true,
}

// packetDataReader is implemented by both the pcap and the pcapng reader
type packetDataReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

type pcapStream struct {
	reader  packetDataReader
	closers []io.Closer
}

func newPcapStream(r io.Reader, closers []io.Closer) (*pcapStream, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &pcapStream{reader: reader, closers: closers}, nil
}

func newPcapNGStream(r io.Reader, closers []io.Closer) (*pcapStream, error) {
	reader, err := pcapgo.NewNgReader(r, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		return nil, err
	}
	return &pcapStream{reader: reader, closers: closers}, nil
}

// Next reads and decodes the next packet of the capture
func (s *pcapStream) Next() (ft.Event, error) {
	data, ci, err := s.reader.ReadPacketData()
	if err != nil {
		return ft.Event{}, err
	}
	return DecodePacket(data, ci, s.reader.LinkType()), nil
}

func (s *pcapStream) Close() error {
	return closeAll(s.closers)
}

// DecodePacket extracts the fields relevant for feature extraction from a captured
// frame
func DecodePacket(data []byte, ci gopacket.CaptureInfo, linkType layers.LinkType) ft.Event {
	ev := ft.Event{
		Timestamp: float64(ci.Timestamp.Unix()) + float64(ci.Timestamp.Nanosecond())/1e9,
		FrameLen:  ci.Length,
	}
	if ev.FrameLen == 0 {
		ev.FrameLen = ci.CaptureLength
	}

	// more bytes than were on the wire cannot have been captured
	if ci.CaptureLength > ci.Length && ci.Length > 0 {
		ev.Malformed = true
	}

	packet := gopacket.NewPacket(data, linkType, defaultDecodeOptions)

	network := packet.NetworkLayer()
	if network == nil {
		return ev
	}
	switch network.LayerType() {
	case layers.LayerTypeIPv4, layers.LayerTypeIPv6:
		ev.HasNetwork = true
	default:
		return ev
	}

	if tcp, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
		ev.TCP = &ft.Ports{Src: uint16(tcp.SrcPort), Dst: uint16(tcp.DstPort)}
	}
	if udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP); ok {
		ev.UDP = &ft.Ports{Src: uint16(udp.SrcPort), Dst: uint16(udp.DstPort)}
	}

	return ev
}
