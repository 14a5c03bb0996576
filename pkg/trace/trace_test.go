package trace

import (
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSnapLen = 65535

type testPacket struct {
	ts      time.Time
	ipv6    bool
	tcp     bool
	arp     bool
	src     uint16
	dst     uint16
	payload int
}

var (
	testSrcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	testDstMAC = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xaa}
)

func (p testPacket) serialize(t *testing.T) []byte {
	t.Helper()

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}

	eth := &layers.Ethernet{SrcMAC: testSrcMAC, DstMAC: testDstMAC, EthernetType: layers.EthernetTypeIPv4}
	if p.arp {
		eth.EthernetType = layers.EthernetTypeARP
		arp := &layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   testSrcMAC,
			SourceProtAddress: []byte{10, 0, 0, 1},
			DstHwAddress:      make([]byte, 6),
			DstProtAddress:    []byte{10, 0, 0, 2},
		}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, arp))
		return buf.Bytes()
	}

	var network gopacket.NetworkLayer
	var networkSerializer gopacket.SerializableLayer
	proto := layers.IPProtocolUDP
	if p.tcp {
		proto = layers.IPProtocolTCP
	}
	if p.ipv6 {
		eth.EthernetType = layers.EthernetTypeIPv6
		ip := &layers.IPv6{
			Version:    6,
			HopLimit:   64,
			NextHeader: proto,
			SrcIP:      net.ParseIP("fd00::1"),
			DstIP:      net.ParseIP("fd00::2"),
		}
		network, networkSerializer = ip, ip
	} else {
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: proto,
			SrcIP:    net.IP{10, 1, 3, 1},
			DstIP:    net.IP{10, 1, 3, 2},
		}
		network, networkSerializer = ip, ip
	}

	payload := gopacket.Payload(make([]byte, p.payload))
	if p.tcp {
		tcp := &layers.TCP{SrcPort: layers.TCPPort(p.src), DstPort: layers.TCPPort(p.dst), Seq: 1, ACK: true, Window: 14600}
		require.NoError(t, tcp.SetNetworkLayerForChecksum(network))
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, networkSerializer, tcp, payload))
	} else {
		udp := &layers.UDP{SrcPort: layers.UDPPort(p.src), DstPort: layers.UDPPort(p.dst)}
		require.NoError(t, udp.SetNetworkLayerForChecksum(network))
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, networkSerializer, udp, payload))
	}
	return buf.Bytes()
}

var testPackets = []testPacket{
	{ts: time.Unix(1700000000, 100000000), src: 40000, dst: 9001, payload: 58},
	{ts: time.Unix(1700000001, 0), tcp: true, src: 9004, dst: 41000, payload: 10},
	{ts: time.Unix(1700000000, 200000000), ipv6: true, src: 40001, dst: 9050, payload: 20},
	{ts: time.Unix(1700000006, 0), arp: true},
}

func writePcap(t *testing.T, w io.Writer) {
	t.Helper()

	pw := pcapgo.NewWriter(w)
	require.NoError(t, pw.WriteFileHeader(testSnapLen, layers.LinkTypeEthernet))
	for _, p := range testPackets {
		data := p.serialize(t)
		require.NoError(t, pw.WritePacket(gopacket.CaptureInfo{
			Timestamp:     p.ts,
			CaptureLength: len(data),
			Length:        len(data),
		}, data))
	}
}

func writePcapNG(t *testing.T, w io.Writer) {
	t.Helper()

	nw, err := pcapgo.NewNgWriter(w, layers.LinkTypeEthernet)
	require.NoError(t, err)
	for _, p := range testPackets {
		data := p.serialize(t)
		require.NoError(t, nw.WritePacket(gopacket.CaptureInfo{
			Timestamp:     p.ts,
			CaptureLength: len(data),
			Length:        len(data),
		}, data))
	}
	require.NoError(t, nw.Flush())
}

func writeFile(t *testing.T, path string, compress bool, write func(*testing.T, io.Writer)) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	if !compress {
		write(t, f)
		return
	}
	gz := gzip.NewWriter(f)
	write(t, gz)
	require.NoError(t, gz.Close())
}

func readAll(t *testing.T, src Source) []ft.Event {
	t.Helper()

	stream, err := src.Open()
	require.NoError(t, err)
	defer func() {
		require.NoError(t, stream.Close())
	}()

	var events []ft.Event
	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestCaptureSources(t *testing.T) {
	dir := t.TempDir()

	var tests = []struct {
		name     string
		file     string
		compress bool
		write    func(*testing.T, io.Writer)
	}{
		{"pcap", "trace-ml-ip-0-1.pcap", false, writePcap},
		{"pcap gzip", "trace-ml-ip-0-1.pcap.gz", true, writePcap},
		{"pcapng", "trace.pcapng", false, writePcapNG},
		{"pcapng gzip", "trace.pcapng.gz", true, writePcapNG},
		{"pcapng stored as pcap", "trace-ng.pcap", false, writePcapNG},
		{"unknown extension", "trace.dump", false, writePcap},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(dir, test.file)
			writeFile(t, path, test.compress, test.write)

			src := NewFileSource(path)
			assert.Equal(t, path, src.Name())

			events := readAll(t, src)
			require.Len(t, events, len(testPackets))

			// UDP over IPv4
			assert.InDelta(t, 1700000000.1, events[0].Timestamp, 1e-6)
			assert.True(t, events[0].HasNetwork)
			assert.Nil(t, events[0].TCP)
			require.NotNil(t, events[0].UDP)
			assert.Equal(t, ft.Ports{Src: 40000, Dst: 9001}, *events[0].UDP)
			assert.Equal(t, 14+20+8+58, events[0].FrameLen)

			// TCP over IPv4
			require.NotNil(t, events[1].TCP)
			assert.Nil(t, events[1].UDP)
			assert.Equal(t, ft.Ports{Src: 9004, Dst: 41000}, *events[1].TCP)
			assert.Equal(t, 14+20+20+10, events[1].FrameLen)

			// UDP over IPv6
			assert.True(t, events[2].HasNetwork)
			require.NotNil(t, events[2].UDP)
			assert.Equal(t, uint16(9050), events[2].UDP.Dst)
			assert.Equal(t, 14+40+8+20, events[2].FrameLen)

			// ARP has no network layer
			assert.False(t, events[3].HasNetwork)
			assert.Nil(t, events[3].TCP)
			assert.Nil(t, events[3].UDP)

			for _, ev := range events {
				assert.True(t, ev.Consistent())
			}

			// a source must be re-openable
			assert.Len(t, readAll(t, src), len(testPackets))
		})
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileSource(filepath.Join(dir, "missing.pcap")).Open()
	require.ErrorIs(t, err, ErrOpen)
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(dir, "garbage.pcap")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a capture file"), 0600))
	_, err = NewFileSource(garbage).Open()
	require.ErrorIs(t, err, ErrOpen)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	empty := filepath.Join(dir, "empty.pcap")
	require.NoError(t, os.WriteFile(empty, nil, 0600))
	_, err = NewFileSource(empty).Open()
	assert.ErrorIs(t, err, ErrUnknownFormat)

	notGzip := filepath.Join(dir, "plain.pcap.gz")
	writeFile(t, notGzip, false, writePcap)
	_, err = NewFileSource(notGzip).Open()
	assert.ErrorIs(t, err, ErrOpen)
}

func TestDecodePacketTruncated(t *testing.T) {
	data := testPackets[0].serialize(t)

	ev := DecodePacket(data, gopacket.CaptureInfo{
		Timestamp:     time.Unix(10, 0),
		CaptureLength: len(data),
		Length:        len(data) - 10,
	}, layers.LinkTypeEthernet)
	assert.True(t, ev.Malformed)

	// snap length shorter than the frame: length is taken from the wire
	ev = DecodePacket(data[:34], gopacket.CaptureInfo{
		Timestamp:     time.Unix(10, 0),
		CaptureLength: 34,
		Length:        len(data),
	}, layers.LinkTypeEthernet)
	assert.False(t, ev.Malformed)
	assert.True(t, ev.HasNetwork)
	assert.Equal(t, len(data), ev.FrameLen)
}

func TestFieldsSource(t *testing.T) {
	var tests = []struct {
		name     string
		file     string
		content  string
		expected []ft.Event
	}{
		{
			"tshark export without header",
			"export.csv",
			`"1700000000.100000","10.1.3.1","10.1.3.2","","","40000","9001","100"
"1700000001.000000","10.1.3.2","10.1.3.1","9004","41000","","","64"
"1700000002.000000","","","","","","","42"
`,
			[]ft.Event{
				{Timestamp: 1700000000.1, FrameLen: 100, HasNetwork: true, UDP: &ft.Ports{Src: 40000, Dst: 9001}},
				{Timestamp: 1700000001, FrameLen: 64, HasNetwork: true, TCP: &ft.Ports{Src: 9004, Dst: 41000}},
				{Timestamp: 1700000002, FrameLen: 42},
			},
		},
		{
			"header with reordered columns",
			"export.csv",
			`frame.len,frame.time_epoch,ip.src,ip.dst,udp.srcport,udp.dstport
60,0.5,10.0.0.1,10.0.0.2,5353,5353
`,
			[]ft.Event{
				{Timestamp: 0.5, FrameLen: 60, HasNetwork: true, UDP: &ft.Ports{Src: 5353, Dst: 5353}},
			},
		},
		{
			"header with time column last",
			"export.csv",
			`ip.src,ip.dst,udp.srcport,udp.dstport,frame.len,frame.time_epoch
10.0.0.1,10.0.0.2,40000,9001,120,1.25
10.0.0.1,10.0.0.2,40000,9001,80,2.5
`,
			[]ft.Event{
				{Timestamp: 1.25, FrameLen: 120, HasNetwork: true, UDP: &ft.Ports{Src: 40000, Dst: 9001}},
				{Timestamp: 2.5, FrameLen: 80, HasNetwork: true, UDP: &ft.Ports{Src: 40000, Dst: 9001}},
			},
		},
		{
			"tab separated header with IPv6 and padding",
			"export.tsv",
			" ipv6.src \tipv6.dst\ttcp.srcport\ttcp.dstport\tframe.time_epoch\tframe.len\n" +
				"fe80::1\tfe80::2\t9004\t41000\t3\t64\n",
			[]ft.Event{
				{Timestamp: 3, FrameLen: 64, HasNetwork: true, TCP: &ft.Ports{Src: 9004, Dst: 41000}},
			},
		},
		{
			"tab separated with multiple occurrences",
			"export.tsv",
			"0.25\t10.0.0.1,192.168.0.1\t10.0.0.2,192.168.0.2\t\t\t4789,9005\t4789,9006\t150\n",
			[]ft.Event{
				{Timestamp: 0.25, FrameLen: 150, HasNetwork: true, UDP: &ft.Ports{Src: 4789, Dst: 4789}},
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), test.file)
			require.NoError(t, os.WriteFile(path, []byte(test.content), 0600))

			events := readAll(t, NewFileSource(path))
			require.Len(t, events, len(test.expected))
			for i, ev := range events {
				assert.InDelta(t, test.expected[i].Timestamp, ev.Timestamp, 1e-9)
				ev.Timestamp = test.expected[i].Timestamp
				assert.Equal(t, test.expected[i], ev)
			}
		})
	}
}

func TestFieldsSourceMalformed(t *testing.T) {
	content := strings.Join([]string{
		`not-a-time,10.0.0.1,10.0.0.2,,,1,2,60`,
		`1.0,10.0.0.1,10.0.0.2,,,99999,2,60`,
		`1.0,10.0.0.1,10.0.0.2,,,1,2,sixty`,
		`1.0,10.0.0.1,10.0.0.2,,,1,2,60`,
	}, "\n")

	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	events := readAll(t, NewFileSource(path))
	require.Len(t, events, 4)
	for i := 0; i < 3; i++ {
		assert.False(t, events[i].Consistent(), "row %d", i)
	}
	assert.True(t, events[3].Consistent())
}

func TestWithFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.txt")
	require.NoError(t, os.WriteFile(path, []byte("1.0,10.0.0.1,10.0.0.2,,,1,2,60\n"), 0600))

	_, err := NewFileSource(path).Open()
	assert.ErrorIs(t, err, ErrUnknownFormat)

	format, err := ParseFormat("CSV")
	require.NoError(t, err)
	assert.Len(t, readAll(t, NewFileSource(path).WithFormat(format)), 1)

	_, err = ParseFormat("parquet")
	assert.Error(t, err)
}

func TestEventSource(t *testing.T) {
	src := NewEventSource("mem", ft.Event{Timestamp: 1}, ft.Event{Timestamp: 2})
	assert.Equal(t, "mem", src.Name())
	assert.Len(t, readAll(t, src), 2)
	assert.Len(t, readAll(t, src), 2)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"trace-ml-ip-0-1.pcap", "trace-ml-ip-1-1.pcap", "b.pcapng.gz", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0600))
	}

	d, err := Discover(filepath.Join(dir, "trace-ml-ip-*.pcap"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "trace-ml-ip-0-1.pcap"),
		filepath.Join(dir, "trace-ml-ip-1-1.pcap"),
	}, d.Paths)
	assert.Empty(t, d.Unmatched)

	d, err = Discover(dir, filepath.Join(dir, "trace-ml-ip-0-1.pcap"), filepath.Join(dir, "*.cap"), "missing.pcap")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "b.pcapng.gz"),
		filepath.Join(dir, "trace-ml-ip-0-1.pcap"),
		filepath.Join(dir, "trace-ml-ip-1-1.pcap"),
		"missing.pcap",
	}, d.Paths)
	assert.Equal(t, []string{filepath.Join(dir, "*.cap")}, d.Unmatched)

	_, err = Discover("[")
	assert.Error(t, err)
}
