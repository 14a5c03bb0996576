package trace

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
)

// Field names of a tshark export (tshark -T fields -e ...)
const (
	FieldTimeEpoch  = "frame.time_epoch"
	FieldIPSrc      = "ip.src"
	FieldIPDst      = "ip.dst"
	FieldTCPSrcPort = "tcp.srcport"
	FieldTCPDstPort = "tcp.dstport"
	FieldUDPSrcPort = "udp.srcport"
	FieldUDPDstPort = "udp.dstport"
	FieldFrameLen   = "frame.len"
)

// Fields is the default column layout of a field export without header line
var Fields = []string{
	FieldTimeEpoch,
	FieldIPSrc,
	FieldIPDst,
	FieldTCPSrcPort,
	FieldTCPDstPort,
	FieldUDPSrcPort,
	FieldUDPDstPort,
	FieldFrameLen,
}

// optional IPv6 address columns, counted as network layer if present
const (
	fieldIPv6Src = "ipv6.src"
	fieldIPv6Dst = "ipv6.dst"
)

type fieldsStream struct {
	reader  *csv.Reader
	closers []io.Closer

	columns map[string]int
	started bool
}

func newFieldsStream(r io.Reader, comma rune, closers []io.Closer) *fieldsStream {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	reader.LazyQuotes = true

	return &fieldsStream{
		reader:  reader,
		closers: closers,
		columns: columnIndex(Fields),
	}
}

func columnIndex(fields []string) map[string]int {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[strings.TrimSpace(f)] = i
	}
	return idx
}

var knownFields = func() map[string]struct{} {
	known := make(map[string]struct{}, len(Fields)+2)
	for _, f := range append([]string{fieldIPv6Src, fieldIPv6Dst}, Fields...) {
		known[f] = struct{}{}
	}
	return known
}()

// isHeader reports if any cell of the record is a known field name
func isHeader(record []string) bool {
	for _, cell := range record {
		if _, ok := knownFields[strings.TrimSpace(cell)]; ok {
			return true
		}
	}
	return false
}

// Next parses the next row of the export. A header line, i.e. a first line naming
// at least one known field, replaces the default column layout
func (s *fieldsStream) Next() (ft.Event, error) {
	for {
		record, err := s.reader.Read()
		if err != nil {
			return ft.Event{}, err
		}
		if !s.started {
			s.started = true
			if isHeader(record) {
				s.columns = columnIndex(record)
				continue
			}
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		return s.parse(record), nil
	}
}

func (s *fieldsStream) field(record []string, name string) string {
	i, ok := s.columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	// tshark separates multiple occurrences of a field with commas
	val, _, _ := strings.Cut(record[i], ",")
	return strings.TrimSpace(val)
}

func (s *fieldsStream) parse(record []string) ft.Event {
	var ev ft.Event

	ts, err := strconv.ParseFloat(s.field(record, FieldTimeEpoch), 64)
	if err != nil {
		ev.Timestamp = math.NaN()
		ev.Malformed = true
	} else {
		ev.Timestamp = ts
	}

	if raw := s.field(record, FieldFrameLen); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			ev.Malformed = true
		}
		ev.FrameLen = n
	}

	ev.HasNetwork = (s.field(record, FieldIPSrc) != "" && s.field(record, FieldIPDst) != "") ||
		(s.field(record, fieldIPv6Src) != "" && s.field(record, fieldIPv6Dst) != "")

	var ok bool
	if ev.TCP, ok = s.ports(record, FieldTCPSrcPort, FieldTCPDstPort); !ok {
		ev.Malformed = true
	}
	if ev.UDP, ok = s.ports(record, FieldUDPSrcPort, FieldUDPDstPort); !ok {
		ev.Malformed = true
	}

	return ev
}

// ports returns nil if neither port column is set. A present but invalid port
// is reported as not ok
func (s *fieldsStream) ports(record []string, srcField, dstField string) (*ft.Ports, bool) {
	src, dst := s.field(record, srcField), s.field(record, dstField)
	if src == "" && dst == "" {
		return nil, true
	}

	var (
		p   ft.Ports
		err error
		n   uint64
	)
	if src != "" {
		if n, err = strconv.ParseUint(src, 10, 16); err != nil {
			return nil, false
		}
		p.Src = uint16(n)
	}
	if dst != "" {
		if n, err = strconv.ParseUint(dst, 10, 16); err != nil {
			return nil, false
		}
		p.Dst = uint16(n)
	}
	return &p, true
}

func (s *fieldsStream) Close() error {
	return closeAll(s.closers)
}
