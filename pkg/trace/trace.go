// Package trace provides the sources of decoded packet events fed into the
// feature extraction. A source wraps a capture file (pcap, pcapng, optionally
// gzip compressed) or a tshark field export
package trace

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/els0r/goExtract/pkg/types"
	"github.com/klauspost/compress/gzip"
)

var (
	// ErrOpen is returned if a trace does not exist or cannot be read
	ErrOpen = errors.New("failed to open trace")

	// ErrUnknownFormat is returned if the content of a trace cannot be identified
	ErrUnknownFormat = errors.New("unknown trace format")
)

// Stream yields the events of an opened trace, in the order they are stored
type Stream interface {

	// Next returns the next event. io.EOF marks the end of the stream
	Next() (ft.Event, error)

	// Close releases all resources held by the stream
	Close() error
}

// Source denotes a trace that can be opened (and re-opened) for reading
type Source interface {

	// Name identifies the trace, e.g. in the group ids of the dataset
	Name() string

	// Open starts a new pass over the trace
	Open() (Stream, error)
}

// Format denotes the storage format of a trace file
type Format int

// Supported trace formats
const (
	FormatAuto Format = iota
	FormatPcap
	FormatPcapNG
	FormatFieldsCSV
	FormatFieldsTSV
)

var formatNames = map[Format]string{
	FormatAuto:      "auto",
	FormatPcap:      "pcap",
	FormatPcapNG:    "pcapng",
	FormatFieldsCSV: "csv",
	FormatFieldsTSV: "tsv",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", f)
}

const gzipSuffix = ".gz"

var extensions = map[string]Format{
	".pcap":   FormatPcap,
	".cap":    FormatPcap,
	".pcapng": FormatPcapNG,
	".csv":    FormatFieldsCSV,
	".tsv":    FormatFieldsTSV,
}

// Extensions returns the supported file extensions (without compression suffix)
func Extensions() []string {
	return []string{".pcap", ".cap", ".pcapng", ".csv", ".tsv"}
}

// FileSource is a trace stored on disk
type FileSource struct {
	path       string
	format     Format
	compressed bool
}

// NewFileSource creates a trace source for a file. The format is derived from the
// file extension, capture files are additionally identified by their magic bytes
func NewFileSource(path string) *FileSource {
	base := strings.ToLower(filepath.Base(path))

	s := &FileSource{path: path}
	if strings.HasSuffix(base, gzipSuffix) {
		s.compressed = true
		base = strings.TrimSuffix(base, gzipSuffix)
	}
	s.format = extensions[filepath.Ext(base)]

	return s
}

// Name returns the path of the trace file
func (s *FileSource) Name() string {
	return s.path
}

// Path returns the path of the trace file
func (s *FileSource) Path() string {
	return s.path
}

// Open opens the file for a new pass
func (s *FileSource) Open() (Stream, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, s.path, err)
	}

	closers := []io.Closer{f}
	var r io.Reader = f
	if s.compressed {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w %s: %w", ErrOpen, s.path, err)
		}
		closers = append([]io.Closer{gz}, closers...)
		r = gz
	}

	stream, err := s.openStream(r, closers)
	if err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, s.path, err)
	}
	return stream, nil
}

func (s *FileSource) openStream(r io.Reader, closers []io.Closer) (Stream, error) {
	switch s.format {
	case FormatFieldsCSV:
		return newFieldsStream(r, ',', closers), nil
	case FormatFieldsTSV:
		return newFieldsStream(r, '\t', closers), nil
	}

	br := bufio.NewReader(r)
	format, err := sniff(br)
	if err != nil {
		return nil, err
	}
	if format == FormatPcapNG {
		return newPcapNGStream(br, closers)
	}
	return newPcapStream(br, closers)
}

// Magic numbers of the capture file formats, as they appear on disk
const (
	magicPcapMicros   = 0xa1b2c3d4
	magicPcapNanos    = 0xa1b23c4d
	magicPcapNGHeader = 0x0a0d0d0a
)

// sniff identifies the capture format from the first block of the file. Files are
// frequently stored as pcapng with a .pcap extension, hence the extension is not
// consulted
func sniff(br *bufio.Reader) (Format, error) {
	magic, err := br.Peek(4)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return FormatAuto, fmt.Errorf("%w: file too short", ErrUnknownFormat)
		}
		return FormatAuto, err
	}

	be, le := binary.BigEndian.Uint32(magic), binary.LittleEndian.Uint32(magic)
	switch {
	case be == magicPcapNGHeader:
		return FormatPcapNG, nil
	case be == magicPcapMicros, le == magicPcapMicros, be == magicPcapNanos, le == magicPcapNanos:
		return FormatPcap, nil
	}
	return FormatAuto, fmt.Errorf("%w: magic %#x", ErrUnknownFormat, be)
}

// ParseFormat converts a format name, as used on the command line
func ParseFormat(s string) (Format, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for f, name := range formatNames {
		if name == norm {
			return f, nil
		}
	}
	return FormatAuto, types.NewUnsupportedError(s, Formats())
}

// Formats lists the names of all input formats
func Formats() []string {
	valid := make([]string, 0, len(formatNames))
	for f := FormatAuto; f <= FormatFieldsTSV; f++ {
		valid = append(valid, f.String())
	}
	return valid
}

// WithFormat overrides the format derived from the file name
func (s *FileSource) WithFormat(f Format) *FileSource {
	if f != FormatAuto {
		s.format = f
	}
	return s
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
