package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/els0r/goExtract/pkg/types"
	jsoniter "github.com/json-iterator/go"
)

// Format denotes the serialization of the dataset
type Format string

// Supported output formats
const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// Formats returns the names of all output formats
func Formats() []string {
	return []string{string(FormatCSV), string(FormatJSONL)}
}

// ParseFormat converts an output format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSONL:
		return f, nil
	}
	return "", types.NewUnsupportedError(s, Formats())
}

// Header denotes the naming of the CSV header columns
type Header string

// Supported header styles
const (
	HeaderLogical Header = "logical"
	HeaderLegacy  Header = "legacy"
)

// Headers returns the names of all header styles
func Headers() []string {
	return []string{string(HeaderLogical), string(HeaderLegacy)}
}

// ParseHeader converts a header style name
func ParseHeader(s string) (Header, error) {
	switch h := Header(strings.ToLower(strings.TrimSpace(s))); h {
	case HeaderLogical, HeaderLegacy:
		return h, nil
	}
	return "", types.NewUnsupportedError(s, Headers())
}

// Columns returns the column names of the header style
func (h Header) Columns() []string {
	if h == HeaderLegacy {
		return ft.LegacyColumns
	}
	return ft.Columns
}

// ColumnSet selects which feature columns are written
type ColumnSet string

// Supported column sets. The extended set appends the packet length statistics
// and the dominant destination port to the standard columns
const (
	ColumnsStandard ColumnSet = "standard"
	ColumnsExtended ColumnSet = "extended"
)

// ColumnSets returns the names of all column sets
func ColumnSets() []string {
	return []string{string(ColumnsStandard), string(ColumnsExtended)}
}

// ParseColumns converts a column set name
func ParseColumns(s string) (ColumnSet, error) {
	switch c := ColumnSet(strings.ToLower(strings.TrimSpace(s))); c {
	case ColumnsStandard, ColumnsExtended:
		return c, nil
	}
	return "", types.NewUnsupportedError(s, ColumnSets())
}

// Names returns the header line of the column set in the given header style
func (c ColumnSet) Names(header Header) []string {
	if c != ColumnsExtended {
		return header.Columns()
	}
	if header == HeaderLegacy {
		return ft.LegacyExtendedColumns
	}
	return ft.ExtendedColumns
}

func (c ColumnSet) values(fv *ft.FeatureVector) []string {
	if c == ColumnsExtended {
		return fv.ExtendedStrings()
	}
	return fv.Strings()
}

// Writer serializes the rows of a dataset
type Writer interface {
	Write(rows []ft.FeatureVector) error
}

// NewWriter returns a writer for the output format
func NewWriter(w io.Writer, format Format, header Header, columns ColumnSet) (Writer, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(w, header, columns), nil
	case FormatJSONL:
		return NewJSONLWriter(w, columns), nil
	}
	return nil, types.NewUnsupportedError(string(format), Formats())
}

// CSVWriter writes the dataset as comma separated values with a header line
type CSVWriter struct {
	w       *csv.Writer
	header  Header
	columns ColumnSet
}

// NewCSVWriter creates a CSV writer
func NewCSVWriter(w io.Writer, header Header, columns ColumnSet) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), header: header, columns: columns}
}

// Write writes the header line and all rows
func (c *CSVWriter) Write(rows []ft.FeatureVector) error {
	if err := c.w.Write(c.columns.Names(c.header)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range rows {
		if err := c.w.Write(c.columns.values(&rows[i])); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	c.w.Flush()
	return c.w.Error()
}

// JSONLWriter writes one JSON object per row
type JSONLWriter struct {
	enc     *jsoniter.Encoder
	columns ColumnSet
}

// NewJSONLWriter creates a JSON lines writer
func NewJSONLWriter(w io.Writer, columns ColumnSet) *JSONLWriter {
	return &JSONLWriter{enc: jsoniter.NewEncoder(w), columns: columns}
}

// extendedRow adds the extended columns to the encoded feature vector
type extendedRow struct {
	*ft.FeatureVector
	PktLenMean      float64 `json:"mean_pkt_len"`
	PktLenStd       float64 `json:"std_pkt_len"`
	DominantDstPort int     `json:"dominant_dst_port"`
}

// Write encodes all rows
func (j *JSONLWriter) Write(rows []ft.FeatureVector) error {
	for i := range rows {
		var v interface{} = &rows[i]
		if j.columns == ColumnsExtended {
			v = extendedRow{
				FeatureVector:   &rows[i],
				PktLenMean:      rows[i].PktLenMean,
				PktLenStd:       rows[i].PktLenStd,
				DominantDstPort: rows[i].DominantDstPort,
			}
		}
		if err := j.enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode row %d: %w", i, err)
		}
	}
	return nil
}
