package dataset

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/els0r/goExtract/pkg/formatting"
	"github.com/els0r/goExtract/pkg/labels"
)

// ClassSummary aggregates the rows of one traffic class
type ClassSummary struct {
	Label   ft.Label `json:"label"`
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Packets uint64   `json:"packets"`
	Bytes   uint64   `json:"bytes"`
	Sources int      `json:"sources"`
}

// Summary describes the class balance of a dataset
type Summary struct {
	Classes []ClassSummary `json:"classes"`
	Total   ClassSummary   `json:"total"`
}

// Summarize counts rows, packets and bytes per label
func Summarize(rows []ft.FeatureVector, table *labels.Table) *Summary {
	byLabel := make(map[ft.Label]*ClassSummary)
	sources := make(map[ft.Label]map[string]struct{})
	allSources := make(map[string]struct{})

	for i := range rows {
		row := &rows[i]
		cs, exists := byLabel[row.Label]
		if !exists {
			cs = &ClassSummary{Label: row.Label, Name: table.Name(row.Label)}
			byLabel[row.Label] = cs
			sources[row.Label] = make(map[string]struct{})
		}
		cs.Rows++
		cs.Packets += row.PacketCount
		cs.Bytes += row.ByteVolume
		sources[row.Label][row.Source] = struct{}{}
		allSources[row.Source] = struct{}{}
	}

	s := &Summary{Total: ClassSummary{Name: "Total", Sources: len(allSources)}}
	for l, cs := range byLabel {
		cs.Sources = len(sources[l])
		s.Classes = append(s.Classes, *cs)

		s.Total.Rows += cs.Rows
		s.Total.Packets += cs.Packets
		s.Total.Bytes += cs.Bytes
	}
	sort.Slice(s.Classes, func(i, j int) bool {
		return s.Classes[i].Label < s.Classes[j].Label
	})
	return s
}

const (
	tableSep = ' '
	itemSep  = "\t"
)

var summaryHeader = []string{"label", "name", "rows", "share", "packets", "bytes", "traces"}

func (c *ClassSummary) tableRow(total int) []string {
	var share float64
	if total > 0 {
		share = float64(c.Rows) / float64(total)
	}
	return []string{
		c.Label.String(),
		c.Name,
		fmt.Sprint(c.Rows),
		formatting.Ratio(share),
		formatting.Count(c.Packets),
		formatting.Size(c.Bytes),
		fmt.Sprint(c.Sources),
	}
}

// Print writes the summary as console table
func (s *Summary) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 4, tableSep, tabwriter.AlignRight)

	fmt.Fprintln(tw, strings.Join(summaryHeader, itemSep)+itemSep)

	seps := make([]string, 0, len(summaryHeader))
	for _, field := range summaryHeader {
		seps = append(seps, strings.Repeat("-", len(field)))
	}
	fmt.Fprintln(tw, strings.Join(seps, itemSep)+itemSep)

	for i := range s.Classes {
		fmt.Fprintln(tw, strings.Join(s.Classes[i].tableRow(s.Total.Rows), itemSep)+itemSep)
	}

	// empty row, then the totals
	for i := range seps {
		seps[i] = ""
	}
	fmt.Fprintln(tw, strings.Join(seps, itemSep)+itemSep)

	sumRow := s.Total.tableRow(s.Total.Rows)
	sumRow[0] = ""
	fmt.Fprintln(tw, strings.Join(sumRow, itemSep)+itemSep)

	return tw.Flush()
}
