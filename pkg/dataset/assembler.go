// Package dataset merges the feature vectors of all processed traces into one
// table and writes it out
package dataset

import (
	"errors"
	"path/filepath"
	"sort"
	"sync"

	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
)

// ErrEmptyDataset is returned if none of the traces contributed a row
var ErrEmptyDataset = errors.New("dataset is empty: no trace produced any feature vector")

// Assembler collects the rows of independently processed traces. It is safe for
// concurrent use
type Assembler struct {
	sync.Mutex

	traces map[string][]ft.FeatureVector
	order  []string
}

// NewAssembler creates an empty assembler
func NewAssembler() *Assembler {
	return &Assembler{
		traces: make(map[string][]ft.FeatureVector),
	}
}

// Add registers the rows of a trace. Traces without rows are registered as well,
// so that they take part in source name disambiguation
func (a *Assembler) Add(source string, rows []ft.FeatureVector) {
	a.Lock()
	defer a.Unlock()

	if _, exists := a.traces[source]; !exists {
		a.order = append(a.order, source)
	}
	a.traces[source] = append(a.traces[source], rows...)
}

// Len returns the number of rows collected so far
func (a *Assembler) Len() (n int) {
	a.Lock()
	defer a.Unlock()

	for _, rows := range a.traces {
		n += len(rows)
	}
	return
}

// Rows returns the merged table. Group ids are prefixed with the name of the source
// trace. Rows are ordered by source name, then by label and window.
// ErrEmptyDataset is returned if there are no rows at all
func (a *Assembler) Rows() ([]ft.FeatureVector, error) {
	a.Lock()
	defer a.Unlock()

	names := SourceNames(a.order)

	sources := make([]string, len(a.order))
	copy(sources, a.order)
	sort.Slice(sources, func(i, j int) bool {
		return names[sources[i]] < names[sources[j]]
	})

	var merged []ft.FeatureVector
	for _, source := range sources {
		rows := make([]ft.FeatureVector, len(a.traces[source]))
		copy(rows, a.traces[source])

		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Label != rows[j].Label {
				return rows[i].Label < rows[j].Label
			}
			return rows[i].Key.Less(rows[j].Key)
		})

		name := names[source]
		for i := range rows {
			rows[i].Source = source
			rows[i].GroupID = name + "/" + rows[i].GroupID
		}
		merged = append(merged, rows...)
	}

	if len(merged) == 0 {
		return nil, ErrEmptyDataset
	}
	return merged, nil
}

// SourceNames maps each source to the name used in group ids: its base name, or the
// cleaned path if the base name is shared with another source
func SourceNames(sources []string) map[string]string {
	count := make(map[string]int, len(sources))
	for _, s := range sources {
		count[filepath.Base(s)]++
	}

	names := make(map[string]string, len(sources))
	for _, s := range sources {
		base := filepath.Base(s)
		if count[base] > 1 {
			names[s] = filepath.ToSlash(filepath.Clean(s))
			continue
		}
		names[s] = base
	}
	return names
}
