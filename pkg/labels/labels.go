// Package labels resolves port numbers to traffic class labels. A Table is
// immutable once built and may be queried from any number of goroutines
package labels

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/els0r/goExtract/pkg/types"
)

var (
	// ErrEmptyTable is returned when a table without any entries is built
	ErrEmptyTable = errors.New("label table has no entries")

	// ErrDuplicatePort is returned when a port is mapped more than once
	ErrDuplicatePort = errors.New("port mapped more than once")

	// ErrInvalidLabel is returned for class ids which are not positive
	ErrInvalidLabel = errors.New("invalid class label")

	// ErrInvalidPort is returned for entries mapping port 0
	ErrInvalidPort = errors.New("invalid port")
)

// Entry maps a monitored port to a class id. Name is informational
type Entry struct {
	Port  uint16 `yaml:"port" json:"port" mapstructure:"port"`
	Label int    `yaml:"label" json:"label" mapstructure:"label"`
	Name  string `yaml:"name,omitempty" json:"name,omitempty" mapstructure:"name"`
}

// Table is the immutable port to label mapping
type Table struct {
	ports   map[uint16]ft.Label
	names   map[ft.Label]string
	entries []Entry
}

// New builds a table from the provided entries
func New(entries ...Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyTable
	}

	t := &Table{
		ports:   make(map[uint16]ft.Label, len(entries)),
		names:   make(map[ft.Label]string),
		entries: make([]Entry, 0, len(entries)),
	}
	for _, e := range entries {
		if e.Port == 0 {
			return nil, fmt.Errorf("%w for label %d: %w", ErrInvalidPort, e.Label,
				types.NewRangeError(strconv.Itoa(int(e.Port)), "1", true, "65535", true))
		}
		if e.Label <= int(ft.Unknown) {
			return nil, fmt.Errorf("%w for port %d: %w", ErrInvalidLabel, e.Port,
				types.NewMinBoundsError(strconv.Itoa(e.Label), "1", true))
		}
		if _, exists := t.ports[e.Port]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePort, e.Port)
		}
		t.ports[e.Port] = ft.Label(e.Label)

		// several ports may share a class, the first name wins
		if _, named := t.names[ft.Label(e.Label)]; !named && e.Name != "" {
			t.names[ft.Label(e.Label)] = e.Name
		}
		t.entries = append(t.entries, e)
	}

	sort.Slice(t.entries, func(i, j int) bool {
		return t.entries[i].Port < t.entries[j].Port
	})

	return t, nil
}

// MustNew is like New but panics on error. Meant for static tables
func MustNew(entries ...Entry) *Table {
	t, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve returns the label of a port, if the port is monitored
func (t *Table) Resolve(port uint16) (ft.Label, bool) {
	l, ok := t.ports[port]
	return l, ok
}

// ResolvePorts resolves the destination port first, then the source port
func (t *Table) ResolvePorts(src, dst ft.Port) (ft.Label, bool) {
	if dst.Valid {
		if l, ok := t.ports[dst.Num]; ok {
			return l, true
		}
	}
	if src.Valid {
		if l, ok := t.ports[src.Num]; ok {
			return l, true
		}
	}
	return ft.Unknown, false
}

// Name returns the descriptive name of a class, falling back to the class id
func (t *Table) Name(l ft.Label) string {
	if t == nil {
		return l.String()
	}
	if name, ok := t.names[l]; ok {
		return name
	}
	return l.String()
}

// Entries returns a copy of the table entries, ordered by port
func (t *Table) Entries() []Entry {
	res := make([]Entry, len(t.entries))
	copy(res, t.entries)
	return res
}

// Len returns the number of monitored ports
func (t *Table) Len() int {
	return len(t.ports)
}
