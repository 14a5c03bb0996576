package features

import (
	"fmt"
	"math"
	"strings"

	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/els0r/goExtract/pkg/labels"
	"github.com/els0r/goExtract/pkg/types"
)

// Origin selects how the start time of a trace is determined
type Origin uint8

const (
	// OriginPrescan computes the minimum timestamp in a first pass over the trace
	OriginPrescan Origin = iota

	// OriginFirstPacket uses the minimum timestamp seen so far while streaming.
	// Records earlier than the current origin end up in window 0
	OriginFirstPacket
)

var originNames = map[Origin]string{
	OriginPrescan:     "prescan",
	OriginFirstPacket: "first_packet",
}

func (o Origin) String() string {
	if name, ok := originNames[o]; ok {
		return name
	}
	return fmt.Sprintf("origin(%d)", o)
}

// Origins returns the names of all origin modes
func Origins() []string {
	return []string{OriginPrescan.String(), OriginFirstPacket.String()}
}

// ParseOrigin converts an origin mode name as used in the configuration
func ParseOrigin(s string) (Origin, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for o, name := range originNames {
		if name == norm {
			return o, nil
		}
	}
	return 0, types.NewUnsupportedError(s, Origins())
}

// WindowIndex returns the index of the time slice a timestamp falls into. Indices
// are never negative and saturate at math.MaxInt64
func WindowIndex(ts, origin, size float64) int64 {
	idx := math.Floor((ts - origin) / size)
	switch {
	case idx >= math.MaxInt64:
		return math.MaxInt64
	case idx > 0:
		return int64(idx)
	}
	// also covers NaN
	return 0
}

// KeyAssigner maps records to their aggregation bucket
type KeyAssigner struct {
	policy     ft.Policy
	windowSize float64
	table      *labels.Table
}

// NewKeyAssigner creates a key assigner for a grouping policy
func NewKeyAssigner(policy ft.Policy, windowSize float64, table *labels.Table) *KeyAssigner {
	return &KeyAssigner{
		policy:     policy,
		windowSize: windowSize,
		table:      table,
	}
}

// Assign returns the group key of a record. Under PolicyLabelAndWindow, records
// without a monitored port are not assigned (ok is false)
func (a *KeyAssigner) Assign(rec *ft.PacketRecord, origin float64) (key ft.GroupKey, ok bool) {
	key.Window = WindowIndex(rec.Timestamp, origin, a.windowSize)
	if a.policy == ft.PolicyWindowOnly {
		return key, true
	}

	key.Label, ok = a.table.ResolvePorts(rec.SrcPort, rec.DstPort)
	return key, ok
}
