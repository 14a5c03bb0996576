package featuretypes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/els0r/goExtract/pkg/types"
)

// Label denotes the traffic class id assigned to a group
type Label int

const (
	// Unknown is the sentinel for groups whose traffic could not be attributed to a class
	Unknown Label = 0

	// Unlabeled is the sentinel for window-only groups without any destination port
	// to derive a class from
	Unlabeled Label = -1
)

// IsKnown returns if the label is an actual class id
func (l Label) IsKnown() bool {
	return l > Unknown
}

// String returns the class id, or the name of the sentinel
func (l Label) String() string {
	switch {
	case l == Unlabeled:
		return "unlabeled"
	case !l.IsKnown():
		return "unknown"
	}
	return strconv.Itoa(int(l))
}

// MarshalJSON encodes known labels as number, the sentinels as string
func (l Label) MarshalJSON() ([]byte, error) {
	if !l.IsKnown() {
		return []byte(strconv.Quote(l.String())), nil
	}
	return []byte(strconv.Itoa(int(l))), nil
}

// Policy selects how packets are grouped into aggregation buckets
type Policy uint8

const (
	// PolicyLabelAndWindow groups by (label, window). Packets without a monitored
	// port are dropped before aggregation
	PolicyLabelAndWindow Policy = iota

	// PolicyWindowOnly groups all packets of a time slice. The label is derived from
	// the dominant destination port of the window
	PolicyWindowOnly
)

var policyNames = map[Policy]string{
	PolicyLabelAndWindow: "label_and_window",
	PolicyWindowOnly:     "window_only",
}

// String returns the configuration name of the policy
func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("policy(%d)", p)
}

// Policies returns the names of all supported policies
func Policies() []string {
	return []string{PolicyLabelAndWindow.String(), PolicyWindowOnly.String()}
}

// ParsePolicy converts a policy name as used in the configuration. Both upper and
// lower case spellings are accepted
func ParsePolicy(s string) (Policy, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for p, name := range policyNames {
		if name == norm {
			return p, nil
		}
	}
	return 0, types.NewUnsupportedError(s, Policies())
}

// GroupKey identifies an aggregation bucket. Under PolicyWindowOnly the label is
// always Unknown
type GroupKey struct {
	Label  Label
	Window int64
}

// Less orders keys by label first, then by window
func (k GroupKey) Less(other GroupKey) bool {
	if k.Label != other.Label {
		return k.Label < other.Label
	}
	return k.Window < other.Window
}

// ID returns the identifier of the group within a single trace
func (k GroupKey) ID(p Policy) string {
	if p == PolicyWindowOnly {
		return fmt.Sprintf("chunk_%d", k.Window)
	}
	return fmt.Sprintf("label_%s/chunk_%d", k.Label, k.Window)
}
