package featuretypes

import "log/slog"

// DropReason denotes why a packet did not contribute to any group
type DropReason int

const (
	// DropNoNetworkLayer : neither IPv4 nor IPv6 header present
	DropNoNetworkLayer DropReason = iota

	// DropMalformed : the decoder returned inconsistent fields
	DropMalformed

	// DropUnmonitoredPort : none of the ports is in the label table
	DropUnmonitoredPort

	// NumDropReasons : number of tracked drop reasons
	NumDropReasons
)

// DropReasonNames maps a DropReason to a string
var DropReasonNames = [NumDropReasons]string{
	"no_network_layer",
	"malformed",
	"unmonitored_port",
}

// String returns a string representation of the underlying DropReason
func (r DropReason) String() string {
	return DropReasonNames[r]
}

// DropTracker denotes a simple table-based structure for counting dropped packets
// per reason
type DropTracker [NumDropReasons]uint64

// Sum returns the total number of dropped packets
func (d *DropTracker) Sum() (res uint64) {
	for i := DropReason(0); i < NumDropReasons; i++ {
		res += d[i]
	}
	return
}

// Add adds the counters of another tracker
func (d *DropTracker) Add(other *DropTracker) {
	for i := DropReason(0); i < NumDropReasons; i++ {
		d[i] += other[i]
	}
}

// Reset resets all counters (for reuse)
func (d *DropTracker) Reset() {
	for i := DropReason(0); i < NumDropReasons; i++ {
		d[i] = 0
	}
}

// LogValue implements the slog.LogValuer interface
func (d *DropTracker) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, NumDropReasons)
	for i := DropReason(0); i < NumDropReasons; i++ {
		attrs = append(attrs, slog.Uint64(i.String(), d[i]))
	}
	return slog.GroupValue(attrs...)
}
