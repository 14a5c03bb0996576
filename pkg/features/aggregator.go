package features

import (
	"math"
	"sort"

	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/els0r/goExtract/pkg/labels"
)

// accumulator holds the running statistics of a single group
type accumulator struct {
	key        ft.GroupKey
	packets    uint64
	bytes      uint64
	transports [ft.NumTransports]uint64
	timestamps []float64

	// running mean and sum of squared deviations of the packet lengths
	lenMean, lenM2 float64

	// bytes per destination port
	portBytes map[uint16]uint64
}

// Aggregator accumulates the records of one trace, keyed by group. The accumulator
// arena is released in bulk on Finalize. An Aggregator must not be shared between
// traces or goroutines
type Aggregator struct {
	policy ft.Policy
	table  *labels.Table

	index map[ft.GroupKey]int
	arena []accumulator
}

// NewAggregator creates an empty aggregator for a grouping policy. The label table
// is consulted during Finalize to label window-only groups
func NewAggregator(policy ft.Policy, table *labels.Table) *Aggregator {
	return &Aggregator{
		policy: policy,
		table:  table,
		index:  make(map[ft.GroupKey]int),
	}
}

// Ingest adds a record to the group identified by key, creating the group on first
// sight
func (a *Aggregator) Ingest(key ft.GroupKey, rec *ft.PacketRecord) {
	i, exists := a.index[key]
	if !exists {
		i = len(a.arena)
		a.index[key] = i
		a.arena = append(a.arena, accumulator{key: key, portBytes: make(map[uint16]uint64)})
	}

	acc := &a.arena[i]
	acc.packets++
	acc.bytes += uint64(rec.Length)
	acc.transports[rec.Transport]++
	acc.timestamps = append(acc.timestamps, rec.Timestamp)

	d := float64(rec.Length) - acc.lenMean
	acc.lenMean += d / float64(acc.packets)
	acc.lenM2 += d * (float64(rec.Length) - acc.lenMean)

	if rec.DstPort.Valid {
		acc.portBytes[rec.DstPort.Num] += uint64(rec.Length)
	}
}

// Len returns the number of groups accumulated so far
func (a *Aggregator) Len() int {
	return len(a.arena)
}

// Packets returns the number of records ingested so far
func (a *Aggregator) Packets() (n uint64) {
	for i := range a.arena {
		n += a.arena[i].packets
	}
	return
}

// Finalize computes one feature vector per group, ordered by (label, window), and
// resets the aggregator. Group ids are local to the trace
func (a *Aggregator) Finalize() []ft.FeatureVector {
	rows := make([]ft.FeatureVector, 0, len(a.arena))
	for i := range a.arena {
		rows = append(rows, a.finalize(&a.arena[i]))
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Label != rows[j].Label {
			return rows[i].Label < rows[j].Label
		}
		return rows[i].Key.Less(rows[j].Key)
	})

	a.index = make(map[ft.GroupKey]int)
	a.arena = nil

	return rows
}

func (a *Aggregator) finalize(acc *accumulator) ft.FeatureVector {
	v := ft.FeatureVector{
		Label:       acc.key.Label,
		GroupID:     acc.key.ID(a.policy),
		PacketCount: acc.packets,
		ByteVolume:  acc.bytes,
		Key:         acc.key,
	}
	if acc.packets > 0 {
		v.TCPRatio = float64(acc.transports[ft.TransportTCP]) / float64(acc.packets)
	}
	v.IATMean, v.IATStd = interArrival(acc.timestamps)

	v.PktLenMean = acc.lenMean
	if acc.packets > 1 {
		v.PktLenStd = math.Sqrt(acc.lenM2 / float64(acc.packets-1))
	}

	port, hasPort := DominantPort(acc.portBytes)
	v.DominantDstPort = ft.NoPort
	if hasPort {
		v.DominantDstPort = int(port)
	}

	if a.policy == ft.PolicyWindowOnly {
		switch l, monitored := a.table.Resolve(port); {
		case !hasPort:
			v.Label = ft.Unlabeled
		case monitored:
			v.Label = l
		default:
			v.Label = ft.Unknown
		}
	}

	return v
}

// interArrival sorts the timestamps in place and returns mean and population
// standard deviation of their successive differences
func interArrival(ts []float64) (mean, std float64) {
	if len(ts) < 2 {
		return 0, 0
	}
	sort.Float64s(ts)

	n := float64(len(ts) - 1)
	for i := 1; i < len(ts); i++ {
		mean += ts[i] - ts[i-1]
	}
	mean /= n

	if len(ts) < 3 {
		return mean, 0
	}
	var sq float64
	for i := 1; i < len(ts); i++ {
		d := ts[i] - ts[i-1] - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}

// DominantPort returns the port with the largest byte volume. Equal volumes are
// resolved in favor of the smaller port
func DominantPort(portBytes map[uint16]uint64) (port uint16, ok bool) {
	var max uint64
	for p, b := range portBytes {
		if !ok || b > max || (b == max && p < port) {
			port, max, ok = p, b, true
		}
	}
	return port, ok
}
