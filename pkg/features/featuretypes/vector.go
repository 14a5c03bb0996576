package featuretypes

import "strconv"

// Column names of the output table, in their fixed order
const (
	ColLabel       = "label"
	ColGroupID     = "group_id"
	ColPacketCount = "packet_count"
	ColByteVolume  = "byte_volume"
	ColTCPRatio    = "tcp_ratio"
	ColIATMean     = "iat_mean"
	ColIATStd      = "iat_std"

	ColPktLenMean      = "mean_pkt_len"
	ColPktLenStd       = "std_pkt_len"
	ColDominantDstPort = "dominant_dst_port"
)

// Columns lists the logical column names in output order
var Columns = []string{
	ColLabel,
	ColGroupID,
	ColPacketCount,
	ColByteVolume,
	ColTCPRatio,
	ColIATMean,
	ColIATStd,
}

// LegacyColumns lists the header names used by earlier datasets of the simulation
// campaign. They map one to one onto Columns
var LegacyColumns = []string{
	"LABEL",
	"CHUNK_ID",
	"NB_PAQUETS",
	"VOL_BYTES",
	"PROTO_TCP_RATIO",
	"IAT_MEAN",
	"IAT_STD",
}

// ExtendedColumns appends the packet length statistics and the dominant destination
// port to Columns
var ExtendedColumns = append(append([]string{}, Columns...),
	ColPktLenMean,
	ColPktLenStd,
	ColDominantDstPort,
)

// LegacyExtendedColumns is the legacy spelling of ExtendedColumns
var LegacyExtendedColumns = append(append([]string{}, LegacyColumns...),
	"MEAN_PKT_LEN",
	"STD_PKT_LEN",
	"DOMINANT_DST_PORT",
)

// NoPort marks a group without any destination port
const NoPort = -1

// FeatureVector is one finalized, labeled row of the dataset
type FeatureVector struct {
	Label       Label   `json:"label"`
	GroupID     string  `json:"group_id"`
	PacketCount uint64  `json:"packet_count"`
	ByteVolume  uint64  `json:"byte_volume"`
	TCPRatio    float64 `json:"tcp_ratio"`
	IATMean     float64 `json:"iat_mean"`
	IATStd      float64 `json:"iat_std"`

	// extended columns
	PktLenMean      float64 `json:"-"`
	PktLenStd       float64 `json:"-"`
	DominantDstPort int     `json:"-"` // NoPort if no packet carried a destination port

	// bookkeeping, not part of the output schema
	Key    GroupKey `json:"-"`
	Source string   `json:"-"`
}

// Strings returns the row formatted in Columns order
func (v *FeatureVector) Strings() []string {
	return []string{
		v.Label.String(),
		v.GroupID,
		strconv.FormatUint(v.PacketCount, 10),
		strconv.FormatUint(v.ByteVolume, 10),
		strconv.FormatFloat(v.TCPRatio, 'g', -1, 64),
		strconv.FormatFloat(v.IATMean, 'g', -1, 64),
		strconv.FormatFloat(v.IATStd, 'g', -1, 64),
	}
}

// ExtendedStrings returns the row formatted in ExtendedColumns order
func (v *FeatureVector) ExtendedStrings() []string {
	return append(v.Strings(),
		strconv.FormatFloat(v.PktLenMean, 'g', -1, 64),
		strconv.FormatFloat(v.PktLenStd, 'g', -1, 64),
		strconv.Itoa(v.DominantDstPort),
	)
}
