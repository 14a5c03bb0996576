package batch

import (
	"github.com/els0r/goExtract/pkg/defaults"
	"github.com/prometheus/client_golang/prometheus"
)

const extractionSubsystem = "extraction"

var packetsRead = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: defaults.ServiceName,
	Subsystem: extractionSubsystem,
	Name:      "packets_read_total",
	Help:      "Number of packets read from traces",
})
var packetsIngested = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: defaults.ServiceName,
	Subsystem: extractionSubsystem,
	Name:      "packets_ingested_total",
	Help:      "Number of packets aggregated into a group",
})
var packetsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: defaults.ServiceName,
	Subsystem: extractionSubsystem,
	Name:      "packets_dropped_total",
	Help:      "Number of packets not aggregated, by reason",
},
	[]string{"reason"},
)
var rowsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: defaults.ServiceName,
	Subsystem: extractionSubsystem,
	Name:      "rows_emitted_total",
	Help:      "Number of feature vectors produced",
})
var tracesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: defaults.ServiceName,
	Subsystem: extractionSubsystem,
	Name:      "traces_processed_total",
	Help:      "Number of traces processed, by outcome",
},
	[]string{"status"},
)
var traceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: defaults.ServiceName,
	Subsystem: extractionSubsystem,
	Name:      "trace_duration_seconds",
	Help:      "Time taken to extract the features of a single trace",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
})

func init() {
	prometheus.MustRegister(
		packetsRead,
		packetsIngested,
		packetsDropped,
		rowsEmitted,
		tracesProcessed,
		traceDuration,
	)
}

// WriteMetrics writes all registered metrics to a file in the text exposition
// format, e.g. for the node exporter's textfile collector
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
