// Package features implements the windowed feature extraction of a single trace:
// decoded packets are normalized into records, assigned to a group by time window
// (and label) and aggregated into one feature vector per group
package features

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/els0r/goExtract/pkg/labels"
	"github.com/els0r/goExtract/pkg/trace"
	"github.com/els0r/goExtract/pkg/types"
	"github.com/els0r/telemetry/logging"
)

// number of events between two checks of the context
const cancelCheckInterval = 4096

var (
	// ErrInvalidWindowSize is returned for window sizes which are not positive and finite
	ErrInvalidWindowSize = errors.New("invalid window size")

	// ErrNoLabelTable is returned if the extractor is configured without label table
	ErrNoLabelTable = errors.New("no label table provided")
)

// Config parametrizes the extraction
type Config struct {
	WindowSize float64       // WindowSize: width of a time window in seconds
	Policy     ft.Policy     // Policy: grouping policy
	Origin     Origin        // Origin: how the trace start time is determined
	Table      *labels.Table // Table: port to label mapping
}

// Validate checks the extraction parameters
func (c *Config) Validate() error {
	if math.IsNaN(c.WindowSize) || math.IsInf(c.WindowSize, 0) || c.WindowSize <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidWindowSize,
			types.NewMinBoundsError(strconv.FormatFloat(c.WindowSize, 'g', -1, 64), "0", false))
	}
	if _, ok := policyKnown[c.Policy]; !ok {
		return types.NewUnsupportedError(c.Policy.String(), ft.Policies())
	}
	if _, ok := originNames[c.Origin]; !ok {
		return types.NewUnsupportedError(c.Origin.String(), Origins())
	}
	if c.Table == nil {
		return ErrNoLabelTable
	}
	return nil
}

var policyKnown = map[ft.Policy]struct{}{
	ft.PolicyLabelAndWindow: {},
	ft.PolicyWindowOnly:     {},
}

// Stats summarizes how the packets of a trace were used
type Stats struct {
	PacketsRead uint64         `json:"packets_read"` // PacketsRead: events returned by the trace
	Records     uint64         `json:"records"`      // Records: events normalized into a record
	Ingested    uint64         `json:"ingested"`     // Ingested: records assigned to a group
	Drops       ft.DropTracker `json:"drops"`        // Drops: events not ingested, per reason
	Groups      int            `json:"groups"`       // Groups: number of finalized groups
	Origin      float64        `json:"origin"`       // Origin: trace start time used for windowing
}

// LogValue implements the slog.LogValuer interface
func (s *Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("read", s.PacketsRead),
		slog.Uint64("ingested", s.Ingested),
		slog.Uint64("dropped", s.Drops.Sum()),
		slog.Int("groups", s.Groups),
	)
}

// Result holds the feature vectors of one trace
type Result struct {
	Rows  []ft.FeatureVector
	Stats Stats
}

// Empty reports if the trace did not yield any usable data
func (r *Result) Empty() bool {
	return len(r.Rows) == 0
}

// Extractor turns traces into feature vectors. It is safe to use an Extractor for
// several traces concurrently, all per trace state is created by Extract
type Extractor struct {
	cfg Config
}

// New creates an extractor
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{cfg: cfg}, nil
}

// Extract processes a single trace
func (e *Extractor) Extract(ctx context.Context, src trace.Source) (*Result, error) {
	logger := logging.FromContext(ctx)

	res := &Result{}

	var (
		origin      float64
		originKnown bool
	)
	if e.cfg.Origin == OriginPrescan {
		var err error
		origin, originKnown, err = e.prescan(ctx, src)
		if err != nil {
			return nil, err
		}
		logger.With("origin", origin).Debug("computed trace start time")
	}

	stream, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	assigner := NewKeyAssigner(e.cfg.Policy, e.cfg.WindowSize, e.cfg.Table)
	agg := NewAggregator(e.cfg.Policy, e.cfg.Table)

	err = forEach(ctx, stream, func(ev *ft.Event) {
		res.Stats.PacketsRead++

		rec, reason, ok := Normalize(ev)
		if !ok {
			res.Stats.Drops[reason]++
			return
		}
		res.Stats.Records++

		if !originKnown || rec.Timestamp < origin {
			origin, originKnown = rec.Timestamp, true
		}

		key, ok := assigner.Assign(&rec, origin)
		if !ok {
			res.Stats.Drops[ft.DropUnmonitoredPort]++
			return
		}
		agg.Ingest(key, &rec)
		res.Stats.Ingested++
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read trace %s: %w", src.Name(), err)
	}

	res.Rows = agg.Finalize()
	res.Stats.Groups = len(res.Rows)
	res.Stats.Origin = origin
	for i := range res.Rows {
		res.Rows[i].Source = src.Name()
	}

	return res, nil
}

// prescan returns the minimum timestamp of all records of the trace
func (e *Extractor) prescan(ctx context.Context, src trace.Source) (origin float64, found bool, err error) {
	stream, err := src.Open()
	if err != nil {
		return 0, false, err
	}
	defer stream.Close()

	err = forEach(ctx, stream, func(ev *ft.Event) {
		rec, _, ok := Normalize(ev)
		if !ok {
			return
		}
		if !found || rec.Timestamp < origin {
			origin, found = rec.Timestamp, true
		}
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to scan trace %s: %w", src.Name(), err)
	}
	return origin, found, nil
}

func forEach(ctx context.Context, stream trace.Stream, fn func(ev *ft.Event)) error {
	for n := 0; ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		ev, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		fn(&ev)
	}
}
