// Package batch runs the feature extraction over a set of traces. Traces are
// processed in parallel, each with its own accumulation state, and a failure of
// one trace does not affect the others
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/els0r/goExtract/pkg/dataset"
	"github.com/els0r/goExtract/pkg/features"
	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/els0r/goExtract/pkg/formatting"
	"github.com/els0r/goExtract/pkg/trace"
	"github.com/els0r/goExtract/pkg/types"
	"github.com/els0r/telemetry/logging"
	"github.com/els0r/telemetry/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrNoTraces is returned if the runner is started without any trace
var ErrNoTraces = errors.New("no traces provided")

// TraceReport describes the outcome of a single trace
type TraceReport struct {
	Source   string         `json:"source"`
	Status   types.Status   `json:"status"`
	Rows     int            `json:"rows"`
	Stats    features.Stats `json:"stats"`
	Duration time.Duration  `json:"duration"`
	Err      error          `json:"-"`
}

// Report summarizes a batch run
type Report struct {
	Traces []TraceReport        `json:"traces"`
	Rows   []ft.FeatureVector   `json:"-"`
	Drops  ft.DropTracker       `json:"drops"`
	Counts map[types.Status]int `json:"counts"`
}

// Runner processes traces with bounded parallelism
type Runner struct {
	extractor *features.Extractor
	workers   int
}

// Option configures the Runner
type Option func(*Runner)

// WithWorkers sets the maximum number of traces processed in parallel
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// New creates a runner for an extraction configuration
func New(cfg features.Config, opts ...Option) (*Runner, error) {
	extractor, err := features.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid extraction configuration: %w", err)
	}

	r := &Runner{
		extractor: extractor,
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run processes all traces and assembles their rows. The report is returned even
// if the dataset turns out empty, in which case the error is dataset.ErrEmptyDataset
func (r *Runner) Run(ctx context.Context, sources []trace.Source) (*Report, error) {
	if len(sources) == 0 {
		return nil, ErrNoTraces
	}

	reports := make([]TraceReport, len(sources))
	asm := dataset.NewAssembler()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			reports[i] = r.process(gctx, src, asm)

			// only cancellation stops the whole batch
			if errors.Is(reports[i].Err, context.Canceled) || errors.Is(reports[i].Err, context.DeadlineExceeded) {
				return reports[i].Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Traces: reports,
		Counts: make(map[types.Status]int),
	}
	for i := range reports {
		report.Drops.Add(&reports[i].Stats.Drops)
		report.Counts[reports[i].Status]++
	}
	sort.SliceStable(report.Traces, func(i, j int) bool {
		return report.Traces[i].Source < report.Traces[j].Source
	})

	rows, err := asm.Rows()
	if err != nil {
		return report, err
	}
	report.Rows = rows

	return report, nil
}

func (r *Runner) process(ctx context.Context, src trace.Source, asm *dataset.Assembler) (tr TraceReport) {
	ctx = logging.WithFields(ctx, slog.String("trace", src.Name()))
	logger := logging.FromContext(ctx)

	ctx, span := tracing.Start(ctx, "(*batch.Runner).process",
		oteltrace.WithAttributes(attribute.String("trace", src.Name())),
	)
	defer span.End()

	tr.Source = src.Name()

	start := time.Now()
	res, err := r.extractor.Extract(ctx, src)
	tr.Duration = time.Since(start)

	defer func() {
		tracesProcessed.WithLabelValues(tr.Status.String()).Inc()
		traceDuration.Observe(tr.Duration.Seconds())
	}()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		tr.Status, tr.Err = types.StatusError, err
		logger.Errorf("failed to process trace: %v", err)
		return tr
	}

	tr.Stats = res.Stats
	tr.Rows = len(res.Rows)
	asm.Add(src.Name(), res.Rows)

	packetsRead.Add(float64(res.Stats.PacketsRead))
	packetsIngested.Add(float64(res.Stats.Ingested))
	rowsEmitted.Add(float64(tr.Rows))
	for reason := ft.DropReason(0); reason < ft.NumDropReasons; reason++ {
		if n := res.Stats.Drops[reason]; n > 0 {
			packetsDropped.WithLabelValues(reason.String()).Add(float64(n))
		}
	}

	span.SetAttributes(
		attribute.Int("rows", tr.Rows),
		attribute.Int64("packets_read", int64(res.Stats.PacketsRead)),
	)

	logger = logger.With("stats", &res.Stats, "drops", &res.Stats.Drops, "elapsed", formatting.Duration(tr.Duration))
	if res.Empty() {
		tr.Status = types.StatusEmpty
		logger.Warn("trace has no usable data")
		return tr
	}

	tr.Status = types.StatusOK
	logger.Info("processed trace")
	return tr
}
