// Package cmd contains the goExtract command line interface implementation
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/els0r/goExtract/pkg/batch"
	"github.com/els0r/goExtract/pkg/conf"
	"github.com/els0r/goExtract/pkg/dataset"
	"github.com/els0r/goExtract/pkg/defaults"
	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/els0r/goExtract/pkg/formatting"
	"github.com/els0r/goExtract/pkg/trace"
	"github.com/els0r/goExtract/pkg/types"
	"github.com/els0r/goExtract/pkg/version"
	"github.com/els0r/telemetry/logging"
	"github.com/els0r/telemetry/tracing"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	gxconf "github.com/els0r/goExtract/cmd/goExtract/config"
)

// Execute runs the root command
func Execute() error {
	rootCmd, err := newRootCmd(run)
	if err != nil {
		return err
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLabelsCmd())

	return rootCmd.Execute()
}

// runFunc is the type of the function that is called when the root command is executed. It's defined
// mainly for testing purposes
type runFunc func(ctx context.Context, cfg *gxconf.Config) error

func newRootCmd(run runFunc) (*cobra.Command, error) {
	cfg := gxconf.New()

	rootCmd := &cobra.Command{
		Use:   "goExtract [flags] [TRACE|DIR|PATTERN ...]",
		Short: "goExtract turns packet traces into a labeled dataset of traffic features",
		Long: `goExtract reads packet traces, groups their packets into time windows per
traffic class and writes one feature vector per group.

Traces are given as files, directories or glob patterns. If none are provided,
the traces matching ` + trace.DefaultPattern + ` in the working directory are used.
`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			err := initConfig(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			// positional arguments take precedence over traces from the configuration
			if len(args) > 0 {
				cfg.Traces = args
			}
			if len(cfg.Traces) == 0 {
				cfg.Traces = []string{trace.DefaultPattern}
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return initLogging()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	err := registerFlags(rootCmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to register flags: %w", err)
	}

	return rootCmd, nil
}

const (
	flagWindowSize = "window_size"
	flagPolicy     = "policy"
	flagOrigin     = "origin"
	flagWorkers    = "workers"

	inputKey        = "input"
	flagInputFormat = inputKey + ".format"

	labelsKey      = "labels"
	flagLabelsFile = labelsKey + ".file"

	outputKey         = "output"
	flagOutputPath    = outputKey + ".path"
	flagOutputFormat  = outputKey + ".format"
	flagOutputHeader  = outputKey + ".header"
	flagOutputColumns = outputKey + ".columns"
	flagOutputSummary = outputKey + ".summary"

	metricsKey          = "metrics"
	flagMetricsTextfile = metricsKey + ".textfile"
)

func registerFlags(cmd *cobra.Command, cfg *gxconf.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration must not be nil")
	}

	pflags := cmd.PersistentFlags()

	if err := conf.RegisterFlags(cmd); err != nil {
		return err
	}

	// extraction parameters
	pflags.Float64Var(&cfg.WindowSize, flagWindowSize, defaults.WindowSize, "width of a time window in seconds")
	pflags.StringVar(&cfg.Policy, flagPolicy, defaults.Policy, "grouping policy (label_and_window, window_only)")
	pflags.StringVar(&cfg.Origin, flagOrigin, defaults.Origin, "trace start time used for window indices (prescan, first_packet)")
	pflags.IntVar(&cfg.Workers, flagWorkers, 0, "maximum number of traces processed in parallel (0: number of CPUs)")

	// input config bindings
	pflags.StringVar(&cfg.Input.Format, flagInputFormat, defaults.InputFormat,
		"trace format ("+strings.Join(trace.Formats(), ", ")+")")

	// labels config bindings
	pflags.StringVar(&cfg.Labels.File, flagLabelsFile, "", "YAML file holding the port to label mapping")

	// output config bindings
	pflags.StringVarP(&cfg.Output.Path, flagOutputPath, "o", defaults.OutputPath, "dataset destination ("+defaults.Stdout+" for stdout)")
	pflags.StringVar(&cfg.Output.Format, flagOutputFormat, defaults.OutputFormat,
		"dataset format ("+strings.Join(dataset.Formats(), ", ")+")")
	pflags.StringVar(&cfg.Output.Header, flagOutputHeader, defaults.OutputHeader,
		"column naming of CSV output ("+strings.Join(dataset.Headers(), ", ")+")")
	pflags.StringVar(&cfg.Output.Columns, flagOutputColumns, defaults.OutputColumns,
		"feature columns to write ("+strings.Join(dataset.ColumnSets(), ", ")+")")
	pflags.BoolVar(&cfg.Output.Summary, flagOutputSummary, true, "print a per-class summary to stderr")

	// metrics config bindings
	pflags.StringVar(&cfg.Metrics.Textfile, flagMetricsTextfile, "", "write processing metrics to file in Prometheus text format")

	return viper.BindPFlags(pflags)
}

// initConfig reads in config file and ENV variables if set.
func initConfig(cfg *gxconf.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration must not be nil")
	}

	path := viper.GetString(conf.ConfigFile)
	if path != "" {
		viper.SetConfigFile(path)

		err := viper.ReadInConfig()
		if err != nil {
			return fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	// GOEXTRACT_OUTPUT_PATH maps to output.path
	viper.SetEnvPrefix(defaults.ServiceName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "__"))
	viper.AutomaticEnv()

	err := viper.Unmarshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %v", err)
	}

	return nil
}

func initLogging() error {
	appVersion := version.Version()
	loggerOpts := []logging.Option{
		logging.WithVersion(appVersion),
	}

	dst := viper.GetString(conf.LogDestination)
	if dst != "" {
		loggerOpts = append(loggerOpts, logging.WithFileOutput(dst))
	}

	_, err := logging.Init(
		logging.LevelFromString(viper.GetString(conf.LogLevel)),
		logging.Encoding(viper.GetString(conf.LogEncoding)),
		loggerOpts...,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

func run(ctx context.Context, cfg *gxconf.Config) error {
	// processing stops with SIGTERM or SIGINT, partial results are discarded
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	logger := logging.FromContext(ctx)

	shutdown, terr := tracing.InitFromFlags(ctx)
	if terr != nil {
		logger.With("error", terr).Error("failed to set up tracing")
	} else {
		defer func() {
			if serr := shutdown(context.Background()); serr != nil {
				logger.With("error", serr).Error("forced shut down of tracing")
			}
		}()
	}

	if cfg.Metrics.Textfile != "" {
		defer func() {
			if merr := batch.WriteMetrics(cfg.Metrics.Textfile); merr != nil {
				logger.With("error", merr, "path", cfg.Metrics.Textfile).Error("failed to write metrics")
			}
		}()
	}

	extraction, err := cfg.Extraction()
	if err != nil {
		return fmt.Errorf("failed to set up extraction: %w", err)
	}

	sources, err := discoverSources(ctx, cfg)
	if err != nil {
		return err
	}

	runner, err := batch.New(extraction, batch.WithWorkers(cfg.Workers))
	if err != nil {
		return err
	}

	logger.With("traces", len(sources), "window_size", extraction.WindowSize,
		"policy", extraction.Policy.String(), "origin", extraction.Origin.String(),
	).Info("starting extraction")

	report, err := runner.Run(ctx, sources)
	if report != nil {
		logger.With(
			"ok", report.Counts[types.StatusOK],
			"empty", report.Counts[types.StatusEmpty],
			"failed", report.Counts[types.StatusError],
			"drops", &report.Drops,
		).Info("processed traces")
	}
	if err != nil {
		if errors.Is(err, dataset.ErrEmptyDataset) {
			return fmt.Errorf("nothing to write: %w", err)
		}
		return fmt.Errorf("extraction aborted: %w", err)
	}

	if err := writeDataset(cfg, report.Rows); err != nil {
		return err
	}
	logger.With("path", cfg.Output.Path, "rows", formatting.Count(uint64(len(report.Rows)))).Info("wrote dataset")

	if cfg.Output.Summary {
		if err := dataset.Summarize(report.Rows, extraction.Table).Print(os.Stderr); err != nil {
			return fmt.Errorf("failed to print summary: %w", err)
		}
	}
	return nil
}

func discoverSources(ctx context.Context, cfg *gxconf.Config) ([]trace.Source, error) {
	logger := logging.FromContext(ctx)

	format, err := trace.ParseFormat(cfg.Input.Format)
	if err != nil {
		return nil, err
	}

	discovery, err := trace.Discover(cfg.Traces...)
	if err != nil {
		return nil, fmt.Errorf("failed to discover traces: %w", err)
	}
	for _, pattern := range discovery.Unmatched {
		logger.With("pattern", pattern).Warn("pattern did not match any trace")
	}
	if len(discovery.Paths) == 0 {
		return nil, fmt.Errorf("%w: searched %s", batch.ErrNoTraces, strings.Join(cfg.Traces, ", "))
	}

	sources := make([]trace.Source, 0, len(discovery.Paths))
	for _, path := range discovery.Paths {
		sources = append(sources, trace.NewFileSource(path).WithFormat(format))
	}
	return sources, nil
}

func writeDataset(cfg *gxconf.Config, rows []ft.FeatureVector) (err error) {
	format, err := dataset.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	header, err := dataset.ParseHeader(cfg.Output.Header)
	if err != nil {
		return err
	}
	columns, err := dataset.ParseColumns(cfg.Output.Columns)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if cfg.Output.Path != defaults.Stdout {
		f, err := os.Create(cfg.Output.Path)
		if err != nil {
			return fmt.Errorf("failed to create dataset file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close dataset file: %w", cerr)
			}
		}()
		out = f
	}

	w, err := dataset.NewWriter(out, format, header, columns)
	if err != nil {
		return err
	}
	if err := w.Write(rows); err != nil {
		return fmt.Errorf("failed to write dataset to %s: %w", cfg.Output.Path, err)
	}
	return nil
}
