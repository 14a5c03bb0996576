// Package config holds the configuration of goExtract
package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/els0r/goExtract/pkg/dataset"
	"github.com/els0r/goExtract/pkg/defaults"
	"github.com/els0r/goExtract/pkg/features"
	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/els0r/goExtract/pkg/labels"
	"github.com/els0r/goExtract/pkg/trace"
)

// Config stores goExtract's configuration
type Config struct {
	WindowSize float64       `json:"window_size" yaml:"window_size" mapstructure:"window_size"`
	Policy     string        `json:"policy" yaml:"policy" mapstructure:"policy"`
	Origin     string        `json:"origin" yaml:"origin" mapstructure:"origin"`
	Workers    int           `json:"workers" yaml:"workers" mapstructure:"workers"`
	Traces     []string      `json:"traces" yaml:"traces" mapstructure:"traces"`
	Input      InputConfig   `json:"input" yaml:"input" mapstructure:"input"`
	Labels     LabelsConfig  `json:"labels" yaml:"labels" mapstructure:"labels"`
	Output     OutputConfig  `json:"output" yaml:"output" mapstructure:"output"`
	Metrics    MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// InputConfig configures how traces are read
type InputConfig struct {
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// LabelsConfig configures the port to label mapping. If neither a file nor an
// inline table is given, the built-in table is used
type LabelsConfig struct {
	File  string         `json:"file" yaml:"file" mapstructure:"file"`
	Table []labels.Entry `json:"table" yaml:"table" mapstructure:"table"`
}

// OutputConfig configures where and how the dataset is written
type OutputConfig struct {
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
	Format  string `json:"format" yaml:"format" mapstructure:"format"`
	Header  string `json:"header" yaml:"header" mapstructure:"header"`
	Columns string `json:"columns" yaml:"columns" mapstructure:"columns"`
	Summary bool   `json:"summary" yaml:"summary" mapstructure:"summary"`
}

// MetricsConfig configures the export of processing metrics
type MetricsConfig struct {
	Textfile string `json:"textfile" yaml:"textfile" mapstructure:"textfile"`
}

// New returns a configuration with all defaults set
func New() *Config {
	return &Config{
		WindowSize: defaults.WindowSize,
		Policy:     defaults.Policy,
		Origin:     defaults.Origin,
		Input: InputConfig{
			Format: defaults.InputFormat,
		},
		Output: OutputConfig{
			Path:    defaults.OutputPath,
			Format:  defaults.OutputFormat,
			Header:  defaults.OutputHeader,
			Columns: defaults.OutputColumns,
			Summary: true,
		},
	}
}

var (
	errorInvalidWindowSize       = errors.New("window size must be a positive number of seconds")
	errorUnsupportedPolicy       = errors.New("unsupported grouping policy")
	errorUnsupportedOrigin       = errors.New("unsupported origin mode")
	errorInvalidWorkers          = errors.New("number of workers must not be negative")
	errorUnsupportedInputFormat  = errors.New("unsupported input format")
	errorUnsupportedOutputFormat = errors.New("unsupported output format")
	errorUnsupportedOutputHeader = errors.New("unsupported output header")
	errorUnsupportedColumnSet    = errors.New("unsupported output column set")
	errorEmptyOutputPath         = errors.New("output path must not be empty")
	errorAmbiguousLabels         = errors.New("label table file and inline table are mutually exclusive")
	errorInvalidLabelTable       = errors.New("invalid inline label table")
)

// Validate checks the configuration for consistency. Referenced files are not
// accessed
func (c *Config) Validate() error {
	if math.IsNaN(c.WindowSize) || math.IsInf(c.WindowSize, 0) || c.WindowSize <= 0 {
		return fmt.Errorf("%w: %v", errorInvalidWindowSize, c.WindowSize)
	}
	if _, err := ft.ParsePolicy(c.Policy); err != nil {
		return fmt.Errorf("%w: %w", errorUnsupportedPolicy, err)
	}
	if _, err := features.ParseOrigin(c.Origin); err != nil {
		return fmt.Errorf("%w: %w", errorUnsupportedOrigin, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: %d", errorInvalidWorkers, c.Workers)
	}
	if _, err := trace.ParseFormat(c.Input.Format); err != nil {
		return fmt.Errorf("%w: %w", errorUnsupportedInputFormat, err)
	}
	if c.Output.Path == "" {
		return errorEmptyOutputPath
	}
	if _, err := dataset.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("%w: %w", errorUnsupportedOutputFormat, err)
	}
	if _, err := dataset.ParseHeader(c.Output.Header); err != nil {
		return fmt.Errorf("%w: %w", errorUnsupportedOutputHeader, err)
	}
	if _, err := dataset.ParseColumns(c.Output.Columns); err != nil {
		return fmt.Errorf("%w: %w", errorUnsupportedColumnSet, err)
	}
	if c.Labels.File != "" && len(c.Labels.Table) > 0 {
		return errorAmbiguousLabels
	}
	if len(c.Labels.Table) > 0 {
		if _, err := labels.New(c.Labels.Table...); err != nil {
			return fmt.Errorf("%w: %w", errorInvalidLabelTable, err)
		}
	}
	return nil
}

// LabelTable loads the configured label table
func (c *Config) LabelTable() (*labels.Table, error) {
	switch {
	case c.Labels.File != "":
		return labels.LoadFile(c.Labels.File)
	case len(c.Labels.Table) > 0:
		return labels.New(c.Labels.Table...)
	}
	return labels.Default(), nil
}

// Extraction builds the extraction parameters from a validated configuration
func (c *Config) Extraction() (features.Config, error) {
	policy, err := ft.ParsePolicy(c.Policy)
	if err != nil {
		return features.Config{}, err
	}
	origin, err := features.ParseOrigin(c.Origin)
	if err != nil {
		return features.Config{}, err
	}
	table, err := c.LabelTable()
	if err != nil {
		return features.Config{}, err
	}

	return features.Config{
		WindowSize: c.WindowSize,
		Policy:     policy,
		Origin:     origin,
		Table:      table,
	}, nil
}
