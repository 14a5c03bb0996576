package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/els0r/goExtract/pkg/features"
	ft "github.com/els0r/goExtract/pkg/features/featuretypes"
	"github.com/els0r/goExtract/pkg/labels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	var tests = []struct {
		name        string
		modify      func(c *Config)
		expectedErr error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"window only", func(c *Config) { c.Policy = "WINDOW_ONLY" }, nil},
		{"zero window", func(c *Config) { c.WindowSize = 0 }, errorInvalidWindowSize},
		{"negative window", func(c *Config) { c.WindowSize = -5 }, errorInvalidWindowSize},
		{"nan window", func(c *Config) { c.WindowSize = math.NaN() }, errorInvalidWindowSize},
		{"policy", func(c *Config) { c.Policy = "five_tuple" }, errorUnsupportedPolicy},
		{"origin", func(c *Config) { c.Origin = "now" }, errorUnsupportedOrigin},
		{"workers", func(c *Config) { c.Workers = -1 }, errorInvalidWorkers},
		{"input format", func(c *Config) { c.Input.Format = "erf" }, errorUnsupportedInputFormat},
		{"output path", func(c *Config) { c.Output.Path = "" }, errorEmptyOutputPath},
		{"output format", func(c *Config) { c.Output.Format = "parquet" }, errorUnsupportedOutputFormat},
		{"output header", func(c *Config) { c.Output.Header = "short" }, errorUnsupportedOutputHeader},
		{"extended columns", func(c *Config) { c.Output.Columns = "extended" }, nil},
		{"output columns", func(c *Config) { c.Output.Columns = "all" }, errorUnsupportedColumnSet},
		{"inline table", func(c *Config) {
			c.Labels.Table = []labels.Entry{{Port: 9011, Label: 11}}
		}, nil},
		{"file and table", func(c *Config) {
			c.Labels.File = "labels.yaml"
			c.Labels.Table = []labels.Entry{{Port: 9011, Label: 11}}
		}, errorAmbiguousLabels},
		{"duplicate port", func(c *Config) {
			c.Labels.Table = []labels.Entry{{Port: 9011, Label: 11}, {Port: 9011, Label: 12}}
		}, labels.ErrDuplicatePort},
		{"zero label", func(c *Config) {
			c.Labels.Table = []labels.Entry{{Port: 9011, Label: 0}}
		}, errorInvalidLabelTable},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			cfg := New()
			test.modify(cfg)

			err := cfg.Validate()
			if test.expectedErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestExtraction(t *testing.T) {
	cfg := New()
	cfg.Policy = "window_only"
	cfg.Origin = "first_packet"
	cfg.WindowSize = 1

	ecfg, err := cfg.Extraction()
	require.NoError(t, err)
	assert.Equal(t, ft.PolicyWindowOnly, ecfg.Policy)
	assert.Equal(t, features.OriginFirstPacket, ecfg.Origin)
	assert.Equal(t, 1.0, ecfg.WindowSize)
	assert.Equal(t, labels.Default(), ecfg.Table)
	require.NoError(t, ecfg.Validate())
}

func TestLabelTable(t *testing.T) {
	cfg := New()
	cfg.Labels.Table = []labels.Entry{{Port: 9011, Label: 11, Name: "supervision"}}

	table, err := cfg.LabelTable()
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, "supervision", table.Name(11))

	path := filepath.Join(t.TempDir(), "labels.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- {port: 443, label: 3}\n- {port: 80, label: 3}\n"), 0600))

	cfg = New()
	cfg.Labels.File = path
	table, err = cfg.LabelTable()
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	cfg.Labels.File = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.Extraction()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
