package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/els0r/goExtract/pkg/labels"
	"github.com/spf13/cobra"

	gxconf "github.com/els0r/goExtract/cmd/goExtract/config"
)

func newLabelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "Print the port to label mapping used for extraction",
		Long: `Print the port to label mapping used for extraction. The table is read from
--labels.file or the configuration file. Without either, the built-in table is shown.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := gxconf.New()
			if err := initConfig(cfg); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			table, err := cfg.LabelTable()
			if err != nil {
				return fmt.Errorf("failed to load label table: %w", err)
			}
			return printLabels(cmd.OutOrStdout(), table)
		},
	}
}

var labelsHeader = []string{"port", "label", "name"}

func printLabels(w io.Writer, table *labels.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 4, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, strings.Join(labelsHeader, "\t")+"\t")

	seps := make([]string, 0, len(labelsHeader))
	for _, field := range labelsHeader {
		seps = append(seps, strings.Repeat("-", len(field)))
	}
	fmt.Fprintln(tw, strings.Join(seps, "\t")+"\t")

	for _, e := range table.Entries() {
		name := e.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t\n", e.Port, e.Label, name)
	}

	return tw.Flush()
}
