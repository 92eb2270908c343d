package cli

import (
	"fmt"

	"pqx/internal/stats"

	"github.com/spf13/cobra"
)

func newStatsCmd(app *App) *cobra.Command {
	var (
		flt      filterFlags
		columns  []string
		markdown bool
	)

	cmd := &cobra.Command{
		Use:   "stats <file.parquet>",
		Short: "Summarize the columns of one page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flt.openFiltered(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			view := s.CurrentFilteredView()
			sums := stats.DescribeTable(view)
			if len(columns) > 0 {
				picked := make([]stats.Summary, 0, len(columns))
				for _, name := range columns {
					ci := view.ColumnIndex(name)
					if ci < 0 {
						return writeErr(cmd, fmt.Errorf("unknown column %q", name))
					}
					picked = append(picked, sums[ci])
				}
				sums = picked
			}
			if markdown {
				_, err := fmt.Fprint(cmd.OutOrStdout(), stats.Markdown(sums))
				return err
			}
			return writeOut(cmd, app, map[string]any{"data": sums})
		},
	}
	flt.register(cmd, 1, "Page to summarize (1-based)")
	cmd.Flags().StringSliceVar(&columns, "column", nil, "Only these columns (repeatable)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print a markdown report instead of structured output")
	return cmd
}
