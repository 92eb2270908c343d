package cli

import (
	"pqx/internal/tui"

	"github.com/spf13/cobra"
)

func newOpenCmd(app *App) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "open <file.parquet>",
		Short: "Open a file in the interactive viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app, args[0], page)
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "Page to open (default: where you left off)")
	return cmd
}

func runTUI(cmd *cobra.Command, app *App, path string, page int) error {
	opts := tui.Options{
		Path:  path,
		Store: app.Store,
		Page:  page,
	}
	// An explicit --page-size wins over the size remembered for the file.
	if cmd.Flags().Changed("page-size") {
		opts.PageSize = app.PageSize
	}
	if err := tui.Run(cmd.Context(), opts); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}
