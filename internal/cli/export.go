package cli

import (
	"pqx/internal/filter"
	"pqx/internal/format"
	"pqx/internal/model"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newExportCmd(app *App) *cobra.Command {
	var flt filterFlags

	cmd := &cobra.Command{
		Use:   "export <file.parquet> <out>",
		Short: "Write rows to csv, tsv, json, md or xlsx",
		Long:  "Write rows to a file whose extension picks the format (.csv .tsv .json .md .xlsx).\nWithout --page the whole file is exported.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, out := args[0], args[1]
			if _, err := format.FormatFromPath(out); err != nil {
				return writeErr(cmd, err)
			}

			var rows *model.Table
			if flt.page > 0 {
				s, err := flt.openFiltered(cmd.Context(), app, src)
				if err != nil {
					return writeErr(cmd, err)
				}
				rows = s.CurrentFilteredView()
			} else {
				all, err := app.Store.ReadAll(cmd.Context(), src)
				if err != nil {
					return writeErr(cmd, err)
				}
				view := filter.NewView(all)
				if flt.query != "" {
					if err := view.SetExpression(cmd.Context(), flt.query); err != nil {
						return writeErr(cmd, err)
					}
				}
				view.SetText(flt.search)
				rows = view.Materialize()
			}

			if err := format.ExportFile(out, rows); err != nil {
				return writeErr(cmd, err)
			}
			log.WithFields(log.Fields{"src": src, "out": out, "rows": rows.NumRows()}).Debug("exported")
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"path": out,
				"rows": rows.NumRows(),
			}})
		},
	}
	flt.register(cmd, 0, "Export only this page (default: every row)")
	return cmd
}
