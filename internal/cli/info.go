package cli

import (
	"os"

	"pqx/internal/model"
	"pqx/internal/session"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type fileInfo struct {
	Path      string             `json:"path"`
	Size      int64              `json:"size"`
	SizeHuman string             `json:"sizeHuman"`
	Rows      int                `json:"rows"`
	RowsHuman string             `json:"rowsHuman"`
	PageSize  int                `json:"pageSize"`
	Pages     int                `json:"pages"`
	Columns   []model.ColumnMeta `json:"columns"`
}

func newInfoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.parquet>",
		Short: "Show row count, size and column types",
		Long:  "Show row count, size and column types. Nullability is judged from the first page.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			s, err := session.Open(cmd.Context(), app.Store, path, 1, app.PageSize)
			if err != nil {
				return writeErr(cmd, err)
			}
			w := s.Window()
			info := fileInfo{
				Path:      path,
				Rows:      w.Total(),
				RowsHuman: humanize.Comma(int64(w.Total())),
				PageSize:  w.PageSize(),
				Pages:     w.PageCount(),
				Columns:   make([]model.ColumnMeta, 0, s.CurrentWindow().NumCols()),
			}
			if st, err := os.Stat(path); err == nil {
				info.Size = st.Size()
				info.SizeHuman = humanize.Bytes(uint64(st.Size()))
			}
			for i := 0; i < s.CurrentWindow().NumCols(); i++ {
				meta, err := s.DescribeColumn(i)
				if err != nil {
					return writeErr(cmd, err)
				}
				info.Columns = append(info.Columns, meta)
			}
			return writeOut(cmd, app, map[string]any{"data": info})
		},
	}
}
