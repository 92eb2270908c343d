package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"pqx/internal/model"
	"pqx/internal/session"

	"github.com/spf13/cobra"
)

func newEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a file in place (one change per invocation)",
		Long:  "Edit a file in place. Rows are 0-based positions in the whole file; each change is saved before the command returns.",
	}
	cmd.AddCommand(newEditSetCmd(app))
	cmd.AddCommand(newEditInsertRowCmd(app))
	cmd.AddCommand(newEditDeleteRowsCmd(app))
	cmd.AddCommand(newEditAddColumnCmd(app))
	cmd.AddCommand(newEditDropColumnsCmd(app))
	return cmd
}

type editResult struct {
	Path    string   `json:"path"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
	Applied []string `json:"applied"`
}

func writeEditResult(cmd *cobra.Command, app *App, s *session.Session, applied []string) error {
	return writeOut(cmd, app, map[string]any{"data": editResult{
		Path:    s.Path(),
		Rows:    s.Window().Total(),
		Columns: s.CurrentWindow().ColumnNames(),
		Applied: applied,
	}})
}

// pageOf returns the 1-based page holding the absolute row.
func pageOf(row, size int) int {
	return row/size + 1
}

// openAt loads the page holding row and returns the session with the row's label.
func openAt(ctx context.Context, app *App, path string, row int) (*session.Session, int64, error) {
	s, err := session.Open(ctx, app.Store, path, pageOf(row, app.PageSize), app.PageSize)
	if err != nil {
		return nil, 0, err
	}
	w := s.Window()
	pos := row - w.Offset()
	if row < 0 || pos < 0 || pos >= s.CurrentWindow().NumRows() {
		return nil, 0, fmt.Errorf("row %d out of range (file has %d rows)", row, w.Total())
	}
	return s, s.CurrentWindow().Labels[pos], nil
}

// applyAndSave submits req and writes the page back.
func applyAndSave(ctx context.Context, s *session.Session, req session.Request) (string, error) {
	if err := s.Submit(ctx, req); err != nil {
		return "", err
	}
	text := s.Window().History().UndoText()
	if err := s.Save(ctx); err != nil {
		return "", err
	}
	return text, nil
}

func newEditSetCmd(app *App) *cobra.Command {
	var (
		row    int
		column string
		value  string
		null   bool
	)

	cmd := &cobra.Command{
		Use:   "set <file.parquet>",
		Short: "Set one cell",
		Long:  "Set one cell. The value is parsed with the column's type. An empty value clears integer and float cells; --null clears any cell.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, label, err := openAt(ctx, app, args[0], row)
			if err != nil {
				return writeErr(cmd, err)
			}
			text, err := applyAndSave(ctx, s, session.EditCell{Label: label, Column: column, Value: value, Null: null})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEditResult(cmd, app, s, []string{text})
		},
	}
	cmd.Flags().IntVar(&row, "row", -1, "Row (0-based, whole file)")
	cmd.Flags().StringVar(&column, "column", "", "Column name")
	cmd.Flags().StringVar(&value, "value", "", "New value")
	cmd.Flags().BoolVar(&null, "null", false, "Set the cell to null")
	cmd.MarkFlagsMutuallyExclusive("value", "null")
	_ = cmd.MarkFlagRequired("row")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newEditInsertRowCmd(app *App) *cobra.Command {
	var at int

	cmd := &cobra.Command{
		Use:   "insert-row <file.parquet>",
		Short: "Insert an empty row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := session.New(app.Store, args[0], app.PageSize)
			if err := s.Load(ctx, 1, app.PageSize); err != nil {
				return writeErr(cmd, err)
			}
			w := s.Window()
			if at < 0 {
				at = w.Total()
			}
			if at > w.Total() {
				return writeErr(cmd, fmt.Errorf("--at %d out of range (file has %d rows)", at, w.Total()))
			}
			// Appending to a full last page lands on that page's end.
			if page := min(pageOf(at, app.PageSize), w.PageCount()); page != w.Page() {
				if err := s.Load(ctx, page, app.PageSize); err != nil {
					return writeErr(cmd, err)
				}
			}
			text, err := applyAndSave(ctx, s, session.InsertRow{Position: at - w.Offset()})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEditResult(cmd, app, s, []string{text})
		},
	}
	cmd.Flags().IntVar(&at, "at", -1, "Row position to insert at (default: append)")
	return cmd
}

func newEditDeleteRowsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-rows <file.parquet> <row>...",
		Short: "Delete rows by position",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rows, err := parseRows(args[1:])
			if err != nil {
				return writeErr(cmd, err)
			}

			byPage := map[int][]int{}
			for _, r := range rows {
				p := pageOf(r, app.PageSize)
				byPage[p] = append(byPage[p], r)
			}
			pages := make([]int, 0, len(byPage))
			for p := range byPage {
				pages = append(pages, p)
			}
			// Later pages first, so the positions of earlier rows stay valid.
			slices.Sort(pages)
			slices.Reverse(pages)

			s := session.New(app.Store, args[0], app.PageSize)
			var applied []string
			for _, p := range pages {
				if err := s.Load(ctx, p, app.PageSize); err != nil {
					return writeErr(cmd, err)
				}
				w := s.Window()
				labels := make([]int64, 0, len(byPage[p]))
				for _, r := range byPage[p] {
					pos := r - w.Offset()
					if pos < 0 || pos >= s.CurrentWindow().NumRows() {
						return writeErr(cmd, fmt.Errorf("row %d out of range (file has %d rows)", r, w.Total()))
					}
					labels = append(labels, s.CurrentWindow().Labels[pos])
				}
				text, err := applyAndSave(ctx, s, session.DeleteRows{Labels: labels})
				if err != nil {
					return writeErr(cmd, err)
				}
				applied = append(applied, text)
			}
			return writeEditResult(cmd, app, s, applied)
		},
	}
}

func parseRows(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid row %q", a)
		}
		out = append(out, n)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func newEditAddColumnCmd(app *App) *cobra.Command {
	var (
		name  string
		dtype string
	)

	cmd := &cobra.Command{
		Use:   "add-column <file.parquet>",
		Short: "Append an all-null column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := model.ParseDType(dtype)
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := session.Open(ctx, app.Store, args[0], 1, app.PageSize)
			if err != nil {
				return writeErr(cmd, err)
			}
			text, err := applyAndSave(ctx, s, session.InsertColumn{Name: name, Type: t})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEditResult(cmd, app, s, []string{text})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Column name")
	cmd.Flags().StringVar(&dtype, "type", "text", "Column type (integer|float|text)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newEditDropColumnsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "drop-columns <file.parquet> <column>...",
		Short: "Remove columns",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := session.Open(ctx, app.Store, args[0], 1, app.PageSize)
			if err != nil {
				return writeErr(cmd, err)
			}
			text, err := applyAndSave(ctx, s, session.DeleteColumns{Names: args[1:]})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEditResult(cmd, app, s, []string{text})
		},
	}
}
