package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"pqx/internal/format"
	"pqx/internal/model"
	"pqx/internal/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// filterFlags are shared by every command that reads rows.
type filterFlags struct {
	page   int
	query  string
	search string
}

func (f *filterFlags) register(cmd *cobra.Command, pageDefault int, pageHelp string) {
	cmd.Flags().IntVar(&f.page, "page", pageDefault, pageHelp)
	cmd.Flags().StringVar(&f.query, "query", "", "SQL predicate over the columns, e.g. \"age > 30 and city == 'Oslo'\"")
	cmd.Flags().StringVar(&f.search, "search", "", "Keep rows where any cell contains this text (case-insensitive)")
}

// openFiltered opens the requested page and applies the filters to it.
func (f *filterFlags) openFiltered(ctx context.Context, app *App, path string) (*session.Session, error) {
	s, err := session.Open(ctx, app.Store, path, max(f.page, 1), app.PageSize)
	if err != nil {
		return nil, err
	}
	if f.query != "" {
		if err := s.SetQuery(ctx, f.query); err != nil {
			return nil, err
		}
	}
	s.SetSearch(f.search)
	return s, nil
}

func newShowCmd(app *App) *cobra.Command {
	var (
		flt filterFlags
		as  string
	)

	cmd := &cobra.Command{
		Use:   "show <file.parquet>",
		Short: "Print one page of rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flt.openFiltered(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			out := cmd.OutOrStdout()
			view := s.CurrentFilteredView()
			w := s.Window()

			if as == "" {
				as = "csv"
				if isTerminal(out) {
					as = "table"
				}
			}
			switch as {
			case "table":
				fmt.Fprintln(out, renderTable(view, terminalWidth(out)))
				fmt.Fprintf(out, "page %d/%d · %s of %s rows\n", w.Page(), w.PageCount(), humanize.Comma(int64(view.NumRows())), humanize.Comma(int64(w.Total())))
				return nil
			case "json":
				return writeOut(cmd, app, map[string]any{
					"data": format.Records(view),
					"meta": map[string]any{
						"page":     w.Page(),
						"pages":    w.PageCount(),
						"pageSize": w.PageSize(),
						"offset":   w.Offset(),
						"total":    w.Total(),
					},
				})
			default:
				if err := format.WriteTable(out, view, as); err != nil {
					return writeErr(cmd, err)
				}
				return nil
			}
		},
	}
	flt.register(cmd, 1, "Page to print (1-based)")
	cmd.Flags().StringVar(&as, "as", "", "Row format: table|csv|tsv|md|json (default: table on a terminal, csv otherwise)")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numStyle    = cellStyle.Align(lipgloss.Right)
	nullStyle   = cellStyle.Faint(true)
)

// renderTable draws t with a rounded border. width <= 0 means unconstrained.
func renderTable(t *model.Table, width int) string {
	rows := make([][]string, t.NumRows())
	for pos := range rows {
		row := make([]string, t.NumCols())
		for ci := range t.Columns {
			c := t.Columns[ci].Cells[pos]
			if c.IsNull() {
				row[ci] = "null"
				continue
			}
			row[ci] = c.String()
		}
		rows[pos] = row
	}
	tb := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
		Headers(t.ColumnNames()...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if t.Columns[col].Cells[row].IsNull() {
				return nullStyle
			}
			if t.Columns[col].Type != model.DTypeText {
				return numStyle
			}
			return cellStyle
		})
	if width > 0 {
		tb = tb.Width(width)
	}
	return tb.String()
}
