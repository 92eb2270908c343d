package format

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"pqx/internal/model"

	"github.com/xuri/excelize/v2"
)

// TableFormats are the export targets for WriteTable.
var TableFormats = []string{"csv", "tsv", "json", "md", "xlsx"}

// FormatFromPath picks an export format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "csv", "tsv", "json", "md", "xlsx":
		return ext, nil
	case "markdown":
		return "md", nil
	case "xls":
		return "xlsx", nil
	default:
		return "", fmt.Errorf("cannot infer export format from %q (want one of %s)", path, strings.Join(TableFormats, ", "))
	}
}

// WriteTable writes t in one of TableFormats. Nulls are empty in delimited and
// markdown output and null in JSON.
func WriteTable(w io.Writer, t *model.Table, format string) error {
	switch format {
	case "csv":
		return writeDelimited(w, t, ',')
	case "tsv":
		return writeDelimited(w, t, '\t')
	case "json":
		return writeRecords(w, t)
	case "md":
		return writeMarkdown(w, t)
	case "xlsx":
		return writeXLSX(w, t)
	default:
		return fmt.Errorf("unknown export format: %s", format)
	}
}

// ExportFile writes t to path in the format its extension names.
func ExportFile(path string, t *model.Table) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTable(f, t, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeDelimited(w io.Writer, t *model.Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(t.ColumnNames()); err != nil {
		return err
	}
	rec := make([]string, t.NumCols())
	for pos := 0; pos < t.NumRows(); pos++ {
		for ci := range t.Columns {
			rec[ci] = t.Columns[ci].Cells[pos].String()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Records returns one map per row keyed by column name, for JSON encoders.
// Non-finite floats become nil since JSON cannot carry them.
func Records(t *model.Table) []map[string]any {
	out := make([]map[string]any, t.NumRows())
	for pos := range out {
		rec := make(map[string]any, t.NumCols())
		for _, c := range t.Columns {
			rec[c.Name] = finite(c.Cells[pos])
		}
		out[pos] = rec
	}
	return out
}

// finite returns the cell's value, with NaN and infinities as nil.
func finite(c model.Cell) any {
	v := c.Value()
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

func writeRecords(w io.Writer, t *model.Table) error {
	return WriteJSON(w, Records(t), true)
}

func writeMarkdown(w io.Writer, t *model.Table) error {
	var b strings.Builder
	cell := func(s string) string {
		s = strings.ReplaceAll(s, "|", `\|`)
		return strings.ReplaceAll(s, "\n", " ")
	}
	b.WriteString("|")
	for _, n := range t.ColumnNames() {
		b.WriteString(" " + cell(n) + " |")
	}
	b.WriteString("\n|")
	for _, c := range t.Columns {
		if c.Type == model.DTypeText {
			b.WriteString("---|")
		} else {
			b.WriteString("--:|")
		}
	}
	b.WriteString("\n")
	for pos := 0; pos < t.NumRows(); pos++ {
		b.WriteString("|")
		for ci := range t.Columns {
			b.WriteString(" " + cell(t.Columns[ci].Cells[pos].String()) + " |")
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

const xlsxSheet = "Sheet1"

func writeXLSX(w io.Writer, t *model.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return err
	}
	header := make([]any, t.NumCols())
	for i, n := range t.ColumnNames() {
		header[i] = n
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	row := make([]any, t.NumCols())
	for pos := 0; pos < t.NumRows(); pos++ {
		for ci := range t.Columns {
			row[ci] = finite(t.Columns[ci].Cells[pos])
		}
		cell, err := excelize.CoordinatesToCellName(1, pos+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}
