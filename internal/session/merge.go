package session

import (
	"errors"

	"pqx/internal/model"
)

// ErrNoColumns is returned by Merge when every column of the page was dropped.
// Parquet cannot hold rows without columns, so writing it would lose every row.
var ErrNoColumns = errors.New("cannot save a table with no columns (add a column or undo the drop)")

// Merge returns full with rows [offset, offset+span) replaced by page.
//
// The result has page's columns. Rows outside the page keep their values for
// columns that exist in full and get nulls for columns added on the page; columns
// dropped on the page are dropped everywhere.
func Merge(full *model.Table, offset, span int, page *model.Table) (*model.Table, error) {
	if page.NumCols() == 0 {
		return nil, ErrNoColumns
	}
	n := full.NumRows()
	start := min(max(offset, 0), n)
	end := min(start+max(span, 0), n)

	cols := make([]model.Column, len(page.Columns))
	for i, pc := range page.Columns {
		before := conform(full, pc, 0, start)
		after := conform(full, pc, end, n)
		cells := make([]model.Cell, 0, len(before)+len(pc.Cells)+len(after))
		cells = append(cells, before...)
		cells = append(cells, pc.Cells...)
		cells = append(cells, after...)
		physical, annotation := pc.Physical, pc.Annotation
		// A column re-added under an old name with another type is a new column.
		if fi := full.ColumnIndex(pc.Name); fi >= 0 && physical == "" && full.Columns[fi].Type == pc.Type {
			physical, annotation = full.Columns[fi].Physical, full.Columns[fi].Annotation
		}
		cols[i] = model.Column{Name: pc.Name, Type: pc.Type, Physical: physical, Annotation: annotation, Cells: cells}
	}
	return model.NewTable(cols...)
}

// conform returns rows [from, to) of the column named like pc, converted to pc's
// type. Values that do not convert become null.
func conform(full *model.Table, pc model.Column, from, to int) []model.Cell {
	out := make([]model.Cell, to-from)
	fi := full.ColumnIndex(pc.Name)
	for i := range out {
		if fi < 0 {
			out[i] = model.NullCell(pc.Type)
			continue
		}
		c := full.Columns[fi].Cells[from+i]
		if c.Type == pc.Type || c.IsNull() {
			out[i] = c.WithType(pc.Type)
			continue
		}
		conv, err := model.Coerce(pc.Type, c.String())
		if err != nil {
			conv = model.NullCell(pc.Type)
		}
		out[i] = conv
	}
	return out
}
