package model

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"
)

// Column is a named, typed sequence of cells.
type Column struct {
	Name string
	Type DType
	// Physical optionally records the on-disk physical type (e.g. "INT32") so a
	// write-back can keep the original width. Empty means "pick from Type".
	Physical string
	// Annotation is the on-disk logical annotation as a parquet-go tag fragment
	// (e.g. "convertedtype=DATE"). It only applies together with Physical.
	Annotation string
	Cells      []Cell
}

// Table is an ordered set of equal-length columns plus a row label per row.
//
// Labels are synthetic identifiers handed out by NewLabel. They are unique within a
// table and never reused for a different row, so they survive inserts and deletes
// elsewhere in the table.
type Table struct {
	Columns []Column
	Labels  []int64

	nextLabel int64
	// position by label; nil when stale.
	index map[int64]int
}

// NewTable builds a table from columns, labelling rows 0..n-1.
func NewTable(cols ...Column) (*Table, error) {
	t := &Table{Columns: cols}
	n := 0
	for i, c := range cols {
		if i == 0 {
			n = len(c.Cells)
			continue
		}
		if len(c.Cells) != n {
			return nil, fmt.Errorf("column %q has %d rows; want %d", c.Name, len(c.Cells), n)
		}
	}
	seen := map[string]bool{}
	for _, c := range cols {
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column name: %q", c.Name)
		}
		seen[c.Name] = true
	}
	t.Labels = make([]int64, n)
	for i := range t.Labels {
		t.Labels[i] = int64(i)
	}
	t.nextLabel = int64(n)
	return t, nil
}

// MustTable is NewTable for fixtures.
func MustTable(cols ...Column) *Table {
	t, err := NewTable(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) NumRows() int { return len(t.Labels) }
func (t *Table) NumCols() int { return len(t.Columns) }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Position returns the current row position of a label.
func (t *Table) Position(label int64) (int, bool) {
	if t.index == nil {
		t.index = make(map[int64]int, len(t.Labels))
		for i, l := range t.Labels {
			t.index[l] = i
		}
	}
	pos, ok := t.index[label]
	return pos, ok
}

// Cell returns the cell at (label, column name).
func (t *Table) Cell(label int64, column string) (Cell, bool) {
	pos, ok := t.Position(label)
	if !ok {
		return Cell{}, false
	}
	ci := t.ColumnIndex(column)
	if ci < 0 {
		return Cell{}, false
	}
	return t.Columns[ci].Cells[pos], true
}

// SetCell overwrites the cell at (label, column name). It reports false when
// either the row or the column is not in this table, or when c is a value of
// another type than the column's.
func (t *Table) SetCell(label int64, column string, c Cell) bool {
	pos, ok := t.Position(label)
	if !ok {
		return false
	}
	ci := t.ColumnIndex(column)
	if ci < 0 {
		return false
	}
	if c.Valid && c.Type != t.Columns[ci].Type {
		return false
	}
	t.Columns[ci].Cells[pos] = c.WithType(t.Columns[ci].Type)
	return true
}

// Row returns a copy of the cells at a position, in column order.
func (t *Table) Row(pos int) []Cell {
	out := make([]Cell, len(t.Columns))
	for i := range t.Columns {
		out[i] = t.Columns[i].Cells[pos]
	}
	return out
}

// NewLabel hands out a label no row of this table has ever used.
func (t *Table) NewLabel() int64 {
	for _, l := range t.Labels {
		if l >= t.nextLabel {
			t.nextLabel = l + 1
		}
	}
	l := t.nextLabel
	t.nextLabel++
	return l
}

// InsertRow inserts a row at pos. A nil cells slice inserts nulls. The label must
// not already be present.
func (t *Table) InsertRow(pos int, label int64, cells []Cell) error {
	if pos < 0 || pos > t.NumRows() {
		return fmt.Errorf("row position %d out of range [0, %d]", pos, t.NumRows())
	}
	if _, dup := t.Position(label); dup {
		return fmt.Errorf("row label %d already present", label)
	}
	if cells != nil && len(cells) != len(t.Columns) {
		return fmt.Errorf("row has %d cells; table has %d columns", len(cells), len(t.Columns))
	}
	for i := range t.Columns {
		c := NullCell(t.Columns[i].Type)
		if cells != nil {
			c = cells[i].WithType(t.Columns[i].Type)
		}
		t.Columns[i].Cells = insertAt(t.Columns[i].Cells, pos, c)
	}
	t.Labels = insertAt(t.Labels, pos, label)
	if label >= t.nextLabel {
		t.nextLabel = label + 1
	}
	t.index = nil
	return nil
}

// RemoveRow deletes the row at pos and returns its label and cells.
func (t *Table) RemoveRow(pos int) (int64, []Cell, error) {
	if pos < 0 || pos >= t.NumRows() {
		return 0, nil, fmt.Errorf("row position %d out of range [0, %d)", pos, t.NumRows())
	}
	cells := t.Row(pos)
	label := t.Labels[pos]
	for i := range t.Columns {
		t.Columns[i].Cells = removeAt(t.Columns[i].Cells, pos)
	}
	t.Labels = removeAt(t.Labels, pos)
	t.index = nil
	return label, cells, nil
}

// AddColumn inserts col at pos (pos == NumCols appends). A nil Cells slice is
// filled with nulls.
func (t *Table) AddColumn(pos int, col Column) error {
	if pos < 0 || pos > t.NumCols() {
		return fmt.Errorf("column position %d out of range [0, %d]", pos, t.NumCols())
	}
	if t.ColumnIndex(col.Name) >= 0 {
		return fmt.Errorf("duplicate column name: %q", col.Name)
	}
	if col.Cells == nil {
		col.Cells = make([]Cell, t.NumRows())
		for i := range col.Cells {
			col.Cells[i] = NullCell(col.Type)
		}
	}
	if len(col.Cells) != t.NumRows() {
		return fmt.Errorf("column %q has %d rows; want %d", col.Name, len(col.Cells), t.NumRows())
	}
	t.Columns = insertAt(t.Columns, pos, col)
	return nil
}

// RemoveColumn drops the named column and returns where it was and what it held.
func (t *Table) RemoveColumn(name string) (int, Column, error) {
	ci := t.ColumnIndex(name)
	if ci < 0 {
		return -1, Column{}, fmt.Errorf("column not found: %q", name)
	}
	col := t.Columns[ci]
	t.Columns = removeAt(t.Columns, ci)
	return ci, col, nil
}

// Metadata describes the column at index i.
func (t *Table) Metadata(i int) (ColumnMeta, error) {
	if i < 0 || i >= t.NumCols() {
		return ColumnMeta{}, fmt.Errorf("column index %d out of range [0, %d)", i, t.NumCols())
	}
	c := t.Columns[i]
	meta := ColumnMeta{Name: c.Name, Type: c.Type.String()}
	for _, cell := range c.Cells {
		if cell.IsNull() {
			meta.Nullable = true
			break
		}
	}
	return meta, nil
}

// Select copies the rows with the given labels, in that order, keeping their
// labels. Unknown labels are skipped.
func (t *Table) Select(labels []int64) *Table {
	out := &Table{Columns: make([]Column, len(t.Columns)), nextLabel: t.nextLabel}
	for i, c := range t.Columns {
		out.Columns[i] = Column{Name: c.Name, Type: c.Type, Physical: c.Physical, Annotation: c.Annotation, Cells: make([]Cell, 0, len(labels))}
	}
	for _, l := range labels {
		pos, ok := t.Position(l)
		if !ok {
			continue
		}
		for i := range t.Columns {
			out.Columns[i].Cells = append(out.Columns[i].Cells, t.Columns[i].Cells[pos])
		}
		out.Labels = append(out.Labels, l)
	}
	return out
}

// Clone returns a deep copy that shares no cell storage with t.
func (t *Table) Clone() *Table {
	out := &Table{nextLabel: t.nextLabel}
	if err := deepcopy.Copy(&out.Columns, t.Columns); err != nil {
		// Column is plain data; a failure here is a programming error.
		panic(fmt.Sprintf("clone columns: %v", err))
	}
	out.Labels = append([]int64(nil), t.Labels...)
	return out
}

// Equal reports whether both tables have the same columns, labels and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.Labels) != len(o.Labels) || len(t.Columns) != len(o.Columns) {
		return false
	}
	for i := range t.Labels {
		if t.Labels[i] != o.Labels[i] {
			return false
		}
	}
	for i := range t.Columns {
		a, b := t.Columns[i], o.Columns[i]
		if a.Name != b.Name || a.Type != b.Type || len(a.Cells) != len(b.Cells) {
			return false
		}
		for j := range a.Cells {
			if !a.Cells[j].Equal(b.Cells[j]) {
				return false
			}
		}
	}
	return true
}

func insertAt[T any](s []T, pos int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[pos+1:], s[pos:])
	s[pos] = v
	return s
}

func removeAt[T any](s []T, pos int) []T {
	out := append(s[:pos:pos], s[pos+1:]...)
	return out
}
