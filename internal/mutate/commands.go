package mutate

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"pqx/internal/model"
)

// Command is one reversible edit. Commands are plain data; History applies them
// to a Target.
type Command interface {
	// Text is a short human label ("Edit price", "Delete 2 rows").
	Text() string
	command()
}

// CellEdit replaces one cell, addressed by row label and column name.
type CellEdit struct {
	Label  int64
	Column string
	Old    model.Cell
	New    model.Cell
}

// RowInsert inserts a row at Position. Values is nil until the row has been
// undone once; a redo then restores exactly what was there.
type RowInsert struct {
	Position int
	Label    int64
	Values   []model.Cell
}

// RowDelete removes the rows at Positions (ascending, unique).
type RowDelete struct {
	Positions []int

	removed []removedRow
}

type removedRow struct {
	pos   int
	label int64
	cells []model.Cell
}

// ColumnInsert appends an all-null column.
type ColumnInsert struct {
	Name string
	Type model.DType
}

// ColumnDelete drops the named columns.
type ColumnDelete struct {
	Names []string

	removed []removedColumn
}

type removedColumn struct {
	pos int
	col model.Column
}

func (*CellEdit) command() {}
func (*RowInsert) command() {}
func (*RowDelete) command() {}
func (*ColumnInsert) command() {}
func (*ColumnDelete) command() {}

func (c *CellEdit) Text() string { return "Edit " + c.Column }
func (c *RowInsert) Text() string {
	return "Insert row at " + strconv.Itoa(c.Position+1)
}
func (c *RowDelete) Text() string { return plural("Delete", len(c.Positions), "row") }
func (c *ColumnInsert) Text() string { return "Add column " + c.Name }
func (c *ColumnDelete) Text() string {
	if len(c.Names) == 1 {
		return "Delete column " + c.Names[0]
	}
	return plural("Delete", len(c.Names), "column")
}

func plural(verb string, n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%s 1 %s", verb, noun)
	}
	return fmt.Sprintf("%s %d %ss", verb, n, noun)
}

// NewCellEdit coerces raw to the column's type and captures the current value.
// A coercion failure is a *model.EditValueError.
func NewCellEdit(t *model.Table, label int64, column, raw string) (*CellEdit, error) {
	ci := t.ColumnIndex(column)
	if ci < 0 {
		return nil, NotFoundError{Kind: "column", ID: column}
	}
	old, ok := t.Cell(label, column)
	if !ok {
		return nil, NotFoundError{Kind: "row", ID: strconv.FormatInt(label, 10)}
	}
	next, err := model.Coerce(t.Columns[ci].Type, raw)
	if err != nil {
		var eve *model.EditValueError
		if errors.As(err, &eve) {
			eve.Column = column
		}
		return nil, err
	}
	return &CellEdit{Label: label, Column: column, Old: old, New: next}, nil
}

// NewCellClear sets a cell to null, whatever the column's type.
func NewCellClear(t *model.Table, label int64, column string) (*CellEdit, error) {
	ci := t.ColumnIndex(column)
	if ci < 0 {
		return nil, NotFoundError{Kind: "column", ID: column}
	}
	old, ok := t.Cell(label, column)
	if !ok {
		return nil, NotFoundError{Kind: "row", ID: strconv.FormatInt(label, 10)}
	}
	return &CellEdit{Label: label, Column: column, Old: old, New: model.NullCell(t.Columns[ci].Type)}, nil
}

// NewRowInsert reserves a fresh label for a row inserted at pos.
func NewRowInsert(t *model.Table, pos int) (*RowInsert, error) {
	if pos < 0 || pos > t.NumRows() {
		return nil, fmt.Errorf("row position %d out of range [0, %d]", pos, t.NumRows())
	}
	return &RowInsert{Position: pos, Label: t.NewLabel()}, nil
}

func NewRowDelete(t *model.Table, positions []int) (*RowDelete, error) {
	if len(positions) == 0 {
		return nil, errors.New("no rows selected")
	}
	ps := slices.Clone(positions)
	slices.Sort(ps)
	ps = slices.Compact(ps)
	for _, p := range ps {
		if p < 0 || p >= t.NumRows() {
			return nil, NotFoundError{Kind: "row position", ID: strconv.Itoa(p)}
		}
	}
	return &RowDelete{Positions: ps}, nil
}

// NewColumnInsert fails with *DuplicateColumnError when name is taken.
func NewColumnInsert(t *model.Table, name string, dtype model.DType) (*ColumnInsert, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("column name is required")
	}
	if t.ColumnIndex(name) >= 0 {
		return nil, &DuplicateColumnError{Name: name}
	}
	return &ColumnInsert{Name: name, Type: dtype}, nil
}

func NewColumnDelete(t *model.Table, names []string) (*ColumnDelete, error) {
	if len(names) == 0 {
		return nil, errors.New("no columns selected")
	}
	var out []string
	for _, n := range names {
		if t.ColumnIndex(n) < 0 {
			return nil, NotFoundError{Kind: "column", ID: n}
		}
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return &ColumnDelete{Names: out}, nil
}
