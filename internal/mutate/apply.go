package mutate

import (
	"fmt"
	"strconv"

	"pqx/internal/model"
)

// Target is what commands edit: the page as displayed and the copy taken at
// load time. Canonical only ever receives cell edits.
type Target struct {
	Window    *model.Table
	Canonical *model.Table
}

type Scope int

const (
	// ScopeCell means a single cell changed; row and column sets are intact.
	ScopeCell Scope = iota
	// ScopeStructure means rows or columns were added or removed.
	ScopeStructure
)

// Change describes what an apply or revert touched.
type Change struct {
	Scope  Scope
	Label  int64
	Column string
}

func apply(cmd Command, tg Target) (Change, error) {
	w := tg.Window
	if w == nil {
		return Change{}, fmt.Errorf("no table loaded")
	}
	switch c := cmd.(type) {
	case *CellEdit:
		setBoth(tg, c.Label, c.Column, c.New)
		return Change{Scope: ScopeCell, Label: c.Label, Column: c.Column}, nil

	case *RowInsert:
		if err := w.InsertRow(c.Position, c.Label, c.Values); err != nil {
			return Change{}, err
		}
		return Change{Scope: ScopeStructure, Label: c.Label}, nil

	case *RowDelete:
		for _, p := range c.Positions {
			if p < 0 || p >= w.NumRows() {
				return Change{}, NotFoundError{Kind: "row position", ID: strconv.Itoa(p)}
			}
		}
		c.removed = c.removed[:0]
		// Highest first so lower positions stay valid.
		for i := len(c.Positions) - 1; i >= 0; i-- {
			p := c.Positions[i]
			label, cells, err := w.RemoveRow(p)
			if err != nil {
				return Change{}, err
			}
			c.removed = append(c.removed, removedRow{pos: p, label: label, cells: cells})
		}
		return Change{Scope: ScopeStructure}, nil

	case *ColumnInsert:
		if w.ColumnIndex(c.Name) >= 0 {
			return Change{}, &DuplicateColumnError{Name: c.Name}
		}
		if err := w.AddColumn(w.NumCols(), model.Column{Name: c.Name, Type: c.Type}); err != nil {
			return Change{}, err
		}
		return Change{Scope: ScopeStructure, Column: c.Name}, nil

	case *ColumnDelete:
		for _, n := range c.Names {
			if w.ColumnIndex(n) < 0 {
				return Change{}, NotFoundError{Kind: "column", ID: n}
			}
		}
		c.removed = c.removed[:0]
		for _, n := range c.Names {
			pos, col, err := w.RemoveColumn(n)
			if err != nil {
				return Change{}, err
			}
			c.removed = append(c.removed, removedColumn{pos: pos, col: col})
		}
		return Change{Scope: ScopeStructure}, nil
	}
	return Change{}, fmt.Errorf("unknown command %T", cmd)
}

func revert(cmd Command, tg Target) (Change, error) {
	w := tg.Window
	if w == nil {
		return Change{}, fmt.Errorf("no table loaded")
	}
	switch c := cmd.(type) {
	case *CellEdit:
		setBoth(tg, c.Label, c.Column, c.Old)
		return Change{Scope: ScopeCell, Label: c.Label, Column: c.Column}, nil

	case *RowInsert:
		pos, ok := w.Position(c.Label)
		if !ok {
			return Change{}, NotFoundError{Kind: "row", ID: strconv.FormatInt(c.Label, 10)}
		}
		c.Values = w.Row(pos)
		if _, _, err := w.RemoveRow(pos); err != nil {
			return Change{}, err
		}
		return Change{Scope: ScopeStructure}, nil

	case *RowDelete:
		// removed is highest-first; reinsert lowest-first.
		for i := len(c.removed) - 1; i >= 0; i-- {
			r := c.removed[i]
			if err := w.InsertRow(r.pos, r.label, r.cells); err != nil {
				return Change{}, err
			}
		}
		return Change{Scope: ScopeStructure}, nil

	case *ColumnInsert:
		if _, _, err := w.RemoveColumn(c.Name); err != nil {
			return Change{}, err
		}
		return Change{Scope: ScopeStructure}, nil

	case *ColumnDelete:
		for i := len(c.removed) - 1; i >= 0; i-- {
			r := c.removed[i]
			if err := w.AddColumn(r.pos, r.col); err != nil {
				return Change{}, err
			}
		}
		return Change{Scope: ScopeStructure}, nil
	}
	return Change{}, fmt.Errorf("unknown command %T", cmd)
}

// setBoth writes the cell wherever the label and column exist. A label may be
// missing from either table after structural edits; that table is skipped. So is
// a canonical column that was dropped and re-added under the same name with
// another type: it is no longer the column being edited.
func setBoth(tg Target, label int64, column string, v model.Cell) {
	tg.Window.SetCell(label, column, v)
	if tg.Canonical == nil {
		return
	}
	wi, ci := tg.Window.ColumnIndex(column), tg.Canonical.ColumnIndex(column)
	if wi < 0 || ci < 0 || tg.Window.Columns[wi].Type != tg.Canonical.Columns[ci].Type {
		return
	}
	tg.Canonical.SetCell(label, column, v)
}

// IsStructural reports whether cmd adds or removes rows or columns.
func IsStructural(cmd Command) bool {
	_, cell := cmd.(*CellEdit)
	return !cell
}
