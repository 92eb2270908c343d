package filter

import (
	"context"
	"slices"

	"pqx/internal/model"
)

// View is the subset of a table's rows matching the active search text and query.
// It holds a reference to the table and the matching labels, never cell copies.
type View struct {
	table  *model.Table
	needle string
	expr   string

	// byExpr and labels are nil when their predicate is inactive.
	byExpr []int64
	labels []int64
}

func NewView(t *model.Table) *View {
	return &View{table: t}
}

func (v *View) Table() *model.Table { return v.table }
func (v *View) Needle() string { return v.needle }
func (v *View) Expression() string { return v.expr }

// Active reports whether any predicate is narrowing the rows.
func (v *View) Active() bool { return v.labels != nil }

func (v *View) Len() int {
	if v.labels == nil {
		return v.table.NumRows()
	}
	return len(v.labels)
}

// Label returns the row label of the i-th visible row.
func (v *View) Label(i int) int64 {
	if v.labels == nil {
		return v.table.Labels[i]
	}
	return v.labels[i]
}

// Labels returns the visible labels in display order.
func (v *View) Labels() []int64 {
	if v.labels == nil {
		return slices.Clone(v.table.Labels)
	}
	return slices.Clone(v.labels)
}

// Position maps the i-th visible row to its position in the table.
func (v *View) Position(i int) (int, bool) {
	return v.table.Position(v.Label(i))
}

// Cell returns the cell of the i-th visible row in column ci.
func (v *View) Cell(i, ci int) model.Cell {
	pos, ok := v.Position(i)
	if !ok {
		return model.NullCell(v.table.Columns[ci].Type)
	}
	return v.table.Columns[ci].Cells[pos]
}

// Materialize copies the visible rows into a new table with the same labels.
func (v *View) Materialize() *model.Table {
	if v.labels == nil {
		return v.table.Clone()
	}
	return v.table.Select(v.labels)
}

// SetText sets the search text and re-derives the rows.
func (v *View) SetText(needle string) {
	v.needle = needle
	v.combine()
}

// SetExpression evaluates predicate against the table. On a *QueryError the
// previous predicate and rows stay in effect.
func (v *View) SetExpression(ctx context.Context, predicate string) error {
	labels, err := Expression(ctx, v.table, predicate)
	if err != nil {
		return err
	}
	v.expr = predicate
	v.byExpr = labels
	if predicate == "" {
		v.byExpr = nil
	}
	v.combine()
	return nil
}

// Clear drops both predicates.
func (v *View) Clear() {
	v.needle, v.expr = "", ""
	v.byExpr, v.labels = nil, nil
}

// Rebind points the view at t and re-evaluates the active predicates. A query
// that no longer evaluates (e.g. its column was dropped) is cleared and its
// error returned.
func (v *View) Rebind(ctx context.Context, t *model.Table) error {
	v.table = t
	return v.Refresh(ctx)
}

// Refresh re-evaluates the active predicates against the current table.
func (v *View) Refresh(ctx context.Context) error {
	var qerr error
	if v.expr != "" {
		labels, err := Expression(ctx, v.table, v.expr)
		if err != nil {
			v.expr, v.byExpr = "", nil
			qerr = err
		} else {
			v.byExpr = labels
		}
	}
	v.combine()
	return qerr
}

func (v *View) combine() {
	text := Text(v.table, v.needle)
	switch {
	case v.byExpr == nil && text == nil:
		v.labels = nil
	case v.byExpr == nil:
		v.labels = text
	case text == nil:
		v.labels = slices.Clone(v.byExpr)
	default:
		keep := make(map[int64]bool, len(text))
		for _, l := range text {
			keep[l] = true
		}
		out := make([]int64, 0, min(len(text), len(v.byExpr)))
		for _, l := range v.byExpr {
			if keep[l] {
				out = append(out, l)
			}
		}
		v.labels = out
	}
}
