package session

import "pqx/internal/model"

// Request is an edit asked for by the UI. Rows are addressed by label, so a
// request built against a filtered view still lands on the right row.
type Request interface {
	request()
}

// EditCell sets one cell from user input. Null clears the cell and ignores Value.
type EditCell struct {
	Label  int64
	Column string
	Value  string
	Null   bool
}

// InsertRow inserts an all-null row at Position in the page (not the view).
type InsertRow struct {
	Position int
}

type DeleteRows struct {
	Labels []int64
}

type InsertColumn struct {
	Name string
	Type model.DType
}

type DeleteColumns struct {
	Names []string
}

func (EditCell) request() {}
func (InsertRow) request() {}
func (DeleteRows) request() {}
func (InsertColumn) request() {}
func (DeleteColumns) request() {}
