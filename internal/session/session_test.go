package session

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"pqx/internal/filter"
	"pqx/internal/model"
	"pqx/internal/mutate"
	"pqx/internal/store"
)

const path = "people.parquet"

func fixture(rows int) *model.Table {
	ids := make([]model.Cell, rows)
	names := make([]model.Cell, rows)
	for i := range ids {
		ids[i] = model.IntCell(int64(i))
		names[i] = model.TextCell("n" + string(rune('a'+i%26)))
	}
	return model.MustTable(
		model.Column{Name: "id", Type: model.DTypeInteger, Cells: ids},
		model.Column{Name: "name", Type: model.DTypeText, Cells: names},
	)
}

func open(t *testing.T, rows, page, size int) (*Session, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	m.Put(path, fixture(rows))
	s, err := Open(context.Background(), m, path, page, size)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, m
}

func TestSubmit_InvalidValueChangesNothing(t *testing.T) {
	ctx := context.Background()
	s, _ := open(t, 5, 1, 10)
	before := s.CurrentWindow().Clone()

	err := s.Submit(ctx, EditCell{Label: 1, Column: "id", Value: "not a number"})
	var eve *model.EditValueError
	if !errors.As(err, &eve) {
		t.Fatalf("expected EditValueError; got %v", err)
	}
	if !s.CurrentWindow().Equal(before) || s.Window().History().Len() != 0 || s.IsDirty() {
		t.Fatalf("expected untouched session")
	}
}

func TestSubmit_DuplicateColumn(t *testing.T) {
	ctx := context.Background()
	s, _ := open(t, 5, 1, 10)

	err := s.Submit(ctx, InsertColumn{Name: "name", Type: model.DTypeText})
	var dup *mutate.DuplicateColumnError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateColumnError; got %v", err)
	}
	if s.CurrentWindow().NumCols() != 2 || s.IsDirty() {
		t.Fatalf("expected untouched session")
	}
}

func TestSubmit_EditThroughFilteredView(t *testing.T) {
	ctx := context.Background()
	s, _ := open(t, 30, 1, 30)

	if err := s.SetQuery(ctx, "id >= 10 and id < 13"); err != nil {
		t.Fatalf("SetQuery: %v", err)
	}
	v := s.View()
	if v.Len() != 3 {
		t.Fatalf("expected 3 visible rows; got %d", v.Len())
	}
	label := v.Label(1)
	if err := s.Submit(ctx, EditCell{Label: label, Column: "name", Value: "edited"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if c, _ := s.CurrentWindow().Cell(11, "name"); c.String() != "edited" {
		t.Fatalf("expected row 11 edited; got %q", c.String())
	}
	if c, _ := s.Window().Canonical().Cell(11, "name"); c.String() != "edited" {
		t.Fatalf("expected canonical edited too")
	}

	if err := s.Submit(ctx, DeleteRows{Labels: []int64{v.Label(0)}}); err != nil {
		t.Fatalf("Submit(delete): %v", err)
	}
	if got := s.View().Labels(); !reflect.DeepEqual(got, []int64{11, 12}) {
		t.Fatalf("expected view refreshed to [11 12]; got %v", got)
	}
	if err := s.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := s.View().Labels(); !reflect.DeepEqual(got, []int64{10, 11, 12}) {
		t.Fatalf("expected deleted row back in view; got %v", got)
	}
	if s.CurrentWindow().NumRows() != 30 {
		t.Fatalf("filtering must not drop rows from the page")
	}
}

func TestSetQuery_ErrorKeepsView(t *testing.T) {
	ctx := context.Background()
	s, _ := open(t, 10, 1, 10)
	s.SetSearch("nb")
	before := s.View().Labels()

	err := s.SetQuery(ctx, "no_such_column > 1")
	var qe *filter.QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QueryError; got %v", err)
	}
	if got := s.View().Labels(); !reflect.DeepEqual(got, before) {
		t.Fatalf("expected view %v kept; got %v", before, got)
	}
}

func TestSave_MergesPageIntoFullFile(t *testing.T) {
	ctx := context.Background()
	s, m := open(t, 25, 2, 10)

	steps := []Request{
		EditCell{Label: 0, Column: "name", Value: "first-of-page-2"},
		DeleteRows{Labels: []int64{9}},
		InsertColumn{Name: "score", Type: model.DTypeFloat},
		InsertRow{Position: 0},
	}
	for _, r := range steps {
		if err := s.Submit(ctx, r); err != nil {
			t.Fatalf("Submit(%T): %v", r, err)
		}
	}
	if !s.IsDirty() {
		t.Fatalf("expected dirty before save")
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.IsDirty() {
		t.Fatalf("expected clean after save")
	}

	saved, _ := m.Get(path)
	if saved.NumRows() != 25 {
		t.Fatalf("expected 25 rows (one deleted, one inserted); got %d", saved.NumRows())
	}
	if got := saved.ColumnNames(); !reflect.DeepEqual(got, []string{"id", "name", "score"}) {
		t.Fatalf("unexpected columns: %v", got)
	}
	ids := saved.Columns[0].Cells
	if ids[9].Int != 9 || !ids[10].IsNull() || ids[11].Int != 10 || ids[24].Int != 24 {
		t.Fatalf("unexpected ids around the page: %v %v %v %v", ids[9], ids[10], ids[11], ids[24])
	}
	if got := saved.Columns[1].Cells[11].String(); got != "first-of-page-2" {
		t.Fatalf("expected edit saved; got %q", got)
	}
	for i := 11; i < 20; i++ {
		if ids[i].Int == 19 {
			t.Fatalf("deleted row 19 still present")
		}
	}
	if !saved.Columns[2].Cells[0].IsNull() {
		t.Fatalf("expected nulls in the new column on other pages")
	}
	if s.Window().Total() != 25 || s.Window().Span() != 10 {
		t.Fatalf("unexpected window bookkeeping: total=%d span=%d", s.Window().Total(), s.Window().Span())
	}

	// A second save after more edits replaces the same span again.
	if err := s.Submit(ctx, DeleteRows{Labels: []int64{1, 2}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	saved, _ = m.Get(path)
	if saved.NumRows() != 23 || saved.Columns[0].Cells[22].Int != 24 {
		t.Fatalf("unexpected second save: rows=%d", saved.NumRows())
	}
}

func TestSave_IoErrorKeepsDirty(t *testing.T) {
	ctx := context.Background()
	s, m := open(t, 5, 1, 10)
	if err := s.Submit(ctx, EditCell{Label: 0, Column: "name", Value: "x"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	m.SetError(path, errors.New("read-only filesystem"))

	var ioe *store.IoError
	if err := s.Save(ctx); !errors.As(err, &ioe) {
		t.Fatalf("expected IoError; got %v", err)
	}
	if !s.IsDirty() {
		t.Fatalf("expected still dirty after failed save")
	}
}

func TestSaveAs_Parquet(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "src.parquet")
	dst := filepath.Join(dir, "dst.parquet")
	p := store.Parquet{}
	if err := p.WriteAll(ctx, src, fixture(12)); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	s, err := Open(ctx, p, src, 2, 5)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Submit(ctx, EditCell{Label: 0, Column: "id", Value: "500"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.SaveAs(ctx, dst); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if s.Path() != dst {
		t.Fatalf("expected session retargeted to %s; got %s", dst, s.Path())
	}

	out, err := p.ReadAll(ctx, dst)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if out.NumRows() != 12 || out.Columns[0].Cells[5].Int != 500 || out.Columns[0].Cells[4].Int != 4 {
		t.Fatalf("unexpected saved data: rows=%d", out.NumRows())
	}
	orig, err := p.ReadAll(ctx, src)
	if err != nil {
		t.Fatalf("ReadAll(src): %v", err)
	}
	if orig.Columns[0].Cells[5].Int != 5 {
		t.Fatalf("source file must be untouched")
	}
}

func TestReset_DiscardsEdits(t *testing.T) {
	ctx := context.Background()
	s, _ := open(t, 5, 1, 10)
	if err := s.Submit(ctx, InsertColumn{Name: "extra", Type: model.DTypeText}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.IsDirty() || s.CurrentWindow().NumCols() != 2 || s.CanUndo() {
		t.Fatalf("expected pristine page after reset")
	}
}

func TestDescribeColumnAndStats(t *testing.T) {
	s, _ := open(t, 3, 1, 10)
	meta, err := s.DescribeColumn(0)
	if err != nil {
		t.Fatalf("DescribeColumn: %v", err)
	}
	if meta.Type != "integer" || meta.Nullable {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if _, err := s.DescribeColumn(5); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	sums := s.Stats()
	if len(sums) != 2 || sums[0].Numeric == nil || sums[0].Numeric.Max != 2 {
		t.Fatalf("unexpected stats: %+v", sums)
	}
}

func TestMerge_ConformsOtherRows(t *testing.T) {
	t.Parallel()

	full := model.MustTable(
		model.Column{Name: "a", Type: model.DTypeInteger, Cells: []model.Cell{model.IntCell(1), model.IntCell(2), model.IntCell(3)}},
		model.Column{Name: "gone", Type: model.DTypeText, Cells: []model.Cell{model.TextCell("x"), model.TextCell("y"), model.TextCell("z")}},
	)
	page := model.MustTable(
		model.Column{Name: "a", Type: model.DTypeInteger, Cells: []model.Cell{model.IntCell(20)}},
		model.Column{Name: "new", Type: model.DTypeText, Cells: []model.Cell{model.TextCell("p")}},
	)
	got, err := Merge(full, 1, 1, page)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := model.MustTable(
		model.Column{Name: "a", Type: model.DTypeInteger, Cells: []model.Cell{model.IntCell(1), model.IntCell(20), model.IntCell(3)}},
		model.Column{Name: "new", Type: model.DTypeText, Cells: []model.Cell{model.NullCell(model.DTypeText), model.TextCell("p"), model.NullCell(model.DTypeText)}},
	)
	if !got.Equal(want) {
		t.Fatalf("unexpected merge: %+v", got.Columns)
	}
}

func TestSubmit_DropQueriedColumnSucceeds(t *testing.T) {
	ctx := context.Background()
	s, _ := open(t, 10, 1, 10)

	if err := s.SetQuery(ctx, "id > 6"); err != nil {
		t.Fatalf("SetQuery: %v", err)
	}
	if err := s.Submit(ctx, DeleteColumns{Names: []string{"id"}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := s.CurrentWindow().ColumnNames(); !reflect.DeepEqual(got, []string{"name"}) {
		t.Fatalf("expected id dropped; got %v", got)
	}
	if s.Window().History().Len() != 1 || !s.IsDirty() {
		t.Fatalf("expected the drop on the history")
	}

	var qe *filter.QueryError
	if err := s.DroppedQuery(); !errors.As(err, &qe) {
		t.Fatalf("expected the cleared query reported; got %v", err)
	}
	if err := s.DroppedQuery(); err != nil {
		t.Fatalf("expected DroppedQuery to be read once; got %v", err)
	}
	if s.View().Expression() != "" || s.View().Len() != 10 {
		t.Fatalf("expected the query cleared and all rows visible; got %q %d", s.View().Expression(), s.View().Len())
	}
}

func TestSave_RefusesTableWithoutColumns(t *testing.T) {
	ctx := context.Background()
	s, m := open(t, 25, 1, 10)

	if err := s.Submit(ctx, DeleteColumns{Names: []string{"id", "name"}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Save(ctx); !errors.Is(err, ErrNoColumns) {
		t.Fatalf("expected ErrNoColumns; got %v", err)
	}
	if got, _ := m.Get(path); got.NumRows() != 25 || got.NumCols() != 2 {
		t.Fatalf("file changed: rows=%d cols=%d", got.NumRows(), got.NumCols())
	}
	if !s.IsDirty() {
		t.Fatalf("expected session to stay dirty")
	}
}
