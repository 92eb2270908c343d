package window

import (
	"context"
	"errors"
	"testing"

	"pqx/internal/model"
	"pqx/internal/mutate"
	"pqx/internal/store"
)

const path = "data.parquet"

func seeded(t *testing.T, rows int) *store.Memory {
	t.Helper()
	ids := make([]model.Cell, rows)
	names := make([]model.Cell, rows)
	for i := range ids {
		ids[i] = model.IntCell(int64(i))
		names[i] = model.TextCell("row")
	}
	m := store.NewMemory()
	m.Put(path, model.MustTable(
		model.Column{Name: "id", Type: model.DTypeInteger, Cells: ids},
		model.Column{Name: "name", Type: model.DTypeText, Cells: names},
	))
	return m
}

func firstID(t *testing.T, w *PageWindow) int64 {
	t.Helper()
	return w.Window().Columns[0].Cells[0].Int
}

func TestLoad_Pagination(t *testing.T) {
	ctx := context.Background()
	w := New(seeded(t, 2500), path, 1000)

	cases := []struct {
		page      int
		wantRows  int
		wantFirst int64
		wantLast  int64
	}{
		{1, 1000, 0, 999},
		{2, 1000, 1000, 1999},
		{3, 500, 2000, 2499},
	}
	for _, tc := range cases {
		if err := w.Load(ctx, tc.page, 1000); err != nil {
			t.Fatalf("Load(%d): %v", tc.page, err)
		}
		tb := w.Window()
		if tb.NumRows() != tc.wantRows {
			t.Fatalf("page %d: expected %d rows; got %d", tc.page, tc.wantRows, tb.NumRows())
		}
		if got := firstID(t, w); got != tc.wantFirst {
			t.Fatalf("page %d: expected first %d; got %d", tc.page, tc.wantFirst, got)
		}
		if got := tb.Columns[0].Cells[tb.NumRows()-1].Int; got != tc.wantLast {
			t.Fatalf("page %d: expected last %d; got %d", tc.page, tc.wantLast, got)
		}
		if w.Offset() != (tc.page-1)*1000 {
			t.Fatalf("page %d: unexpected offset %d", tc.page, w.Offset())
		}
	}
	if w.PageCount() != 3 || w.CanNext() || !w.CanPrev() {
		t.Fatalf("unexpected navigation state: count=%d next=%v prev=%v", w.PageCount(), w.CanNext(), w.CanPrev())
	}
}

func TestLoad_RowCountProperty(t *testing.T) {
	ctx := context.Background()
	for _, n := range []int{0, 1, 7, 10, 11, 99} {
		m := seeded(t, n)
		for _, s := range []int{1, 3, 10} {
			w := New(m, path, s)
			for p := 1; p <= pageCount(n, s); p++ {
				if err := w.Load(ctx, p, s); err != nil {
					t.Fatalf("Load(n=%d s=%d p=%d): %v", n, s, p, err)
				}
				want := min(s, max(0, n-(p-1)*s))
				if got := w.Window().NumRows(); got != want {
					t.Fatalf("n=%d s=%d p=%d: expected %d rows; got %d", n, s, p, want, got)
				}
				if want > 0 && firstID(t, w) != int64((p-1)*s) {
					t.Fatalf("n=%d s=%d p=%d: wrong first row %d", n, s, p, firstID(t, w))
				}
			}
		}
	}
}

func TestLoad_ClampsPage(t *testing.T) {
	ctx := context.Background()
	w := New(seeded(t, 25), path, 10)

	if err := w.Load(ctx, 99, 10); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w.Page() != 3 || firstID(t, w) != 20 {
		t.Fatalf("expected clamp to page 3; got page %d first %d", w.Page(), firstID(t, w))
	}
	if err := w.ChangePage(ctx, -10); err != nil {
		t.Fatalf("ChangePage: %v", err)
	}
	if w.Page() != 1 {
		t.Fatalf("expected clamp to page 1; got %d", w.Page())
	}

	empty := New(seeded(t, 0), path, 10)
	if err := empty.Load(ctx, 5, 10); err != nil {
		t.Fatalf("Load(empty): %v", err)
	}
	if empty.Page() != 1 || empty.PageCount() != 1 || empty.Window().NumCols() != 2 {
		t.Fatalf("unexpected empty state: page=%d count=%d cols=%d", empty.Page(), empty.PageCount(), empty.Window().NumCols())
	}
}

func TestChangePageSize_ResetsToFirstPage(t *testing.T) {
	ctx := context.Background()
	w := New(seeded(t, 2500), path, 1000)
	if err := w.Load(ctx, 3, 1000); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := w.ChangePageSize(ctx, 100); err != nil {
		t.Fatalf("ChangePageSize: %v", err)
	}
	if w.Page() != 1 || w.PageSize() != 100 || w.Window().NumRows() != 100 || w.PageCount() != 25 {
		t.Fatalf("unexpected state: page=%d size=%d rows=%d", w.Page(), w.PageSize(), w.Window().NumRows())
	}
}

func TestLoad_FailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	m := seeded(t, 30)
	w := New(m, path, 10)
	if err := w.Load(ctx, 2, 10); err != nil {
		t.Fatalf("Load: %v", err)
	}
	edit, err := mutate.NewCellEdit(w.Window(), 0, "name", "edited")
	if err != nil {
		t.Fatalf("NewCellEdit: %v", err)
	}
	if err := w.History().Push(edit); err != nil {
		t.Fatalf("Push: %v", err)
	}
	before := w.Window()

	m.SetError(path, errors.New("corrupt footer"))
	err = w.ChangePage(ctx, 1)
	var ioe *store.IoError
	if !errors.As(err, &ioe) {
		t.Fatalf("expected IoError; got %v", err)
	}
	if w.Window() != before || w.Page() != 2 || w.Total() != 30 {
		t.Fatalf("expected previous page kept; page=%d total=%d", w.Page(), w.Total())
	}
	if !w.IsDirty() || w.History().Len() != 1 {
		t.Fatalf("expected edits kept after failed load")
	}
}

func TestDirtyTracking(t *testing.T) {
	ctx := context.Background()
	w := New(seeded(t, 5), path, 10)
	if err := w.Load(ctx, 1, 10); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w.IsDirty() {
		t.Fatalf("expected clean after load")
	}

	push := func(raw string) {
		t.Helper()
		cmd, err := mutate.NewCellEdit(w.Window(), 0, "name", raw)
		if err != nil {
			t.Fatalf("NewCellEdit: %v", err)
		}
		if err := w.History().Push(cmd); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	push("a")
	if !w.IsDirty() {
		t.Fatalf("expected dirty after edit")
	}
	w.Dirty().MarkSaved()
	if w.IsDirty() {
		t.Fatalf("expected clean after save")
	}
	push("b")
	_ = w.History().Undo()
	if w.IsDirty() {
		t.Fatalf("expected clean after undo back to the saved cursor")
	}
	_ = w.History().Undo()
	if !w.IsDirty() {
		t.Fatalf("expected dirty after undo past the saved cursor")
	}

	if err := w.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if w.IsDirty() || w.History().Len() != 0 {
		t.Fatalf("expected reload to discard edits")
	}
}

func TestDirtyTracking_StructuralEditIsSticky(t *testing.T) {
	ctx := context.Background()
	w := New(seeded(t, 5), path, 10)
	if err := w.Load(ctx, 1, 10); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ins, err := mutate.NewRowInsert(w.Window(), 0)
	if err != nil {
		t.Fatalf("NewRowInsert: %v", err)
	}
	if err := w.History().Push(ins); err != nil {
		t.Fatalf("Push: %v", err)
	}
	_ = w.History().Undo()
	if !w.History().IsClean() {
		t.Fatalf("expected history clean after undo")
	}
	if !w.IsDirty() {
		t.Fatalf("expected structural edit to keep the page dirty")
	}
	w.Dirty().MarkSaved()
	if w.IsDirty() {
		t.Fatalf("expected clean after save")
	}
}
