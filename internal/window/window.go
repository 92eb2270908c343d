package window

import (
	"context"
	"fmt"

	"pqx/internal/model"
	"pqx/internal/mutate"
	"pqx/internal/store"

	log "github.com/sirupsen/logrus"
)

// PageWindow holds one page of a file in memory.
//
// window is what the user sees and edits; canonical is the page as loaded, kept
// in step with cell edits only.
type PageWindow struct {
	store store.ColumnarStore
	path  string

	pageSize int
	page     int // 1-based
	total    int
	offset   int
	// span is how many file rows the page covers: the rows read at load, or the
	// rows written by the last save.
	span int

	window    *model.Table
	canonical *model.Table

	history *mutate.History
	dirty   *DirtyTracker
}

// New returns an empty window over path. Nothing is read until Load.
func New(st store.ColumnarStore, path string, pageSize int) *PageWindow {
	if pageSize <= 0 {
		pageSize = store.DefaultPageSize
	}
	empty := model.MustTable()
	w := &PageWindow{
		store:     st,
		path:      path,
		pageSize:  pageSize,
		page:      1,
		window:    empty,
		canonical: empty.Clone(),
	}
	w.history = mutate.NewHistory(mutate.Target{Window: w.window, Canonical: w.canonical})
	w.dirty = NewDirtyTracker(w.history)
	w.history.Observe(func(_ mutate.Command, ch mutate.Change) {
		if ch.Scope == mutate.ScopeStructure {
			w.dirty.MarkStructural()
		}
	})
	return w
}

// Load reads page (1-based, clamped) at size rows per page.
//
// On failure the previous page, total and settings are kept and the error is a
// *store.IoError.
func (w *PageWindow) Load(ctx context.Context, page, size int) error {
	if size <= 0 {
		return fmt.Errorf("page size must be positive; got %d", size)
	}
	total, err := w.store.RowCount(ctx, w.path)
	if err != nil {
		return err
	}
	page = clampPage(page, total, size)
	offset := (page - 1) * size
	t, err := w.store.ReadSlice(ctx, w.path, offset, size)
	if err != nil {
		return err
	}

	w.total = total
	w.pageSize = size
	w.page = page
	w.offset = offset
	w.span = t.NumRows()
	w.window = t
	w.canonical = t.Clone()
	w.history.Reset(mutate.Target{Window: w.window, Canonical: w.canonical})
	w.dirty.Reset()
	log.WithFields(log.Fields{"path": w.path, "page": page, "size": size, "rows": t.NumRows(), "total": total}).Debug("page loaded")
	return nil
}

func clampPage(page, total, size int) int {
	return max(1, min(page, pageCount(total, size)))
}

func pageCount(total, size int) int {
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// ChangePageSize switches to n rows per page and goes back to page 1.
func (w *PageWindow) ChangePageSize(ctx context.Context, n int) error {
	return w.Load(ctx, 1, n)
}

// ChangePage moves delta pages from the current one. Out-of-range targets clamp.
func (w *PageWindow) ChangePage(ctx context.Context, delta int) error {
	return w.Load(ctx, w.page+delta, w.pageSize)
}

// Reload re-reads the current page, discarding edits.
func (w *PageWindow) Reload(ctx context.Context) error {
	return w.Load(ctx, w.page, w.pageSize)
}

// MarkSaved records that the page was written back and the file now holds total
// rows.
func (w *PageWindow) MarkSaved(total int) {
	w.total = total
	w.span = w.window.NumRows()
	w.dirty.MarkSaved()
}

// Retarget points the window at a different path without reading it. Used after
// Save As so the next load and save go to the new file.
func (w *PageWindow) Retarget(path string) {
	w.path = path
}

func (w *PageWindow) PageCount() int { return pageCount(w.total, w.pageSize) }
func (w *PageWindow) CanPrev() bool { return w.page > 1 }
func (w *PageWindow) CanNext() bool { return w.page < w.PageCount() }

// Offset is the absolute row index of the first row of the page in the file.
func (w *PageWindow) Offset() int { return w.offset }
func (w *PageWindow) Span() int { return w.span }
func (w *PageWindow) Page() int { return w.page }
func (w *PageWindow) PageSize() int { return w.pageSize }
func (w *PageWindow) Total() int { return w.total }
func (w *PageWindow) Path() string { return w.path }
func (w *PageWindow) Store() store.ColumnarStore { return w.store }
func (w *PageWindow) Window() *model.Table { return w.window }
func (w *PageWindow) Canonical() *model.Table { return w.canonical }
func (w *PageWindow) History() *mutate.History { return w.history }
func (w *PageWindow) Dirty() *DirtyTracker { return w.dirty }
func (w *PageWindow) IsDirty() bool { return w.dirty.IsDirty() }

