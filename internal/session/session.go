package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"pqx/internal/filter"
	"pqx/internal/model"
	"pqx/internal/mutate"
	"pqx/internal/stats"
	"pqx/internal/store"
	"pqx/internal/window"

	log "github.com/sirupsen/logrus"
)

// Session ties a page window to its filtered view. It is what the UI drives:
// every edit, undo, page change and save goes through it.
//
// A Session is not safe for concurrent use.
type Session struct {
	win  *window.PageWindow
	view *filter.View

	// structural is set by the history observer when rows or columns changed
	// since the view was last refreshed.
	structural bool
	// dropped holds the query a refresh had to clear, until DroppedQuery reads it.
	dropped error
}

// New returns a session over path without reading anything.
func New(st store.ColumnarStore, path string, pageSize int) *Session {
	win := window.New(st, path, pageSize)
	s := &Session{win: win, view: filter.NewView(win.Window())}
	win.History().Observe(func(_ mutate.Command, ch mutate.Change) {
		if ch.Scope == mutate.ScopeStructure {
			s.structural = true
		}
	})
	return s
}

// Open creates a session and loads page.
func Open(ctx context.Context, st store.ColumnarStore, path string, page, pageSize int) (*Session, error) {
	s := New(st, path, pageSize)
	if err := s.Load(ctx, page, s.win.PageSize()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Window() *window.PageWindow { return s.win }
func (s *Session) View() *filter.View { return s.view }
func (s *Session) Path() string { return s.win.Path() }

// CurrentWindow is the page as edited, unfiltered.
func (s *Session) CurrentWindow() *model.Table { return s.win.Window() }

// CurrentFilteredView copies the visible rows, keeping their labels.
func (s *Session) CurrentFilteredView() *model.Table { return s.view.Materialize() }

// Load replaces the page. Active filters are re-applied to the new page; a query
// that no longer evaluates is dropped and reported after the load succeeds.
func (s *Session) Load(ctx context.Context, page, size int) error {
	if err := s.win.Load(ctx, page, size); err != nil {
		return err
	}
	s.structural = false
	s.dropped = nil
	return s.view.Rebind(ctx, s.win.Window())
}

func (s *Session) ChangePage(ctx context.Context, delta int) error {
	return s.Load(ctx, s.win.Page()+delta, s.win.PageSize())
}

func (s *Session) ChangePageSize(ctx context.Context, n int) error {
	return s.Load(ctx, 1, n)
}

// Reset discards every edit by re-reading the current page.
func (s *Session) Reset(ctx context.Context) error {
	return s.Load(ctx, s.win.Page(), s.win.PageSize())
}

// Submit turns req into a command and pushes it. Invalid input is reported as
// *model.EditValueError or *mutate.DuplicateColumnError and changes nothing.
// Once the command is applied Submit succeeds; a query the edit invalidated is
// cleared and available from DroppedQuery.
func (s *Session) Submit(ctx context.Context, req Request) error {
	cmd, err := s.command(req)
	if err != nil {
		return err
	}
	if err := s.win.History().Push(cmd); err != nil {
		return err
	}
	s.refresh(ctx)
	return nil
}

func (s *Session) command(req Request) (mutate.Command, error) {
	w := s.win.Window()
	switch r := req.(type) {
	case EditCell:
		if r.Null {
			return mutate.NewCellClear(w, r.Label, r.Column)
		}
		return mutate.NewCellEdit(w, r.Label, r.Column, r.Value)
	case InsertRow:
		return mutate.NewRowInsert(w, r.Position)
	case DeleteRows:
		positions := make([]int, 0, len(r.Labels))
		for _, l := range r.Labels {
			pos, ok := w.Position(l)
			if !ok {
				return nil, mutate.NotFoundError{Kind: "row", ID: strconv.FormatInt(l, 10)}
			}
			positions = append(positions, pos)
		}
		return mutate.NewRowDelete(w, positions)
	case InsertColumn:
		return mutate.NewColumnInsert(w, r.Name, r.Type)
	case DeleteColumns:
		return mutate.NewColumnDelete(w, r.Names)
	}
	return nil, fmt.Errorf("unknown request %T", req)
}

func (s *Session) Undo(ctx context.Context) error {
	if err := s.win.History().Undo(); err != nil {
		return err
	}
	s.refresh(ctx)
	return nil
}

func (s *Session) Redo(ctx context.Context) error {
	if err := s.win.History().Redo(); err != nil {
		return err
	}
	s.refresh(ctx)
	return nil
}

// DroppedQuery returns the *filter.QueryError of a query cleared by the last
// edit, undo or redo, and forgets it.
func (s *Session) DroppedQuery() error {
	err := s.dropped
	s.dropped = nil
	return err
}

// refresh re-derives the view after structural changes. Cell edits leave the
// visible row set alone so an edited row does not vanish from under the cursor.
func (s *Session) refresh(ctx context.Context) {
	if !s.structural {
		return
	}
	s.structural = false
	if err := s.view.Refresh(ctx); err != nil {
		s.dropped = err
		log.WithError(err).Debug("query dropped")
	}
}

func (s *Session) IsDirty() bool { return s.win.IsDirty() }
func (s *Session) CanUndo() bool { return s.win.History().CanUndo() }
func (s *Session) CanRedo() bool { return s.win.History().CanRedo() }

// DescribeColumn returns the type and nullability of the i-th column.
func (s *Session) DescribeColumn(i int) (model.ColumnMeta, error) {
	return s.win.Window().Metadata(i)
}

// SetSearch narrows the view to rows containing needle.
func (s *Session) SetSearch(needle string) { s.view.SetText(needle) }

// SetQuery narrows the view with a SQL predicate. A *filter.QueryError leaves the
// view as it was.
func (s *Session) SetQuery(ctx context.Context, predicate string) error {
	return s.view.SetExpression(ctx, predicate)
}

func (s *Session) ClearFilter() { s.view.Clear() }

// Stats summarizes every column of the page.
func (s *Session) Stats() []stats.Summary {
	return stats.DescribeTable(s.win.Window())
}

// Save writes the edited page back into its file.
func (s *Session) Save(ctx context.Context) error {
	return s.SaveAs(ctx, s.win.Path())
}

// SaveAs writes the whole dataset, with the edited page spliced in, to path and
// makes path the session's file. The source file is read in full first, so rows
// on other pages are kept.
func (s *Session) SaveAs(ctx context.Context, path string) error {
	st := s.win.Store()
	full, err := st.ReadAll(ctx, s.win.Path())
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		// A new file has no other pages.
		full = model.MustTable()
	}
	merged, err := Merge(full, s.win.Offset(), s.win.Span(), s.win.Window())
	if err != nil {
		return err
	}
	if err := st.WriteAll(ctx, path, merged); err != nil {
		return err
	}
	s.win.Retarget(path)
	s.win.MarkSaved(merged.NumRows())
	log.WithFields(log.Fields{"path": path, "rows": merged.NumRows(), "offset": s.win.Offset()}).Info("saved")
	return nil
}
