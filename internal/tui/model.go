package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"pqx/internal/format"
	"pqx/internal/model"
	"pqx/internal/session"
	"pqx/internal/store"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

type mode int

const (
	modeGrid mode = iota
	modeEdit
	modeSearch
	modeQuery
	modeAddColumn
	modeSaveAs
	modeExport
	modeConfirm
)

// confirmChoice indexes confirmLabels.
const (
	confirmSave = iota
	confirmDiscard
	confirmCancel
)

var confirmLabels = []string{"Save", "Discard", "Cancel"}

// appModel is the bubbletea model. It owns the session; the session's tables are
// shared by every copy of the model bubbletea makes.
type appModel struct {
	ctx  context.Context
	sess *session.Session
	cfg  *store.GlobalConfig

	keys keyMap
	help help.Model

	width  int
	height int

	// cursor in view coordinates, and the first visible row/column.
	row  int
	col  int
	top  int
	left int

	marked map[int64]bool

	mode  mode
	input textinput.Model

	// target of an open cell edit.
	editLabel  int64
	editColumn string
	// search text before the search prompt opened, restored on esc.
	prevNeedle string

	// confirm modal state; pending runs after Save or Discard.
	confirmTitle string
	confirmFocus int
	pending      func(appModel) (appModel, tea.Cmd)

	showStats bool

	status    string
	statusErr bool

	quitting bool
}

func newModel(ctx context.Context, s *session.Session, cfg *store.GlobalConfig) appModel {
	if cfg == nil {
		cfg = &store.GlobalConfig{}
	}
	ti := textinput.New()
	ti.Prompt = ""
	h := help.New()
	h.Width = 80
	return appModel{
		ctx:    ctx,
		sess:   s,
		cfg:    cfg,
		keys:   defaultKeyMap(),
		help:   h,
		width:  80,
		height: 24,
		marked: map[int64]bool{},
		input:  ti,
	}
}

func (m appModel) Init() tea.Cmd {
	return nil
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.clampCursor()
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeGrid:
			return m.updateGrid(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updatePrompt(msg)
		}
	}
	return m, nil
}

func (m appModel) numRows() int { return m.sess.View().Len() }
func (m appModel) numCols() int { return m.sess.CurrentWindow().NumCols() }

func (m appModel) columnName(ci int) string {
	return m.sess.CurrentWindow().Columns[ci].Name
}

func (m *appModel) flash(s string) {
	m.status, m.statusErr = s, false
}

// report shows err in the status line and returns true when there was one.
func (m *appModel) report(err error) bool {
	if err == nil {
		return false
	}
	m.status, m.statusErr = err.Error(), true
	log.WithError(err).Debug("tui")
	return true
}

// noteDroppedQuery appends to the status line when the last edit cleared the query.
func (m *appModel) noteDroppedQuery() {
	if err := m.sess.DroppedQuery(); err != nil {
		m.status, m.statusErr = strings.TrimPrefix(m.status+" · query cleared: "+err.Error(), " · "), true
	}
}

func (m appModel) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status, m.statusErr = "", false
	k := m.keys
	n := m.numRows()

	switch {
	case key.Matches(msg, k.Quit):
		if m.sess.IsDirty() {
			return m.confirm("Quit with unsaved changes?", func(m appModel) (appModel, tea.Cmd) {
				m.quitting = true
				return m, tea.Quit
			}), nil
		}
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, k.Up):
		m.row--
	case key.Matches(msg, k.Down):
		m.row++
	case key.Matches(msg, k.Left):
		m.col--
	case key.Matches(msg, k.Right):
		m.col++
	case key.Matches(msg, k.Top):
		m.row = 0
	case key.Matches(msg, k.Bottom):
		m.row = n - 1
	case key.Matches(msg, k.ScreenUp):
		m.row -= m.gridHeight()
	case key.Matches(msg, k.ScreenDown):
		m.row += m.gridHeight()

	case key.Matches(msg, k.PrevPage):
		if !m.sess.Window().CanPrev() {
			m.flash("Already on the first page")
			break
		}
		return m.guardDirty("Leave page with unsaved changes?", func(m appModel) (appModel, tea.Cmd) {
			m.report(m.sess.ChangePage(m.ctx, -1))
			m.afterLoad()
			return m, nil
		}), nil
	case key.Matches(msg, k.NextPage):
		if !m.sess.Window().CanNext() {
			m.flash("Already on the last page")
			break
		}
		return m.guardDirty("Leave page with unsaved changes?", func(m appModel) (appModel, tea.Cmd) {
			m.report(m.sess.ChangePage(m.ctx, 1))
			m.afterLoad()
			return m, nil
		}), nil
	case key.Matches(msg, k.PageSize):
		size := nextPageSize(m.cfg.PageSizeChoices(), m.sess.Window().PageSize())
		return m.guardDirty("Change page size with unsaved changes?", func(m appModel) (appModel, tea.Cmd) {
			if !m.report(m.sess.ChangePageSize(m.ctx, size)) {
				m.flash(fmt.Sprintf("%s rows per page", humanize.Comma(int64(size))))
			}
			m.afterLoad()
			return m, nil
		}), nil

	case key.Matches(msg, k.Edit):
		if n == 0 || m.numCols() == 0 {
			m.flash("Nothing to edit")
			break
		}
		c := m.sess.View().Cell(m.row, m.col)
		m.editLabel = m.sess.View().Label(m.row)
		m.editColumn = m.columnName(m.col)
		value := ""
		if !c.IsNull() {
			value = c.String()
		}
		return m.openPrompt(modeEdit, value), textinput.Blink
	case key.Matches(msg, k.Mark):
		if n == 0 {
			break
		}
		l := m.sess.View().Label(m.row)
		if m.marked[l] {
			delete(m.marked, l)
		} else {
			m.marked[l] = true
		}
		m.row++
	case key.Matches(msg, k.InsertBelow), key.Matches(msg, k.InsertAbove):
		m.insertRow(key.Matches(msg, k.InsertBelow))
	case key.Matches(msg, k.DeleteRows):
		m.deleteRows()
	case key.Matches(msg, k.AddColumn):
		return m.openPrompt(modeAddColumn, ""), textinput.Blink
	case key.Matches(msg, k.DeleteColumn):
		if m.numCols() == 0 {
			break
		}
		name := m.columnName(m.col)
		if !m.report(m.sess.Submit(m.ctx, session.DeleteColumns{Names: []string{name}})) {
			m.flash(fmt.Sprintf("Dropped column %q (u to undo)", name))
		}
		m.noteDroppedQuery()
	case key.Matches(msg, k.Undo):
		h := m.sess.Window().History()
		if !h.CanUndo() {
			m.flash("Nothing to undo")
			break
		}
		text := h.UndoText()
		if !m.report(m.sess.Undo(m.ctx)) {
			m.flash("Undid: " + text)
		}
		m.noteDroppedQuery()
	case key.Matches(msg, k.Redo):
		h := m.sess.Window().History()
		if !h.CanRedo() {
			m.flash("Nothing to redo")
			break
		}
		text := h.RedoText()
		if !m.report(m.sess.Redo(m.ctx)) {
			m.flash("Redid: " + text)
		}
		m.noteDroppedQuery()

	case key.Matches(msg, k.Search):
		m.prevNeedle = m.sess.View().Needle()
		return m.openPrompt(modeSearch, m.prevNeedle), textinput.Blink
	case key.Matches(msg, k.Query):
		return m.openPrompt(modeQuery, m.sess.View().Expression()), textinput.Blink
	case key.Matches(msg, k.ClearFilter):
		if m.sess.View().Active() {
			m.sess.ClearFilter()
			m.flash("Filter cleared")
		}

	case key.Matches(msg, k.Stats):
		m.showStats = !m.showStats
	case key.Matches(msg, k.Copy):
		m.copyRows()
	case key.Matches(msg, k.Save):
		m.save()
	case key.Matches(msg, k.SaveAs):
		return m.openPrompt(modeSaveAs, m.sess.Path()), textinput.Blink
	case key.Matches(msg, k.Export):
		base := strings.TrimSuffix(m.sess.Path(), filepath.Ext(m.sess.Path()))
		return m.openPrompt(modeExport, base+".csv"), textinput.Blink
	case key.Matches(msg, k.Reset):
		if !m.report(m.sess.Reset(m.ctx)) {
			m.flash("Edits discarded")
		}
		m.afterLoad()
	}

	m.clampCursor()
	return m, nil
}

func nextPageSize(choices []int, current int) int {
	for _, n := range choices {
		if n > current {
			return n
		}
	}
	return choices[0]
}

// afterLoad resets per-page state once the window has been replaced.
func (m *appModel) afterLoad() {
	clear(m.marked)
	m.row, m.top = 0, 0
	m.clampCursor()
}

func (m *appModel) insertRow(below bool) {
	w := m.sess.CurrentWindow()
	pos := w.NumRows()
	if m.numRows() > 0 {
		p, ok := m.sess.View().Position(m.row)
		if ok {
			pos = p
			if below {
				pos++
			}
		}
	}
	if m.report(m.sess.Submit(m.ctx, session.InsertRow{Position: pos})) {
		return
	}
	label := w.Labels[pos]
	m.focusLabel(label)
	m.flash(fmt.Sprintf("Inserted row %d", m.sess.Window().Offset()+pos+1))
}

func (m *appModel) deleteRows() {
	if m.numRows() == 0 {
		return
	}
	var labels []int64
	for _, l := range m.sess.View().Labels() {
		if m.marked[l] {
			labels = append(labels, l)
		}
	}
	if len(labels) == 0 {
		labels = []int64{m.sess.View().Label(m.row)}
	}
	if m.report(m.sess.Submit(m.ctx, session.DeleteRows{Labels: labels})) {
		return
	}
	clear(m.marked)
	m.flash(fmt.Sprintf("Deleted %d row(s) (u to undo)", len(labels)))
}

// focusLabel moves the cursor to the row with label if it is visible.
func (m *appModel) focusLabel(label int64) {
	v := m.sess.View()
	for i := range v.Len() {
		if v.Label(i) == label {
			m.row = i
			return
		}
	}
}

// copyRows puts the marked rows, or the cursor row, on the clipboard as TSV.
func (m *appModel) copyRows() {
	v := m.sess.View()
	if v.Len() == 0 {
		return
	}
	var rows []int
	for i := range v.Len() {
		if m.marked[v.Label(i)] {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		rows = []int{m.row}
	}
	var b strings.Builder
	for _, i := range rows {
		for ci := range m.numCols() {
			if ci > 0 {
				b.WriteByte('\t')
			}
			if c := v.Cell(i, ci); !c.IsNull() {
				b.WriteString(strings.NewReplacer("\t", " ", "\n", " ").Replace(c.String()))
			}
		}
		b.WriteByte('\n')
	}
	if m.report(copyToClipboard(b.String())) {
		return
	}
	m.flash(fmt.Sprintf("Copied %d row(s)", len(rows)))
}

func (m *appModel) save() bool {
	if m.report(m.sess.Save(m.ctx)) {
		return false
	}
	m.flash("Saved " + m.sess.Path())
	return true
}

// guardDirty runs next now when there is nothing to lose, otherwise asks first.
func (m appModel) guardDirty(title string, next func(appModel) (appModel, tea.Cmd)) tea.Model {
	if !m.sess.IsDirty() {
		out, _ := next(m)
		return out
	}
	return m.confirm(title, next)
}

func (m appModel) confirm(title string, next func(appModel) (appModel, tea.Cmd)) appModel {
	m.mode = modeConfirm
	m.confirmTitle = title
	m.confirmFocus = confirmSave
	m.pending = next
	return m
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	choice := -1
	switch msg.String() {
	case "tab", "right", "l":
		m.confirmFocus = (m.confirmFocus + 1) % len(confirmLabels)
	case "shift+tab", "left", "h":
		m.confirmFocus = (m.confirmFocus + len(confirmLabels) - 1) % len(confirmLabels)
	case "esc", "ctrl+g":
		choice = confirmCancel
	case "s":
		choice = confirmSave
	case "d":
		choice = confirmDiscard
	case "c":
		choice = confirmCancel
	case "enter":
		choice = m.confirmFocus
	case "ctrl+c":
		// A second ctrl+c leaves without saving.
		m.quitting = true
		return m, tea.Quit
	}
	if choice < 0 {
		return m, nil
	}

	next := m.pending
	m.mode, m.pending = modeGrid, nil
	switch choice {
	case confirmSave:
		if !m.save() {
			return m, nil
		}
	case confirmCancel:
		return m, nil
	}
	out, cmd := next(m)
	return out, cmd
}

func (m appModel) openPrompt(md mode, value string) appModel {
	m.mode = md
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	switch md {
	case modeEdit:
		m.input.Placeholder = "empty for null"
	case modeSearch:
		m.input.Placeholder = "text in any cell"
	case modeQuery:
		m.input.Placeholder = "age > 30 and city = 'Oslo'"
	case modeAddColumn:
		m.input.Placeholder = "name[:integer|float|text]"
	default:
		m.input.Placeholder = ""
	}
	return m
}

func (m *appModel) closePrompt() {
	m.mode = modeGrid
	m.input.Blur()
	m.input.SetValue("")
}

func (m appModel) promptLabel() string {
	switch m.mode {
	case modeEdit:
		return fmt.Sprintf("%s =", m.editColumn)
	case modeSearch:
		return "/"
	case modeQuery:
		return "where"
	case modeAddColumn:
		return "new column"
	case modeSaveAs:
		return "save as"
	case modeExport:
		return "export to"
	}
	return ""
}

func (m appModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		if m.mode == modeSearch {
			m.sess.SetSearch(m.prevNeedle)
		}
		m.closePrompt()
		m.clampCursor()
		return m, nil
	case "enter":
		return m.submitPrompt(), nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeSearch {
		m.sess.SetSearch(m.input.Value())
		m.row = 0
		m.clampCursor()
	}
	return m, cmd
}

// submitPrompt applies the prompt's value. Input the session rejects keeps the
// prompt open so it can be corrected.
func (m appModel) submitPrompt() appModel {
	value := m.input.Value()
	m.status, m.statusErr = "", false

	var err error
	switch m.mode {
	case modeEdit:
		err = m.sess.Submit(m.ctx, session.EditCell{Label: m.editLabel, Column: m.editColumn, Value: value})
	case modeSearch:
		m.sess.SetSearch(value)
	case modeQuery:
		if err = m.sess.SetQuery(m.ctx, value); err == nil {
			m.row = 0
		}
	case modeAddColumn:
		name, dtype := parseColumnSpec(value)
		if err = m.sess.Submit(m.ctx, session.InsertColumn{Name: name, Type: dtype}); err == nil {
			m.col = m.numCols() - 1
			m.flash(fmt.Sprintf("Added %s column %q", dtype, strings.TrimSpace(name)))
		}
	case modeSaveAs:
		path := strings.TrimSpace(value)
		if err = m.sess.SaveAs(m.ctx, path); err == nil {
			m.flash("Saved " + path)
		}
	case modeExport:
		path := strings.TrimSpace(value)
		rows := m.sess.CurrentFilteredView()
		if err = format.ExportFile(path, rows); err == nil {
			m.flash(fmt.Sprintf("Exported %s rows to %s", humanize.Comma(int64(rows.NumRows())), path))
		}
	}
	if m.report(err) {
		var ve *model.EditValueError
		if errors.As(err, &ve) {
			m.status = fmt.Sprintf("%q is not a valid %s", ve.Input, ve.Type)
		}
		return m
	}
	m.closePrompt()
	m.clampCursor()
	return m
}

// parseColumnSpec splits "name:type". A suffix that is not a type stays part of
// the name, so "a:b" is a text column named "a:b".
func parseColumnSpec(s string) (string, model.DType) {
	if i := strings.LastIndex(s, ":"); i >= 0 {
		if t, err := model.ParseDType(s[i+1:]); err == nil {
			return s[:i], t
		}
	}
	return s, model.DTypeText
}

func (m *appModel) clampCursor() {
	n, nc := m.numRows(), m.numCols()
	m.row = max(min(m.row, n-1), 0)
	m.col = max(min(m.col, nc-1), 0)

	h := m.gridHeight()
	if m.row < m.top {
		m.top = m.row
	}
	if m.row >= m.top+h {
		m.top = m.row - h + 1
	}
	m.top = max(min(m.top, n-h), 0)

	if m.col < m.left {
		m.left = m.col
	}
	widths := m.columnWidths()
	for m.left < m.col && !m.columnFits(widths, m.col) {
		m.left++
	}
}

// viewState is what gets remembered for the file on exit.
func (m appModel) viewState() store.FileViewState {
	w := m.sess.Window()
	return store.FileViewState{
		Page:      w.Page(),
		PageSize:  w.PageSize(),
		CursorRow: m.row,
		CursorCol: m.col,
	}
}

func (m *appModel) restoreCursor(st store.FileViewState) {
	m.row, m.col = st.CursorRow, st.CursorCol
	m.clampCursor()
}
