package tui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"pqx/internal/model"
	"pqx/internal/stats"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

const (
	minColumnWidth = 3
	maxColumnWidth = 32
	statsPaneWidth = 42
	nullText       = "∅"
)

func (m appModel) View() string {
	if m.quitting {
		return ""
	}
	if m.mode == modeConfirm {
		modal := renderChoiceModal(m.width, m.confirmTitle, "Your edits to this page have not been saved.", confirmLabels, m.confirmFocus)
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
	}

	title := m.titleView()
	status := m.statusView()
	footer := m.footerView()

	body := m.gridView()
	if m.showStats {
		gw := m.gridWidth()
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			normalizePane(body, gw, m.gridHeight()+1),
			normalizePane(m.statsView(), m.width-gw, m.gridHeight()+1),
		)
	}

	return strings.Join([]string{title, body, status, footer}, "\n")
}

// gridHeight is the number of data rows that fit below the column header.
func (m appModel) gridHeight() int {
	// title, column header, status line
	h := m.height - 3 - lipgloss.Height(m.footerView())
	return max(h, 1)
}

func (m appModel) gridWidth() int {
	if !m.showStats || m.width < statsPaneWidth*2 {
		return m.width
	}
	return m.width - statsPaneWidth
}

func (m appModel) gutterWidth() int {
	w := m.sess.Window()
	return len(strconv.Itoa(w.Offset()+m.sess.CurrentWindow().NumRows())) + 2
}

// cellText is a cell as shown in the grid: one line, nulls as a marker.
func cellText(c model.Cell) string {
	if c.IsNull() {
		return nullText
	}
	return strings.NewReplacer("\n", "⏎", "\r", "", "\t", " ").Replace(c.String())
}

// columnWidths sizes every column to its header and the rows on screen.
func (m appModel) columnWidths() []int {
	t := m.sess.CurrentWindow()
	v := m.sess.View()
	widths := make([]int, t.NumCols())
	end := min(m.top+m.gridHeight(), v.Len())
	for ci, c := range t.Columns {
		w := xansi.StringWidth(c.Name)
		for i := m.top; i < end; i++ {
			w = max(w, xansi.StringWidth(cellText(v.Cell(i, ci))))
		}
		widths[ci] = min(max(w, minColumnWidth), maxColumnWidth)
	}
	return widths
}

// columnFits reports whether column ci is fully visible when drawing from m.left.
func (m appModel) columnFits(widths []int, ci int) bool {
	used := m.gutterWidth()
	for i := m.left; i <= ci && i < len(widths); i++ {
		used += widths[i] + 1
	}
	return used <= m.gridWidth()
}

func (m appModel) gridView() string {
	t := m.sess.CurrentWindow()
	v := m.sess.View()
	win := m.sess.Window()
	widths := m.columnWidths()
	gutter := m.gutterWidth()
	gw := m.gridWidth()

	var lines []string

	header := strings.Repeat(" ", gutter)
	for ci := m.left; ci < len(widths); ci++ {
		name := fitWidth(t.Columns[ci].Name, widths[ci])
		st := styleHeader()
		if ci == m.col {
			st = st.Underline(true)
		}
		header += st.Render(name) + " "
	}
	lines = append(lines, fitWidth(header, gw))

	if v.Len() == 0 {
		msg := "No rows"
		if v.Active() {
			msg = "No rows match the filter (esc to clear)"
		}
		lines = append(lines, styleMuted().Render(msg))
		return strings.Join(lines, "\n")
	}

	end := min(m.top+m.gridHeight(), v.Len())
	for i := m.top; i < end; i++ {
		label := v.Label(i)
		pos, _ := v.Position(i)

		mark := " "
		if m.marked[label] {
			mark = "•"
		}
		num := fmt.Sprintf("%*d", gutter-2, win.Offset()+pos+1)
		line := styleMuted().Render(num) + mark + " "

		for ci := m.left; ci < len(widths); ci++ {
			c := v.Cell(i, ci)
			text := cellText(c)
			if c.Type != model.DTypeText && !c.IsNull() {
				text = alignRight(text, widths[ci])
			} else {
				text = fitWidth(text, widths[ci])
			}
			line += m.cellStyle(i, ci, label, c).Render(text) + " "
		}
		lines = append(lines, fitWidth(line, gw))
	}
	return strings.Join(lines, "\n")
}

// alignRight right-aligns s in width columns.
func alignRight(s string, width int) string {
	w := xansi.StringWidth(s)
	if w >= width {
		return fitWidth(s, width)
	}
	return strings.Repeat(" ", width-w) + s
}

func (m appModel) cellStyle(i, ci int, label int64, c model.Cell) lipgloss.Style {
	st := lipgloss.NewStyle()
	if c.IsNull() {
		st = styleNull()
	}
	switch {
	case i == m.row && ci == m.col:
		return st.Foreground(colorCursorFg).Background(colorCursorBg).Bold(true)
	case i == m.row:
		return st.Foreground(colorSelectedFg).Background(colorSelectedBg)
	case m.marked[label]:
		return st.Background(colorMarkedBg)
	}
	return st
}

func (m appModel) titleView() string {
	win := m.sess.Window()
	v := m.sess.View()

	name := lipgloss.NewStyle().Bold(true).Render(filepath.Base(m.sess.Path()))
	left := "pqx  " + name
	if m.sess.IsDirty() {
		left += " " + lipgloss.NewStyle().Foreground(colorDirty).Bold(true).Render("[Modified]")
	}
	if needle := v.Needle(); needle != "" {
		left += styleMuted().Render(fmt.Sprintf("  /%s", needle))
	}
	if expr := v.Expression(); expr != "" {
		left += styleMuted().Render(fmt.Sprintf("  where %s", expr))
	}

	first := win.Offset() + 1
	last := win.Offset() + m.sess.CurrentWindow().NumRows()
	if last < first {
		first = last
	}
	right := fmt.Sprintf("Page %d / %d · rows %s–%s of %s · %s/page",
		win.Page(), win.PageCount(),
		humanize.Comma(int64(first)), humanize.Comma(int64(last)),
		humanize.Comma(int64(win.Total())),
		humanize.Comma(int64(win.PageSize())),
	)
	if v.Active() {
		right = fmt.Sprintf("%s shown · ", humanize.Comma(int64(v.Len()))) + right
	}
	right = styleMuted().Render(right)

	gap := m.width - xansi.StringWidth(left) - xansi.StringWidth(right)
	if gap < 1 {
		return fitWidth(left+" "+right, m.width)
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m appModel) statusView() string {
	if m.status != "" {
		st := lipgloss.NewStyle().Foreground(colorAccent)
		if m.statusErr {
			st = lipgloss.NewStyle().Foreground(colorError).Bold(true)
		}
		return fitWidth(st.Render(m.status), m.width)
	}
	if m.numCols() == 0 {
		return styleMuted().Render("No columns (A to add one)")
	}
	meta, err := m.sess.DescribeColumn(m.col)
	if err != nil {
		return ""
	}
	parts := []string{
		fmt.Sprintf("%s · Type: %s, Nullable: %t", meta.Name, meta.Type, meta.Nullable),
		fmt.Sprintf("Row %d/%d", min(m.row+1, m.numRows()), m.numRows()),
		fmt.Sprintf("Col %d/%d", m.col+1, m.numCols()),
	}
	if n := len(m.marked); n > 0 {
		parts = append(parts, fmt.Sprintf("%d marked", n))
	}
	return fitWidth(styleMuted().Render(strings.Join(parts, "  ·  ")), m.width)
}

func (m appModel) footerView() string {
	if m.mode != modeGrid && m.mode != modeConfirm {
		return renderInputLine(m.width, m.promptLabel(), m.input.View())
	}
	return m.help.View(m.keys)
}

func (m appModel) statsView() string {
	if m.numCols() == 0 {
		return ""
	}
	col := m.sess.CurrentFilteredView().Columns[m.col]
	return renderMarkdown(stats.Markdown([]stats.Summary{stats.Describe(col)}), m.width-m.gridWidth()-2)
}
