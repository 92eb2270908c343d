package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down, Left, Right key.Binding
	Top, Bottom           key.Binding
	ScreenUp, ScreenDown  key.Binding
	PrevPage, NextPage    key.Binding
	PageSize              key.Binding

	Edit         key.Binding
	Mark         key.Binding
	InsertBelow  key.Binding
	InsertAbove  key.Binding
	DeleteRows   key.Binding
	AddColumn    key.Binding
	DeleteColumn key.Binding
	Undo, Redo   key.Binding

	Search, Query, ClearFilter key.Binding

	Stats  key.Binding
	Copy   key.Binding
	Save   key.Binding
	SaveAs key.Binding
	Export key.Binding
	Reset  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Top:        key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first row")),
		Bottom:     key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last row")),
		ScreenUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "screen up")),
		ScreenDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "screen down")),
		PrevPage:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev page")),
		NextPage:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next page")),
		PageSize:   key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "page size")),

		Edit:         key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("e", "edit cell")),
		Mark:         key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "mark row")),
		InsertBelow:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "row below")),
		InsertAbove:  key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "row above")),
		DeleteRows:   key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete rows")),
		AddColumn:    key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "add column")),
		DeleteColumn: key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "drop column")),
		Undo:         key.NewBinding(key.WithKeys("u", "ctrl+z"), key.WithHelp("u", "undo")),
		Redo:         key.NewBinding(key.WithKeys("ctrl+r", "ctrl+y"), key.WithHelp("ctrl+r", "redo")),

		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Query:       key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "query")),
		ClearFilter: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),

		Stats:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "column stats")),
		Copy:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy row")),
		Save:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		SaveAs: key.NewBinding(key.WithKeys("W"), key.WithHelp("W", "save as")),
		Export: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export")),
		Reset:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "discard edits")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Undo, k.Search, k.Query, k.PrevPage, k.NextPage, k.Save, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Top, k.Bottom, k.ScreenUp, k.ScreenDown},
		{k.PrevPage, k.NextPage, k.PageSize, k.Search, k.Query, k.ClearFilter},
		{k.Edit, k.Mark, k.InsertBelow, k.InsertAbove, k.DeleteRows, k.AddColumn, k.DeleteColumn},
		{k.Undo, k.Redo, k.Stats, k.Copy, k.Save, k.SaveAs, k.Export, k.Reset, k.Quit},
	}
}
