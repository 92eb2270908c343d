package mutate

import (
	log "github.com/sirupsen/logrus"
)

// History is a linear undo/redo stack bound to one Target.
//
// cursor counts the commands currently applied; commands past the cursor form the
// redo tail until the next Push discards them.
type History struct {
	target    Target
	cmds      []Command
	cursor    int
	clean     int
	observers []func(Command, Change)
}

func NewHistory(t Target) *History {
	return &History{target: t}
}

// Reset rebinds the history to t, clears it and marks it clean.
func (h *History) Reset(t Target) {
	h.target = t
	h.Clear()
}

func (h *History) Target() Target { return h.target }

// Observe registers fn to run after every apply, undo and redo.
func (h *History) Observe(fn func(Command, Change)) {
	h.observers = append(h.observers, fn)
}

func (h *History) notify(cmd Command, ch Change) {
	for _, fn := range h.observers {
		fn(cmd, ch)
	}
}

// Push applies cmd for the first time and records it. A failing apply leaves
// both the table and the stack as they were.
func (h *History) Push(cmd Command) error {
	ch, err := apply(cmd, h.target)
	if err != nil {
		return err
	}
	if h.clean > h.cursor {
		// The saved state lived in the tail we are about to drop.
		h.clean = -1
	}
	clear(h.cmds[h.cursor:])
	h.cmds = append(h.cmds[:h.cursor], cmd)
	h.cursor++
	log.WithFields(log.Fields{"cmd": cmd.Text(), "cursor": h.cursor}).Debug("history push")
	h.notify(cmd, ch)
	return nil
}

// Undo reverts the most recently applied command. It is a no-op at the bottom.
func (h *History) Undo() error {
	if h.cursor == 0 {
		return nil
	}
	cmd := h.cmds[h.cursor-1]
	ch, err := revert(cmd, h.target)
	if err != nil {
		return err
	}
	h.cursor--
	log.WithFields(log.Fields{"cmd": cmd.Text(), "cursor": h.cursor}).Debug("history undo")
	h.notify(cmd, ch)
	return nil
}

// Redo re-applies the next command in the tail. It is a no-op at the top.
func (h *History) Redo() error {
	if h.cursor == len(h.cmds) {
		return nil
	}
	cmd := h.cmds[h.cursor]
	ch, err := apply(cmd, h.target)
	if err != nil {
		return err
	}
	h.cursor++
	log.WithFields(log.Fields{"cmd": cmd.Text(), "cursor": h.cursor}).Debug("history redo")
	h.notify(cmd, ch)
	return nil
}

func (h *History) IsClean() bool { return h.cursor == h.clean }

// SetClean records the current cursor as the saved state.
func (h *History) SetClean() { h.clean = h.cursor }

// Clear drops every command and marks the empty stack clean.
func (h *History) Clear() {
	h.cmds = nil
	h.cursor = 0
	h.clean = 0
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.cmds) }
func (h *History) Len() int { return len(h.cmds) }
func (h *History) Cursor() int { return h.cursor }

// UndoText labels the command Undo would revert, or "".
func (h *History) UndoText() string {
	if !h.CanUndo() {
		return ""
	}
	return h.cmds[h.cursor-1].Text()
}

func (h *History) RedoText() string {
	if !h.CanRedo() {
		return ""
	}
	return h.cmds[h.cursor].Text()
}
