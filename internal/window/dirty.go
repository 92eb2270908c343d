package window

import "pqx/internal/mutate"

// DirtyTracker answers "has this page changed since it was loaded or saved".
//
// The history cursor alone is not enough: once a structural edit has happened the
// page stays dirty until the next save or load, even if it is undone.
type DirtyTracker struct {
	history *mutate.History
	manual  bool
}

func NewDirtyTracker(h *mutate.History) *DirtyTracker {
	return &DirtyTracker{history: h}
}

func (d *DirtyTracker) IsDirty() bool {
	return d.manual || !d.history.IsClean()
}

// MarkStructural sets the sticky flag.
func (d *DirtyTracker) MarkStructural() { d.manual = true }

// MarkSaved records the current history position as saved.
func (d *DirtyTracker) MarkSaved() {
	d.history.SetClean()
	d.manual = false
}

// Reset clears the sticky flag; the history is expected to have been cleared.
func (d *DirtyTracker) Reset() { d.manual = false }
