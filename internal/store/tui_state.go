package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const viewStateFileName = "state.json"

// FileViewState is where the user left a file: page, page size and cursor.
type FileViewState struct {
	Page      int `json:"page,omitempty"`
	PageSize  int `json:"pageSize,omitempty"`
	CursorRow int `json:"cursorRow,omitempty"`
	CursorCol int `json:"cursorCol,omitempty"`
}

// ViewState stores small, user-facing UI state for restoring the last position on relaunch.
//
// It is "best effort": callers should tolerate missing/invalid data.
type ViewState struct {
	Version int `json:"version"`

	// Files is keyed by absolute file path.
	Files map[string]FileViewState `json:"files,omitempty"`
}

func viewStatePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, viewStateFileName), nil
}

func LoadViewState() (*ViewState, error) {
	path, err := viewStatePath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ViewState{Version: 1}, nil
		}
		return nil, err
	}
	var st ViewState
	if err := json.Unmarshal(b, &st); err != nil {
		// Best-effort; if corrupted, treat as missing.
		return &ViewState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func SaveViewState(st *ViewState) error {
	if st == nil {
		return nil
	}
	path, err := viewStatePath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "state.json.*.tmp", path, b, 0o644)
}

// ForFile returns the saved state for path (zero value when unknown).
func (st *ViewState) ForFile(path string) FileViewState {
	if st == nil || st.Files == nil {
		return FileViewState{}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return st.Files[path]
}

func (st *ViewState) SetFile(path string, fs FileViewState) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if st.Files == nil {
		st.Files = map[string]FileViewState{}
	}
	st.Files[path] = fs
}
