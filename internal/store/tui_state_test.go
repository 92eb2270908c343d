package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestViewState_RoundTripPerFile(t *testing.T) {
	t.Setenv("PQX_CONFIG_DIR", t.TempDir())

	st, err := LoadViewState()
	if err != nil {
		t.Fatalf("LoadViewState: %v", err)
	}
	st.SetFile("/data/a.parquet", FileViewState{Page: 3, PageSize: 100, CursorRow: 7})
	if err := SaveViewState(st); err != nil {
		t.Fatalf("SaveViewState: %v", err)
	}

	got, err := LoadViewState()
	if err != nil {
		t.Fatalf("LoadViewState: %v", err)
	}
	fs := got.ForFile("/data/a.parquet")
	if fs.Page != 3 || fs.PageSize != 100 || fs.CursorRow != 7 {
		t.Fatalf("unexpected state: %+v", fs)
	}
	if other := got.ForFile("/data/b.parquet"); other != (FileViewState{}) {
		t.Fatalf("expected zero state for unknown file; got %+v", other)
	}
}

func TestLoadViewState_CorruptFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PQX_CONFIG_DIR", dir)

	if err := os.WriteFile(filepath.Join(dir, viewStateFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	st, err := LoadViewState()
	if err != nil {
		t.Fatalf("LoadViewState: %v", err)
	}
	if st.Version != 1 || len(st.Files) != 0 {
		t.Fatalf("expected empty state; got %+v", st)
	}
}
