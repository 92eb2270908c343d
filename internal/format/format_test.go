package format

import (
	"bytes"
	"encoding/json"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"pqx/internal/model"

	"github.com/xuri/excelize/v2"
)

func sample() *model.Table {
	return model.MustTable(
		model.Column{Name: "id", Type: model.DTypeInteger, Cells: []model.Cell{model.IntCell(9007199254740993), model.IntCell(2)}},
		model.Column{Name: "score", Type: model.DTypeFloat, Cells: []model.Cell{model.FloatCell(1.5), model.FloatCell(math.NaN())}},
		model.Column{Name: "note", Type: model.DTypeText, Cells: []model.Cell{model.TextCell("a,b"), model.NullCell(model.DTypeText)}},
	)
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	if err := Write(&bytes.Buffer{}, map[string]any{}, "yaml", false); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWriteEDN(t *testing.T) {
	t.Parallel()

	v := map[string]any{
		"rows":      []any{int64(9007199254740993), 1.5, nil, true},
		"name":      "x",
		"home city": "Oslo",
	}
	var buf bytes.Buffer
	if err := WriteEDN(&buf, v, false); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	want := `{"home city" "Oslo" :name "x" :rows [9007199254740993 1.5 nil true]}` + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("expected %q; got %q", want, got)
	}

	buf.Reset()
	if err := WriteEDN(&buf, map[string]any{"a": []any{}, "b": []any{1}}, true); err != nil {
		t.Fatalf("WriteEDN(pretty): %v", err)
	}
	want = "{\n  :a []\n  :b [\n    1\n  ]\n}\n"
	if got := buf.String(); got != want {
		t.Fatalf("expected %q; got %q", want, got)
	}
}

func TestWriteTable_CSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteTable(&buf, sample(), "csv"); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	want := "id,score,note\n9007199254740993,1.5,\"a,b\"\n2,NaN,\n"
	if got := buf.String(); got != want {
		t.Fatalf("expected %q; got %q", want, got)
	}
}

func TestWriteTable_JSONRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteTable(&buf, sample(), "json"); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	var recs []map[string]any
	if err := dec.Decode(&recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records; got %d", len(recs))
	}
	if got := recs[0]["id"].(json.Number).String(); got != "9007199254740993" {
		t.Fatalf("expected exact int64; got %s", got)
	}
	if recs[1]["score"] != nil || recs[1]["note"] != nil {
		t.Fatalf("expected nulls; got %v", recs[1])
	}
}

func TestWriteTable_Markdown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteTable(&buf, sample(), "md"); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 || lines[1] != "|--:|--:|---|" {
		t.Fatalf("unexpected markdown:\n%s", buf.String())
	}
}

func TestExportFile_XLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := ExportFile(path, sample()); err != nil {
		t.Fatalf("ExportFile: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(xlsxSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 || rows[0][2] != "note" || rows[1][2] != "a,b" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{"a.CSV": "csv", "b.markdown": "md", "c.xls": "xlsx", "d.json": "json"}
	for p, want := range cases {
		got, err := FormatFromPath(p)
		if err != nil || got != want {
			t.Fatalf("FormatFromPath(%q) = %q, %v; want %q", p, got, err, want)
		}
	}
	if _, err := FormatFromPath("x.parquet"); err == nil {
		t.Fatalf("expected error for parquet")
	}
}
