package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"pqx/internal/model"
	"pqx/internal/store"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// writeFixture writes a parquet file with ids 0..rows-1 and returns its path.
func writeFixture(t *testing.T, rows int) string {
	t.Helper()
	t.Setenv("PQX_CONFIG_DIR", t.TempDir())

	ids := make([]model.Cell, rows)
	cities := make([]model.Cell, rows)
	scores := make([]model.Cell, rows)
	for i := range rows {
		ids[i] = model.IntCell(int64(i))
		cities[i] = model.TextCell([]string{"Oslo", "Bergen", "Tromsø"}[i%3])
		scores[i] = model.FloatCell(float64(i) / 2)
	}
	tbl := model.MustTable(
		model.Column{Name: "id", Type: model.DTypeInteger, Cells: ids},
		model.Column{Name: "city", Type: model.DTypeText, Cells: cities},
		model.Column{Name: "score", Type: model.DTypeFloat, Cells: scores},
	)
	path := filepath.Join(t.TempDir(), "people.parquet")
	if err := (store.Parquet{}).WriteAll(context.Background(), path, tbl); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	return path
}

func readBack(t *testing.T, path string) *model.Table {
	t.Helper()
	tbl, err := (store.Parquet{}).ReadAll(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return tbl
}

func intsOf(t *testing.T, tbl *model.Table, name string) []int64 {
	t.Helper()
	ci := tbl.ColumnIndex(name)
	if ci < 0 {
		t.Fatalf("missing column %q in %v", name, tbl.ColumnNames())
	}
	out := make([]int64, 0, tbl.NumRows())
	for _, c := range tbl.Columns[ci].Cells {
		out = append(out, c.Int)
	}
	return out
}

func decodeData(t *testing.T, out []byte) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return env.Data
}

func TestInfo(t *testing.T) {
	path := writeFixture(t, 25)

	out, _, err := runCLI(t, []string{"info", path, "--page-size", "10"})
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	data := decodeData(t, out)
	if data["rows"] != float64(25) || data["pages"] != float64(3) {
		t.Fatalf("unexpected info: %v", data)
	}
	cols := data["columns"].([]any)
	if len(cols) != 3 {
		t.Fatalf("expected 3 columns; got %v", cols)
	}
}

func TestShow_CSVPage(t *testing.T) {
	path := writeFixture(t, 25)

	out, _, err := runCLI(t, []string{"show", path, "--page-size", "10", "--page", "3", "--as", "csv"})
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 6 || lines[0] != "id,city,score" || !strings.HasPrefix(lines[1], "20,") {
		t.Fatalf("unexpected csv:\n%s", out)
	}
}

func TestShow_JSONWithQuery(t *testing.T) {
	path := writeFixture(t, 25)

	out, _, err := runCLI(t, []string{"show", path, "--page-size", "100", "--as", "json", "--query", "id >= 20 and city = 'Oslo'"})
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var env struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 21 and 24 are the only ids >= 20 divisible by 3.
	if len(env.Data) != 2 || env.Data[0]["id"] != float64(21) || env.Data[1]["id"] != float64(24) {
		t.Fatalf("unexpected rows: %v", env.Data)
	}
}

func TestShow_BadQuery(t *testing.T) {
	path := writeFixture(t, 5)

	_, stderr, err := runCLI(t, []string{"show", path, "--query", "nosuch > 1"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(stderr) == 0 {
		t.Fatalf("expected error on stderr")
	}
}

func TestEditSet_WritesCellOnLaterPage(t *testing.T) {
	path := writeFixture(t, 25)

	out, _, err := runCLI(t, []string{"edit", "set", path, "--page-size", "10", "--row", "12", "--column", "city", "--value", "Stavanger"})
	if err != nil {
		t.Fatalf("edit set: %v", err)
	}
	if data := decodeData(t, out); data["rows"] != float64(25) {
		t.Fatalf("unexpected result: %v", data)
	}

	tbl := readBack(t, path)
	if tbl.NumRows() != 25 {
		t.Fatalf("expected 25 rows; got %d", tbl.NumRows())
	}
	ci := tbl.ColumnIndex("city")
	if got := tbl.Columns[ci].Cells[12].String(); got != "Stavanger" {
		t.Fatalf("expected Stavanger; got %q", got)
	}
	if got := tbl.Columns[ci].Cells[11].String(); got != "Tromsø" {
		t.Fatalf("neighbour changed: %q", got)
	}
}

func TestEditSet_BackupKeepsOriginal(t *testing.T) {
	path := writeFixture(t, 5)

	if _, _, err := runCLI(t, []string{"edit", "set", path, "--backup", "--row", "0", "--column", "city", "--value", "Bodø"}); err != nil {
		t.Fatalf("edit set: %v", err)
	}
	orig := readBack(t, path+store.BackupSuffix)
	if got := orig.Columns[1].Cells[0].String(); got != "Oslo" {
		t.Fatalf("expected backup to hold Oslo; got %q", got)
	}
	if got := readBack(t, path).Columns[1].Cells[0].String(); got != "Bodø" {
		t.Fatalf("expected Bodø; got %q", got)
	}
}

func TestEditSet_InvalidValueLeavesFile(t *testing.T) {
	path := writeFixture(t, 5)
	before := readBack(t, path)

	_, _, err := runCLI(t, []string{"edit", "set", path, "--row", "1", "--column", "id", "--value", "abc"})
	var ve *model.EditValueError
	if !errors.As(err, &ve) {
		t.Fatalf("expected EditValueError; got %v", err)
	}
	if after := readBack(t, path); !after.Equal(before) {
		t.Fatalf("file changed after a rejected edit")
	}
}

func TestEditSet_NullClearsAnyColumn(t *testing.T) {
	path := writeFixture(t, 5)

	for _, col := range []string{"id", "city", "score"} {
		if _, _, err := runCLI(t, []string{"edit", "set", path, "--row", "2", "--column", col, "--null"}); err != nil {
			t.Fatalf("edit set %s --null: %v", col, err)
		}
	}
	tbl := readBack(t, path)
	for ci, c := range tbl.Columns {
		if !c.Cells[2].IsNull() {
			t.Fatalf("expected null in %s; got %v", c.Name, c.Cells[2])
		}
		if c.Cells[1].IsNull() {
			t.Fatalf("neighbour in column %d cleared", ci)
		}
	}

	// A literal "null" is text, not a null.
	if _, _, err := runCLI(t, []string{"edit", "set", path, "--row", "0", "--column", "city", "--value", "null"}); err != nil {
		t.Fatalf("edit set: %v", err)
	}
	if c := readBack(t, path).Columns[1].Cells[0]; c.IsNull() || c.String() != "null" {
		t.Fatalf("expected the text null; got %+v", c)
	}

	if _, _, err := runCLI(t, []string{"edit", "set", path, "--row", "0", "--column", "city", "--value", "x", "--null"}); err == nil {
		t.Fatalf("expected --value and --null to conflict")
	}
}

func TestEditDeleteRows_AcrossPages(t *testing.T) {
	path := writeFixture(t, 25)

	if _, _, err := runCLI(t, []string{"edit", "delete-rows", path, "--page-size", "10", "24", "0", "11", "11"}); err != nil {
		t.Fatalf("delete-rows: %v", err)
	}
	ids := intsOf(t, readBack(t, path), "id")
	if len(ids) != 22 {
		t.Fatalf("expected 22 rows; got %d", len(ids))
	}
	for _, id := range ids {
		if id == 0 || id == 11 || id == 24 {
			t.Fatalf("row %d survived: %v", id, ids)
		}
	}
	if ids[0] != 1 || ids[len(ids)-1] != 23 {
		t.Fatalf("unexpected order: %v", ids)
	}
}

func TestEditInsertRow_Append(t *testing.T) {
	path := writeFixture(t, 20)

	if _, _, err := runCLI(t, []string{"edit", "insert-row", path, "--page-size", "10"}); err != nil {
		t.Fatalf("insert-row: %v", err)
	}
	tbl := readBack(t, path)
	if tbl.NumRows() != 21 {
		t.Fatalf("expected 21 rows; got %d", tbl.NumRows())
	}
	if last := tbl.Columns[0].Cells[20]; !last.IsNull() {
		t.Fatalf("expected a null row at the end; got %v", last)
	}
}

func TestEditColumns(t *testing.T) {
	path := writeFixture(t, 15)

	if _, _, err := runCLI(t, []string{"edit", "add-column", path, "--page-size", "10", "--name", "rank", "--type", "int"}); err != nil {
		t.Fatalf("add-column: %v", err)
	}
	tbl := readBack(t, path)
	ci := tbl.ColumnIndex("rank")
	if ci < 0 || tbl.NumRows() != 15 {
		t.Fatalf("unexpected table: %v rows=%d", tbl.ColumnNames(), tbl.NumRows())
	}
	for _, c := range tbl.Columns[ci].Cells {
		if !c.IsNull() {
			t.Fatalf("expected nulls in new column")
		}
	}

	_, _, err := runCLI(t, []string{"edit", "add-column", path, "--name", "rank"})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected duplicate error; got %v", err)
	}

	if _, _, err := runCLI(t, []string{"edit", "drop-columns", path, "score", "rank"}); err != nil {
		t.Fatalf("drop-columns: %v", err)
	}
	got := readBack(t, path).ColumnNames()
	if strings.Join(got, ",") != "id,city" {
		t.Fatalf("unexpected columns: %v", got)
	}
}

func TestExport_WholeFileWithSearch(t *testing.T) {
	path := writeFixture(t, 25)
	out := filepath.Join(t.TempDir(), "bergen.csv")

	stdout, _, err := runCLI(t, []string{"export", path, out, "--page-size", "10", "--search", "bergen"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	// ids 1, 4, ..., 22
	if data := decodeData(t, stdout); data["rows"] != float64(8) {
		t.Fatalf("unexpected result: %v", data)
	}
}

func TestExport_UnknownExtension(t *testing.T) {
	path := writeFixture(t, 3)

	if _, _, err := runCLI(t, []string{"export", path, filepath.Join(t.TempDir(), "out.parquet")}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStats_Column(t *testing.T) {
	path := writeFixture(t, 4)

	out, _, err := runCLI(t, []string{"stats", path, "--column", "score"})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var env struct {
		Data []struct {
			Column  string         `json:"column"`
			Numeric map[string]any `json:"numeric"`
		} `json:"data"`
	}
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 1 || env.Data[0].Column != "score" || env.Data[0].Numeric["max"] != 1.5 {
		t.Fatalf("unexpected stats: %s", out)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	t.Setenv("PQX_CONFIG_DIR", t.TempDir())

	if _, _, err := runCLI(t, []string{"config", "set", "page-size", "50"}); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "set", "theme", "purple"}); err == nil {
		t.Fatalf("expected theme error")
	}
	out, _, err := runCLI(t, []string{"config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if data := decodeData(t, out); data["pageSize"] != float64(50) || data["theme"] != "auto" {
		t.Fatalf("unexpected config: %v", data)
	}
}

func TestRoot_RejectsNonPositivePageSize(t *testing.T) {
	path := writeFixture(t, 3)

	if _, _, err := runCLI(t, []string{"info", path, "--page-size", "0"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestVersion_EDN(t *testing.T) {
	t.Setenv("PQX_CONFIG_DIR", t.TempDir())

	out, _, err := runCLI(t, []string{"version", "--format", "edn"})
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if got := strings.TrimSpace(string(out)); got != `{:data {:version "dev"}}` {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestDocs(t *testing.T) {
	t.Setenv("PQX_CONFIG_DIR", t.TempDir())

	out, _, err := runCLI(t, []string{"docs", "query", "--raw"})
	if err != nil {
		t.Fatalf("docs: %v", err)
	}
	if !strings.HasPrefix(string(out), "# Query") {
		t.Fatalf("unexpected docs output: %q", out)
	}
	if _, _, err := runCLI(t, []string{"docs", "nope"}); err == nil {
		t.Fatalf("expected unknown topic error")
	}
}
