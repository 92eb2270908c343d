package filter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pqx/internal/model"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const labelColumn = "__pqx_label"

// Expression returns the labels of rows matching predicate, a SQL boolean
// expression over the column names (e.g. `age > 30 and city == 'Oslo'`).
//
// The page is loaded into a private in-memory SQLite database for the duration of
// the call. Any evaluation failure is a *QueryError.
func Expression(ctx context.Context, t *model.Table, predicate string) ([]int64, error) {
	predicate = strings.TrimSpace(predicate)
	if predicate == "" {
		return nil, nil
	}
	if hasStatementBreak(predicate) {
		return nil, &QueryError{Predicate: predicate, Msg: "only a single expression is allowed"}
	}
	labels, err := evaluate(ctx, t, predicate)
	if err != nil {
		log.WithError(err).WithField("predicate", predicate).Debug("query rejected")
		return nil, &QueryError{Predicate: predicate, Msg: err.Error()}
	}
	return labels, nil
}

func evaluate(ctx context.Context, t *model.Table, predicate string) ([]int64, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	defer db.Close()
	// Every connection to :memory: is its own database.
	db.SetMaxOpenConns(1)

	cols := make([]string, 0, len(t.Columns)+1)
	holes := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, quoteIdent(labelColumn)+" INTEGER NOT NULL")
	holes = append(holes, "?")
	for i, name := range sqlNames(t) {
		cols = append(cols, quoteIdent(name)+" "+sqliteType(t.Columns[i].Type))
		holes = append(holes, "?")
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE t ("+strings.Join(cols, ", ")+")"); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO t VALUES ("+strings.Join(holes, ", ")+")")
	if err != nil {
		return nil, err
	}
	args := make([]any, len(t.Columns)+1)
	for pos, label := range t.Labels {
		args[0] = label
		for ci := range t.Columns {
			args[ci+1] = t.Columns[ci].Cells[pos].Value()
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = stmt.Close()
			return nil, err
		}
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	q := fmt.Sprintf("SELECT %s FROM t WHERE (%s) ORDER BY rowid", quoteIdent(labelColumn), predicate)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]int64, 0)
	for rows.Next() {
		var l int64
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// hasStatementBreak reports whether predicate contains a ';' outside string
// literals and quoted identifiers.
func hasStatementBreak(predicate string) bool {
	var closing rune
	for _, r := range predicate {
		switch {
		case closing != 0:
			// A doubled quote closes and reopens, which leaves it quoted.
			if r == closing {
				closing = 0
			}
		case r == '\'', r == '"', r == '`':
			closing = r
		case r == '[':
			closing = ']'
		case r == ';':
			return true
		}
	}
	return false
}

// sqlNames returns the SQLite column name of every column of t. SQLite compares
// identifiers case-insensitively, so a column whose name only differs in case
// from an earlier one is renamed name_2, name_3 and so on.
func sqlNames(t *model.Table) []string {
	taken := make(map[string]bool, len(t.Columns)+1)
	taken[strings.ToLower(labelColumn)] = true
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		name := c.Name
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d", c.Name, n)
		}
		taken[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func sqliteType(t model.DType) string {
	switch t {
	case model.DTypeInteger:
		return "INTEGER"
	case model.DTypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}
