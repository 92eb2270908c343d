package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// WriteEDN writes v as EDN.
//
// Values go through JSON first so struct tags decide field names. Numbers are
// kept as json.Number so int64 cell values print exactly.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}

	var buf bytes.Buffer
	e := ednWriter{buf: &buf, pretty: pretty}
	e.value(x, 0)
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

type ednWriter struct {
	buf    *bytes.Buffer
	pretty bool
}

func (e ednWriter) value(v any, level int) {
	switch t := v.(type) {
	case nil:
		e.buf.WriteString("nil")
	case bool:
		e.buf.WriteString(strconv.FormatBool(t))
	case string:
		e.buf.WriteString(strconv.Quote(t))
	case json.Number:
		e.buf.WriteString(t.String())
	case []any:
		e.open('[')
		for i, it := range t {
			e.sep(i, level+1)
			e.value(it, level+1)
		}
		e.close(']', len(t), level)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		e.open('{')
		for i, k := range keys {
			e.sep(i, level+1)
			e.key(k)
			e.buf.WriteByte(' ')
			e.value(t[k], level+1)
		}
		e.close('}', len(keys), level)
	default:
		e.buf.WriteString(strconv.Quote(fmt.Sprint(v)))
	}
}

func (e ednWriter) open(c byte) { e.buf.WriteByte(c) }

func (e ednWriter) sep(i, level int) {
	switch {
	case e.pretty:
		e.buf.WriteByte('\n')
		e.buf.WriteString(strings.Repeat("  ", level))
	case i > 0:
		e.buf.WriteByte(' ')
	}
}

func (e ednWriter) close(c byte, n, level int) {
	if e.pretty && n > 0 {
		e.buf.WriteByte('\n')
		e.buf.WriteString(strings.Repeat("  ", level))
	}
	e.buf.WriteByte(c)
}

// key writes k as a keyword when it is one, otherwise as a string. Column names
// can contain anything.
func (e ednWriter) key(k string) {
	if isKeyword(k) {
		e.buf.WriteByte(':')
		e.buf.WriteString(k)
		return
	}
	e.buf.WriteString(strconv.Quote(k))
}

func isKeyword(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '*', r == '?', r == '!':
		case i > 0 && (r >= '0' && r <= '9' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
