package stats

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"pqx/internal/model"
)

// Summary describes one column the way `describe()` would: count and spread for
// numeric columns, distinct values for text.
type Summary struct {
	Column string `json:"column"`
	Type   string `json:"type"`
	Rows   int    `json:"rows"`
	Count  int    `json:"count"`
	Nulls  int    `json:"nulls"`

	Numeric *Numeric `json:"numeric,omitempty"`
	Text    *Text    `json:"text,omitempty"`
}

type Numeric struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Q25  float64 `json:"q25"`
	Q50  float64 `json:"q50"`
	Q75  float64 `json:"q75"`
	Max  float64 `json:"max"`

	// Std is the sample standard deviation; nil with fewer than two values.
	Std *float64 `json:"std"`
}

type Text struct {
	Unique int    `json:"unique"`
	Top    string `json:"top"`
	Freq   int    `json:"freq"`
}

// Describe summarizes c. Numeric fields are only set when the column has at least
// one non-null value.
func Describe(c model.Column) Summary {
	s := Summary{Column: c.Name, Type: c.Type.String(), Rows: len(c.Cells)}
	switch c.Type {
	case model.DTypeInteger, model.DTypeFloat:
		vals := make([]float64, 0, len(c.Cells))
		for _, cell := range c.Cells {
			if cell.IsNull() {
				continue
			}
			if c.Type == model.DTypeInteger {
				vals = append(vals, float64(cell.Int))
			} else if !math.IsNaN(cell.Float) {
				vals = append(vals, cell.Float)
			}
		}
		s.Count = len(vals)
		if len(vals) > 0 {
			s.Numeric = numeric(vals)
		}
	default:
		freq := map[string]int{}
		var order []string
		for _, cell := range c.Cells {
			if cell.IsNull() {
				continue
			}
			s.Count++
			if freq[cell.Text] == 0 {
				order = append(order, cell.Text)
			}
			freq[cell.Text]++
		}
		if s.Count > 0 {
			txt := &Text{Unique: len(freq)}
			// First value seen wins ties.
			for _, v := range order {
				if freq[v] > txt.Freq {
					txt.Top, txt.Freq = v, freq[v]
				}
			}
			s.Text = txt
		}
	}
	s.Nulls = s.Rows - s.Count
	return s
}

func numeric(vals []float64) *Numeric {
	slices.Sort(vals)
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var std *float64
	if len(vals) > 1 {
		var ss float64
		for _, v := range vals {
			ss += (v - mean) * (v - mean)
		}
		sd := math.Sqrt(ss / float64(len(vals)-1))
		std = &sd
	}
	return &Numeric{
		Mean: mean,
		Min:  vals[0],
		Q25:  quantile(vals, 0.25),
		Q50:  quantile(vals, 0.5),
		Q75:  quantile(vals, 0.75),
		Max:  vals[len(vals)-1],
		Std:  std,
	}
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// DescribeTable summarizes every column of t in order.
func DescribeTable(t *model.Table) []Summary {
	out := make([]Summary, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = Describe(c)
	}
	return out
}

// Markdown renders summaries as one markdown table per column, ready for glamour.
func Markdown(sums []Summary) string {
	var b strings.Builder
	for i, s := range sums {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### %s\n\n", s.Column)
		b.WriteString("| stat | value |\n|---|---|\n")
		row := func(k, v string) { fmt.Fprintf(&b, "| %s | %s |\n", k, escape(v)) }
		row("type", s.Type)
		row("count", strconv.Itoa(s.Count))
		row("nulls", strconv.Itoa(s.Nulls))
		if n := s.Numeric; n != nil {
			row("mean", num(n.Mean))
			if n.Std != nil {
				row("std", num(*n.Std))
			} else {
				row("std", "NaN")
			}
			row("min", num(n.Min))
			row("25%", num(n.Q25))
			row("50%", num(n.Q50))
			row("75%", num(n.Q75))
			row("max", num(n.Max))
		}
		if tx := s.Text; tx != nil {
			row("unique", strconv.Itoa(tx.Unique))
			row("top", tx.Top)
			row("freq", strconv.Itoa(tx.Freq))
		}
	}
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
