package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DType is the declared type of a column. Every cell in a column shares it.
type DType int

const (
	DTypeText DType = iota
	DTypeInteger
	DTypeFloat
)

func (d DType) String() string {
	switch d {
	case DTypeInteger:
		return "integer"
	case DTypeFloat:
		return "float"
	default:
		return "text"
	}
}

// DTypes lists the types a user can pick for a new column, in menu order.
func DTypes() []DType {
	return []DType{DTypeText, DTypeInteger, DTypeFloat}
}

// ParseDType accepts the canonical names plus the aliases people type out of habit
// (pandas/arrow spellings included).
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "str", "object", "utf8":
		return DTypeText, nil
	case "integer", "int", "int64", "int32":
		return DTypeInteger, nil
	case "float", "double", "float64", "float32", "real":
		return DTypeFloat, nil
	default:
		return DTypeText, fmt.Errorf("unknown column type: %q (want text|integer|float)", s)
	}
}

// Cell is a single nullable typed value.
type Cell struct {
	Type  DType
	Valid bool
	Int   int64
	Float float64
	Text  string
}

func NullCell(t DType) Cell { return Cell{Type: t} }
func IntCell(v int64) Cell { return Cell{Type: DTypeInteger, Valid: true, Int: v} }
func FloatCell(v float64) Cell { return Cell{Type: DTypeFloat, Valid: true, Float: v} }
func TextCell(s string) Cell { return Cell{Type: DTypeText, Valid: true, Text: s} }
func (c Cell) IsNull() bool { return !c.Valid }
// Equal compares type and value. Nulls of one type are equal, and so are NaNs.
func (c Cell) Equal(o Cell) bool {
	if c.IsNull() || o.IsNull() {
		return c.IsNull() && o.IsNull() && c.Type == o.Type
	}
	if c.Type == DTypeFloat && o.Type == DTypeFloat && math.IsNaN(c.Float) && math.IsNaN(o.Float) {
		return true
	}
	return c == o
}

func (c Cell) WithType(t DType) Cell {
	if !c.Valid {
		return NullCell(t)
	}
	return c
}

// String renders the cell for display and for substring search. Nulls render empty.
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}
	switch c.Type {
	case DTypeInteger:
		return strconv.FormatInt(c.Int, 10)
	case DTypeFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	default:
		return c.Text
	}
}

// Value returns the cell as a plain Go value (nil, int64, float64 or string).
func (c Cell) Value() any {
	if !c.Valid {
		return nil
	}
	switch c.Type {
	case DTypeInteger:
		return c.Int
	case DTypeFloat:
		return c.Float
	default:
		return c.Text
	}
}

// Coerce converts user input into a cell of the given type.
//
// Empty input is a null for numeric columns; text columns keep the empty string.
func Coerce(t DType, raw string) (Cell, error) {
	switch t {
	case DTypeInteger:
		s := strings.TrimSpace(raw)
		if s == "" {
			return NullCell(t), nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			return Cell{}, &EditValueError{Type: t, Input: raw, Err: err}
		}
		if err != nil {
			// "3.0" is a fine integer; "3.5" is not. float64(MaxInt64) rounds up
			// to 2^63, so the upper bound is exclusive.
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) || f >= 0x1p63 || f < -0x1p63 {
				return Cell{}, &EditValueError{Type: t, Input: raw, Err: err}
			}
			v = int64(f)
		}
		return IntCell(v), nil
	case DTypeFloat:
		s := strings.TrimSpace(raw)
		if s == "" {
			return NullCell(t), nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Cell{}, &EditValueError{Type: t, Input: raw, Err: err}
		}
		return FloatCell(v), nil
	default:
		return TextCell(raw), nil
	}
}

// FromValue maps a decoded value onto a column type. Used by stores when reading.
func FromValue(t DType, v any) (Cell, error) {
	if v == nil {
		return NullCell(t), nil
	}
	switch t {
	case DTypeInteger:
		switch x := v.(type) {
		case int64:
			return IntCell(x), nil
		case int32:
			return IntCell(int64(x)), nil
		case int:
			return IntCell(int64(x)), nil
		}
	case DTypeFloat:
		switch x := v.(type) {
		case float64:
			return FloatCell(x), nil
		case float32:
			return FloatCell(float64(x)), nil
		case int64:
			return FloatCell(float64(x)), nil
		}
	default:
		switch x := v.(type) {
		case string:
			return TextCell(x), nil
		case []byte:
			return TextCell(string(x)), nil
		}
	}
	return Cell{}, fmt.Errorf("cannot use %T as %s", v, t)
}

// ColumnMeta is what the UI shows in a column header tooltip.
type ColumnMeta struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}
