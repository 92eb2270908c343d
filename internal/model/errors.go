package model

import "fmt"

// EditValueError reports input that cannot be coerced to a column's type.
type EditValueError struct {
	Column string
	Type   DType
	Input  string
	Err    error
}

func (e *EditValueError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("invalid value %q for %s column %q", e.Input, e.Type, e.Column)
	}
	return fmt.Sprintf("invalid value %q for %s column", e.Input, e.Type)
}

func (e *EditValueError) Unwrap() error { return e.Err }
