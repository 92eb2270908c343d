package filter

import "fmt"

// QueryError is a predicate the evaluator rejected. The view keeps its previous rows.
type QueryError struct {
	Predicate string
	Msg       string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid query %q: %s", e.Predicate, e.Msg)
}
