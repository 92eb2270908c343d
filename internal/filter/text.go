package filter

import (
	"strings"

	"pqx/internal/model"
)

// Text returns the labels of rows where any cell's rendering contains needle,
// case-insensitively. An empty needle matches everything and returns nil.
func Text(t *model.Table, needle string) []int64 {
	if needle == "" {
		return nil
	}
	needle = strings.ToLower(needle)
	out := make([]int64, 0)
	for pos, label := range t.Labels {
		for ci := range t.Columns {
			if strings.Contains(strings.ToLower(t.Columns[ci].Cells[pos].String()), needle) {
				out = append(out, label)
				break
			}
		}
	}
	return out
}
