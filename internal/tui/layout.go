package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// fitWidth pads or cuts s (ANSI-aware) to exactly width columns, marking a cut with "…".
func fitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	// Bound the width computation on huge cells.
	if len(s) > 8192 {
		s = xansi.Truncate(s, width+1, "")
	}
	w := xansi.StringWidth(s)
	if w > width {
		if width == 1 {
			return xansi.Truncate(s, 1, "")
		}
		s = xansi.Truncate(s, width, "…")
		w = xansi.StringWidth(s)
	}
	if w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

// normalizePane forces s to be exactly width columns wide and height lines tall.
func normalizePane(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i := range lines {
		lines[i] = fitWidth(lines[i], width)
	}
	return strings.Join(lines, "\n")
}
