package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// renderInputLine renders a prompt plus a text input as exactly one line of width w.
func renderInputLine(w int, prompt, inputView string) string {
	if w < 10 {
		w = 10
	}

	// A newline in the view would wrap the footer and push the grid up.
	inputView = strings.ReplaceAll(inputView, "\n", " ")
	inputView = strings.ReplaceAll(inputView, "\r", " ")

	label := lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render(prompt)
	line := lipgloss.PlaceHorizontal(
		w,
		lipgloss.Left,
		label+" "+inputView,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(colorInputBg),
	)
	if xansi.StringWidth(line) > w {
		// Terminate styling so the cut does not bleed into the next line.
		line = xansi.Truncate(line, w, "") + "\x1b[0m"
	}
	return line
}
