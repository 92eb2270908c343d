package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const modalMaxWidth = 64

func modalBodyWidth(width int) int {
	w := min(width-8, modalMaxWidth)
	return max(w, 20)
}

func renderModalBox(width int, title, content string) string {
	bodyW := modalBodyWidth(width)
	head := lipgloss.NewStyle().
		Bold(true).
		Width(bodyW).
		Foreground(colorSurfaceFg).
		Background(colorControlBg).
		Render(" " + title)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorMuted).
		Padding(0, 1).
		Render(head + "\n\n" + lipgloss.NewStyle().Width(bodyW).Render(content))
}

// renderChoiceModal draws a modal with one button per label; focus indexes labels.
func renderChoiceModal(width int, title, body string, labels []string, focus int) string {
	// No borders on the buttons: nested borders on a colored background leave
	// artifacts in some terminals.
	btnBase := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	btnActive := btnBase.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true)

	buttons := make([]string, 0, len(labels)*2)
	for i, l := range labels {
		if i > 0 {
			buttons = append(buttons, " ")
		}
		if i == focus {
			buttons = append(buttons, btnActive.Render(l))
			continue
		}
		buttons = append(buttons, btnBase.Render(l))
	}
	controls := lipgloss.JoinHorizontal(lipgloss.Top, buttons...)

	help := styleMuted().Width(modalBodyWidth(width)).Render("tab/←→: focus   enter: select   esc: cancel")

	content := strings.Join([]string{
		body,
		"",
		controls,
		"",
		help,
	}, "\n")
	return renderModalBox(width, title, content)
}
