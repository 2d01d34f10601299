package tui

import "github.com/charmbracelet/lipgloss"

const (
	primaryColor = "39"
	userColor    = "212"
	dimColor     = "244"
	errorColor   = "203"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(primaryColor))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(primaryColor)).
			Padding(1, 2).
			Width(56)

	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(dimColor))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(errorColor))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	userAvatarStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color(userColor)).
			Padding(0, 1)

	assistantAvatarStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color(primaryColor)).
				Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("150"))
)

func fieldLabel(label string, focused bool) string {
	style := lipgloss.NewStyle().Width(10)
	if focused {
		style = style.Bold(true).Foreground(lipgloss.Color(primaryColor))
	} else {
		style = style.Foreground(lipgloss.Color("252"))
	}
	return style.Render(label)
}
