package ui

import "github.com/charmbracelet/lipgloss"

// Styles holds the viewer's lipgloss styles.
type Styles struct {
	Title     lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Help      lipgloss.Style
}

// DefaultStyles returns the viewer style set.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		Tab: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color("240")).
			Foreground(lipgloss.Color("245")),
		ActiveTab: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color("205")).
			Foreground(lipgloss.Color("205")).
			Bold(true),
		Help: lipgloss.NewStyle().Faint(true).Padding(0, 1),
	}
}
