package tui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Title   lipgloss.Style
	Status  lipgloss.Style
	Error   lipgloss.Style
	Spinner lipgloss.Style
	Muted   lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1),
		Status: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Width(60),
		Error: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Foreground(lipgloss.Color("196")).
			Padding(0, 1).
			Width(60),
		Spinner: lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}
