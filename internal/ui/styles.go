package ui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
	JobName  lipgloss.Style
	JobInfo  lipgloss.Style
	Warning  lipgloss.Style
	Faint    lipgloss.Style
	Help     lipgloss.Style
}

func defaultStyles() Styles {
	base := lipgloss.NewStyle()
	return Styles{
		Title:    base.Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		Subtitle: base.Faint(true),
		Cursor:   base.Foreground(lipgloss.Color("#22D3EE")),
		Selected: base.Foreground(lipgloss.Color("#22C55E")),
		JobName:  base.Foreground(lipgloss.Color("#D1D5DB")),
		JobInfo:  base.Foreground(lipgloss.Color("#A3A3A3")),
		Warning:  base.Foreground(lipgloss.Color("#F59E0B")),
		Faint:    base.Faint(true),
		Help:     base.Faint(true),
	}
}
