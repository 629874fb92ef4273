package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// This file centralizes the lipgloss styles used for console reports.

// Level selects the style of a report line.
type Level int

const (
	LevelInfo Level = iota
	LevelOK
	LevelWarning
	LevelError
)

var (
	infoStyle = lipgloss.NewStyle()
	okStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")) // Green
	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Amber
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)
)

// Paint renders msg in the style of level.
func Paint(level Level, msg string) string {
	switch level {
	case LevelOK:
		return okStyle.Render(msg)
	case LevelWarning:
		return warningStyle.Render(msg)
	case LevelError:
		return errorStyle.Render(msg)
	}
	return infoStyle.Render(msg)
}

// ConfigureColor picks the color profile for reports written to w.
// Reports go to stdout; w decides whether a terminal profile is used.
func ConfigureColor(w io.Writer, enabled bool) {
	if !enabled {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())
}
