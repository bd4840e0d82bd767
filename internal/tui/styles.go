package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette shared by reports, prompts and the scan spinner. The
// OK, Warning and Error roles color rows of the matching severity.
type Theme struct {
	Accent     lipgloss.AdaptiveColor
	OK         lipgloss.AdaptiveColor
	Warning    lipgloss.AdaptiveColor
	Error      lipgloss.AdaptiveColor
	Muted      lipgloss.AdaptiveColor
	Foreground lipgloss.AdaptiveColor
}

// DefaultTheme returns the built-in palette.
func DefaultTheme() Theme {
	return Theme{
		Accent:     lipgloss.AdaptiveColor{Light: "#0078d4", Dark: "#50a0f0"},
		OK:         lipgloss.AdaptiveColor{Light: "#1e8e3e", Dark: "#81c995"},
		Warning:    lipgloss.AdaptiveColor{Light: "#b06000", Dark: "#fdd663"},
		Error:      lipgloss.AdaptiveColor{Light: "#d93025", Dark: "#f28b82"},
		Muted:      lipgloss.AdaptiveColor{Light: "#80868b", Dark: "#6e7681"},
		Foreground: lipgloss.AdaptiveColor{Light: "#202124", Dark: "#e8eaed"},
	}
}

// Styles are the terminal styles derived from a Theme.
type Styles struct {
	theme Theme

	Body    lipgloss.Style
	Muted   lipgloss.Style
	OK      lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles builds Styles from the resolved theme.
func NewStyles() *Styles {
	return NewStylesWithTheme(ResolveTheme())
}

// NewStylesWithTheme builds Styles from theme.
func NewStylesWithTheme(theme Theme) *Styles {
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}
	return &Styles{
		theme:   theme,
		Body:    fg(theme.Foreground),
		Muted:   fg(theme.Muted),
		OK:      fg(theme.OK),
		Warning: fg(theme.Warning),
		Error:   fg(theme.Error).Bold(true),
	}
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() Theme {
	return s.theme
}

// SeverityStyle maps a severity name (OK, WARNING, ERROR) to its style.
// Unknown names get the body style.
func (s *Styles) SeverityStyle(severity string) lipgloss.Style {
	switch severity {
	case "OK":
		return s.OK
	case "WARNING":
		return s.Warning
	case "ERROR":
		return s.Error
	}
	return s.Body
}

// SeverityIcon is the marker printed before a report row.
func SeverityIcon(severity string) string {
	switch severity {
	case "OK":
		return "✓"
	case "WARNING":
		return "!"
	case "ERROR":
		return "✗"
	}
	return "·"
}

// RenderKeyValue renders "key: value" with a muted key.
func (s *Styles) RenderKeyValue(key, value string) string {
	return s.Muted.Render(key+": ") + s.Body.Render(value)
}
