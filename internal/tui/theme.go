// Package tui provides terminal user interface components.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// ThemeEnv names a theme file that overrides the user theme.
const ThemeEnv = "ARCCHECK_THEME"

// ResolveTheme loads a theme with the following precedence:
//  1. NO_COLOR set → NoColorTheme
//  2. ARCCHECK_THEME → that theme file
//  3. <user config dir>/arccheck/theme.yaml
//  4. DefaultTheme
//
// Unreadable theme files fall through to the next source.
func ResolveTheme() Theme {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return NoColorTheme()
	}

	if path := os.Getenv(ThemeEnv); path != "" {
		if theme, err := LoadThemeFromFile(path); err == nil {
			return theme
		}
	}

	if theme, err := LoadUserTheme(); err == nil {
		return theme
	}

	return DefaultTheme()
}

// NoColorTheme returns a theme with empty colors. Lipgloss renders empty
// colors as plain text.
func NoColorTheme() Theme {
	empty := lipgloss.AdaptiveColor{Light: "", Dark: ""}
	return Theme{
		Accent:     empty,
		OK:         empty,
		Warning:    empty,
		Error:      empty,
		Muted:      empty,
		Foreground: empty,
	}
}

// UserThemePath returns the per-user theme file location.
func UserThemePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "arccheck", "theme.yaml"), nil
}

// LoadUserTheme loads the per-user theme file.
func LoadUserTheme() (Theme, error) {
	path, err := UserThemePath()
	if err != nil {
		return Theme{}, err
	}
	return LoadThemeFromFile(path)
}

// LoadThemeFromFile parses a YAML theme file of color names to hex values:
//
//	accent: "#89b4fa"
//	foreground: "#cdd6f4"
//	red: "#f38ba8"
//
// Entries that are not hex colors are ignored.
func LoadThemeFromFile(path string) (Theme, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-selected theme file
	if err != nil {
		return Theme{}, err
	}

	colors, err := parseThemeColors(data)
	if err != nil {
		return Theme{}, fmt.Errorf("parsing theme %s: %w", path, err)
	}
	return mapColorsToTheme(colors), nil
}

func parseThemeColors(data []byte) (map[string]string, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	colors := make(map[string]string, len(raw))
	for k, v := range raw {
		v = strings.TrimSpace(v)
		if isValidHexColor(v) {
			colors[strings.ToLower(k)] = v
		}
	}
	return colors, nil
}

// isValidHexColor reports whether s is #RGB or #RRGGBB.
func isValidHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	hex := s[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return false
	}
	for _, c := range hex {
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'f'
		isUpper := c >= 'A' && c <= 'F'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}
	return true
}

// mapColorsToTheme maps theme file keys onto Theme roles. Only dark variants
// are overridden; light variants keep the defaults.
//
//	accent, blue   → Accent
//	foreground     → Foreground
//	green          → OK
//	yellow         → Warning
//	red            → Error
//	muted, black   → Muted
func mapColorsToTheme(colors map[string]string) Theme {
	defaults := DefaultTheme()

	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := colors[k]; ok {
				return v
			}
		}
		return ""
	}
	dark := func(base lipgloss.AdaptiveColor, keys ...string) lipgloss.AdaptiveColor {
		if v := get(keys...); v != "" {
			base.Dark = v
		}
		return base
	}

	return Theme{
		Accent:     dark(defaults.Accent, "accent", "blue"),
		OK:         dark(defaults.OK, "green"),
		Warning:    dark(defaults.Warning, "yellow"),
		Error:      dark(defaults.Error, "red"),
		Muted:      dark(defaults.Muted, "muted", "black"),
		Foreground: dark(defaults.Foreground, "foreground"),
	}
}
