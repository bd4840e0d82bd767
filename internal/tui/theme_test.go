package tui

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThemeColors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "valid colors",
			input: `accent: "#89b4fa"
foreground: "#cdd6f4"`,
			want: map[string]string{
				"accent":     "#89b4fa",
				"foreground": "#cdd6f4",
			},
		},
		{
			name: "comments and keys are case-insensitive",
			input: `# palette
Accent: "#89b4fa" # primary
RED: "#f38ba8"`,
			want: map[string]string{
				"accent": "#89b4fa",
				"red":    "#f38ba8",
			},
		},
		{
			name: "invalid hex colors skipped",
			input: `accent: "#89b4fa"
bad: not-a-color
invalid: "#gggggg"
short: "#fff"`,
			want: map[string]string{
				"accent": "#89b4fa",
				"short":  "#fff",
			},
		},
		{
			name:  "empty input",
			input: "",
			want:  map[string]string{},
		},
		{
			name:    "not a mapping",
			input:   "- one\n- two",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseThemeColors([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsValidHexColor(t *testing.T) {
	assert.True(t, isValidHexColor("#fff"))
	assert.True(t, isValidHexColor("#A6E3A1"))
	assert.False(t, isValidHexColor("fff"))
	assert.False(t, isValidHexColor("#ffff"))
	assert.False(t, isValidHexColor("#12345g"))
	assert.False(t, isValidHexColor(""))
}

func TestMapColorsToTheme(t *testing.T) {
	defaults := DefaultTheme()

	theme := mapColorsToTheme(map[string]string{
		"blue":  "#0000ff",
		"red":   "#ff0000",
		"black": "#111111",
	})

	assert.Equal(t, "#0000ff", theme.Accent.Dark)
	assert.Equal(t, defaults.Accent.Light, theme.Accent.Light)
	assert.Equal(t, "#ff0000", theme.Error.Dark)
	assert.Equal(t, "#111111", theme.Muted.Dark)
	assert.Equal(t, defaults.OK, theme.OK)
}

func TestMapColorsAccentBeatsBlue(t *testing.T) {
	theme := mapColorsToTheme(map[string]string{"accent": "#aaaaaa", "blue": "#0000ff"})
	assert.Equal(t, "#aaaaaa", theme.Accent.Dark)
}

func TestLoadThemeFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`green: "#00ff00"`), 0o600))

	theme, err := LoadThemeFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", theme.OK.Dark)

	_, err = LoadThemeFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolveThemeNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, NoColorTheme(), ResolveTheme())
}

func TestResolveThemeFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`yellow: "#ffff00"`), 0o600))

	unsetNoColor(t)
	t.Setenv(ThemeEnv, path)

	assert.Equal(t, "#ffff00", ResolveTheme().Warning.Dark)
}

func TestResolveThemeFallsBackToDefault(t *testing.T) {
	unsetNoColor(t)
	t.Setenv(ThemeEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	assert.Equal(t, DefaultTheme(), ResolveTheme())
}

func TestSeverityIcon(t *testing.T) {
	assert.Equal(t, "✓", SeverityIcon("OK"))
	assert.Equal(t, "!", SeverityIcon("WARNING"))
	assert.Equal(t, "✗", SeverityIcon("ERROR"))
	assert.Equal(t, "·", SeverityIcon(""))
}

func TestRenderKeyValueNoColor(t *testing.T) {
	s := NewStylesWithTheme(NoColorTheme())
	assert.Equal(t, "Region: westeurope", s.RenderKeyValue("Region", "westeurope"))
}

// unsetNoColor clears NO_COLOR for the test and restores it afterwards.
func unsetNoColor(t *testing.T) {
	t.Helper()
	t.Setenv("NO_COLOR", "")
	require.NoError(t, os.Unsetenv("NO_COLOR"))
}

func TestSpinnerModelStatusAndDone(t *testing.T) {
	m := newSpinnerModel("Starting", WithStyles(NewStylesWithTheme(NoColorTheme())))

	updated, _ := m.Update(spinnerStatusMsg("Checking core processes..."))
	m = updated.(spinnerModel)
	assert.Contains(t, m.View(), "Checking core processes...")

	updated, cmd := m.Update(spinnerDoneMsg{result: "4 components"})
	m = updated.(spinnerModel)
	require.NotNil(t, cmd)
	assert.True(t, m.done)
	assert.Contains(t, m.View(), "✓ 4 components")
}

func TestSpinnerModelError(t *testing.T) {
	m := newSpinnerModel("Starting", WithStyles(NewStylesWithTheme(NoColorTheme())))

	updated, _ := m.Update(spinnerDoneMsg{err: errors.New("boom")})
	assert.Contains(t, updated.View(), "✗ boom")
}

func TestSpinnerModelQuit(t *testing.T) {
	m := newSpinnerModel("Starting", WithStyles(NewStylesWithTheme(NoColorTheme())))

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, updated.(spinnerModel).quitting)
	assert.Empty(t, updated.View())
}
