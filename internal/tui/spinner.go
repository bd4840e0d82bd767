package tui

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCanceled is returned when the user interrupts a running spinner.
var ErrCanceled = errors.New("canceled")

// minVisible keeps very fast scans from flashing the spinner.
const minVisible = 100 * time.Millisecond

// spinnerModel is the bubbletea model for a spinner.
type spinnerModel struct {
	spinner  spinner.Model
	message  string
	done     bool
	result   string
	err      error
	styles   *Styles
	quitting bool
}

// SpinnerOption configures a spinner.
type SpinnerOption func(*spinnerModel)

// WithSpinnerColor sets the spinner color.
func WithSpinnerColor(color lipgloss.TerminalColor) SpinnerOption {
	return func(m *spinnerModel) {
		m.spinner.Style = lipgloss.NewStyle().Foreground(color)
	}
}

// WithStyles sets the styles used for the final line.
func WithStyles(styles *Styles) SpinnerOption {
	return func(m *spinnerModel) {
		m.styles = styles
	}
}

func newSpinnerModel(message string, opts ...SpinnerOption) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := spinnerModel{
		spinner: s,
		message: message,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.styles == nil {
		m.styles = NewStyles()
	}
	return m
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

type spinnerStatusMsg string

type spinnerDoneMsg struct {
	result string
	err    error
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case spinnerStatusMsg:
		m.message = string(msg)
		return m, nil
	case spinnerDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.quitting {
		return ""
	}
	if m.done {
		if m.err != nil {
			return m.styles.Error.Render("✗ "+m.err.Error()) + "\n"
		}
		return m.styles.OK.Render("✓ "+m.result) + "\n"
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.message)
}

// Spinner shows progress while a scan runs.
type Spinner struct {
	message string
	output  io.Writer
	opts    []SpinnerOption
}

// NewSpinner creates a spinner that draws to output (stderr when nil).
func NewSpinner(message string, output io.Writer, opts ...SpinnerOption) *Spinner {
	return &Spinner{
		message: message,
		output:  output,
		opts:    opts,
	}
}

// Run executes fn while displaying the spinner. fn may call status to replace
// the message shown next to the spinner. The returned string is shown as the
// final line.
func (s *Spinner) Run(fn func(status func(string)) (string, error)) (string, error) {
	m := newSpinnerModel(s.message, s.opts...)

	var progOpts []tea.ProgramOption
	if s.output != nil {
		progOpts = append(progOpts, tea.WithOutput(s.output))
	}
	p := tea.NewProgram(m, progOpts...)

	go func() {
		started := time.Now()
		result, err := fn(func(msg string) { p.Send(spinnerStatusMsg(msg)) })
		if elapsed := time.Since(started); elapsed < minVisible {
			time.Sleep(minVisible - elapsed)
		}
		p.Send(spinnerDoneMsg{result: result, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	final := finalModel.(spinnerModel) //nolint:errcheck // type assertion always succeeds here
	if final.quitting {
		return "", ErrCanceled
	}
	return final.result, final.err
}
