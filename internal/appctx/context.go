// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/arccheck/arccheck/internal/agentconfig"
	"github.com/arccheck/arccheck/internal/config"
	"github.com/arccheck/arccheck/internal/diaglog"
	"github.com/arccheck/arccheck/internal/engine"
	"github.com/arccheck/arccheck/internal/eventlog"
	"github.com/arccheck/arccheck/internal/extensions"
	"github.com/arccheck/arccheck/internal/output"
	"github.com/arccheck/arccheck/internal/procprobe"
	"github.com/arccheck/arccheck/internal/report"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config *config.Config
	Output *output.Writer
	Engine *engine.Engine

	// Log is the diagnostic log file; Logger writes to it.
	Log    *diaglog.Log
	Logger *zap.Logger

	// Flags holds the global flag values
	Flags GlobalFlags

	Stdout io.Writer
	Stderr io.Writer

	mu       sync.Mutex
	onStatus func(string)
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON   bool
	YAML   bool
	MD     bool // Literal Markdown syntax output
	Styled bool // Force ANSI styled output (even when piped)
	Quiet  bool
	JQ     string

	// Location overrides
	ConfigFile string
	PluginsDir string
	TokenFile  string
	LogFile    string

	// Behavior flags
	Verbose bool
	FailOn  string
}

// Overrides returns the flag values that feed configuration loading.
func (f GlobalFlags) Overrides() config.FlagOverrides {
	return config.FlagOverrides{
		ConfigFile: f.ConfigFile,
		PluginsDir: f.PluginsDir,
		TokenFile:  f.TokenFile,
		LogFile:    f.LogFile,
		FailOn:     f.FailOn,
	}
}

// NewApp creates a new App with the given configuration. The engine reads
// from the locations in cfg.
func NewApp(cfg *config.Config) *App {
	a := &App{
		Config: cfg,
		Log:    diaglog.New(cfg.LogFile),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	a.Output = output.New(output.Options{
		Format: output.ParseFormat(cfg.Format),
		Writer: a.Stdout,
	})
	a.Logger = diaglog.NewLogger(a.Log, false, a.Stderr)
	a.Engine = a.newEngine()
	return a
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	format := output.ParseFormat(a.Config.Format)
	switch {
	case a.Flags.Quiet:
		format = output.FormatQuiet
	case a.Flags.JSON:
		format = output.FormatJSON
	case a.Flags.YAML:
		format = output.FormatYAML
	case a.Flags.Styled:
		format = output.FormatStyled
	case a.Flags.MD:
		format = output.FormatMarkdown
	}
	a.Output = output.New(output.Options{
		Format: format,
		Writer: a.Stdout,
		JQ:     a.Flags.JQ,
	})

	if a.Flags.Verbose {
		a.Logger = diaglog.NewLogger(a.Log, true, a.Stderr)
		a.Engine = a.newEngine()
	}
}

func (a *App) newEngine() *engine.Engine {
	return engine.New(NewReaders(a.Config, a.Logger),
		engine.WithLogger(a.Logger),
		engine.WithHooks(engine.Hooks{
			ScanStarted: func(id string, profile engine.Profile) {
				a.Logger.Debug("scan started", zap.String("scan_id", id), zap.String("profile", string(profile)))
			},
			StageStarted: func(profile engine.Profile, stage string) {
				a.Logger.Debug("stage started", zap.String("profile", string(profile)), zap.String("stage", stage))
			},
			Status: a.status,
			ScanFinished: func(res engine.Result) {
				a.Logger.Debug("scan finished",
					zap.String("scan_id", res.ID),
					zap.Duration("duration", res.Duration()),
					zap.String("worst", res.Rows.Worst().String()))
			},
		}))
}

// NewReaders builds the platform readers for the locations in cfg.
func NewReaders(cfg *config.Config, logger *zap.Logger) engine.Readers {
	events := eventlog.New(logger.Named("eventlog"))
	events.Channel = cfg.EventChannel
	events.Provider = cfg.EventProvider

	return engine.Readers{
		Processes:     procprobe.New(logger.Named("procprobe")),
		CoreProcesses: procprobe.DefaultCoreProcesses(cfg.ServiceProcess, cfg.AgentProcess),
		Config: &agentconfig.Reader{
			ConfigPath: cfg.AgentConfigPath,
			TokenPath:  cfg.TokenPath,
			Logger:     logger.Named("agentconfig"),
		},
		Extensions: &extensions.Enumerator{
			Root:    cfg.PluginsDir,
			Pattern: cfg.PluginPattern,
			Logger:  logger.Named("extensions"),
		},
		Events: events,
	}
}

// OnStatus routes engine status messages to fn until the returned function
// is called.
func (a *App) OnStatus(fn func(string)) (restore func()) {
	a.mu.Lock()
	prev := a.onStatus
	a.onStatus = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		a.onStatus = prev
		a.mu.Unlock()
	}
}

func (a *App) status(msg string) {
	a.mu.Lock()
	fn := a.onStatus
	a.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// FailThreshold returns the severity at which a report fails the command.
// ok is false for "none".
func (a *App) FailThreshold() (threshold report.Severity, ok bool, err error) {
	var value string
	if a.Config != nil {
		value = strings.ToLower(strings.TrimSpace(a.Config.FailOn))
	}
	switch value {
	case "", "none":
		return report.SeverityOK, false, nil
	case "warning", "warn":
		return report.SeverityWarning, true, nil
	case "error":
		return report.SeverityError, true, nil
	default:
		return report.SeverityOK, false, output.ErrUsageHint(
			fmt.Sprintf("Invalid --fail-on value %q", value),
			"Use none, warning or error")
	}
}

// CheckFindings returns an ErrFindings error when rows reach the configured
// failure threshold.
func (a *App) CheckFindings(rows report.Report) error {
	threshold, ok, err := a.FailThreshold()
	if err != nil || !ok || rows.Len() == 0 {
		return err
	}
	if worst := rows.Worst(); worst >= threshold {
		return output.ErrFindings(worst.String(), rows.Summary())
	}
	return nil
}

// OK outputs a success response.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	return a.Output.OK(data, opts...)
}

// Err outputs an error response and records it in the diagnostic log.
func (a *App) Err(err error) error {
	if a.Logger != nil {
		e := output.AsError(err)
		a.Logger.Info("command failed", zap.String("code", e.Code), zap.String("error", e.Message))
	}
	return a.Output.Err(err)
}

// IsInteractive returns true if the terminal supports interactive TUI.
func (a *App) IsInteractive() bool {
	// Not interactive if any machine-output mode is set
	if a.Flags.JSON || a.Flags.YAML || a.Flags.Quiet || a.Flags.JQ != "" {
		return false
	}

	// Check if stdout is a terminal
	f, ok := a.Stdout.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}

	return (fi.Mode() & os.ModeCharDevice) != 0
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
