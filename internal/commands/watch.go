package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arccheck/arccheck/internal/appctx"
	"github.com/arccheck/arccheck/internal/engine"
	"github.com/arccheck/arccheck/internal/output"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the agent check when its files change",
		Long: `Watch the agent configuration and token metadata files and re-run the
agent check whenever either changes. Bursts of changes are collapsed into
one check. Changes that settle while a check is running are checked again
once it finishes.

Runs one check at startup and stops on Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = app.Config.WatchDebounce
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("creating file watcher: %w", err)
			}
			defer watcher.Close()

			targets := []string{app.Config.AgentConfigPath, app.Config.TokenPath}
			for _, dir := range watchDirs(targets) {
				if err := watcher.Add(dir); err != nil {
					return output.ErrUsageHint(
						fmt.Sprintf("Cannot watch %s: %v", dir, err),
						"Check the agent_config and token_file settings with 'arccheck paths'")
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			loop := &watchLoop{
				engine:   app.Engine,
				logger:   app.Logger,
				debounce: debounce,
				targets:  targets,
				render: func(res engine.Result) error {
					if app.Output.EffectiveFormat() == output.FormatStyled {
						renderReportStyled(cmd.OutOrStdout(), res, "")
						return nil
					}
					return app.OK(res.Rows, scanResponseOptions(res, "")...)
				},
			}
			return loop.run(ctx, watcher.Events, watcher.Errors)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before a change triggers a check")

	return cmd
}

// watchDirs returns the distinct parent directories of paths. Directories
// are watched instead of files so that replace-on-write editors are seen.
func watchDirs(paths []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		dir := filepath.Dir(filepath.Clean(p))
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// agentChecker starts agent checks.
type agentChecker interface {
	RunAgentCheck() (*engine.Task, error)
}

// watchLoop turns file events into debounced agent checks.
type watchLoop struct {
	engine   agentChecker
	logger   *zap.Logger
	debounce time.Duration
	targets  []string
	render   func(engine.Result) error
}

// run triggers a check at start and after each debounced burst of changes.
// A burst that settles while the loop's own check runs is queued and checked
// once that check is rendered. A check refused because another caller holds
// the engine is retried after the debounce period.
func (l *watchLoop) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	results := make(chan engine.Result)
	var running, pending bool

	timer := time.NewTimer(0) // initial check
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !l.relevant(ev) {
				continue
			}
			l.logger.Debug("watched file changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(l.debounce)

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			l.logger.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			if running {
				pending = true
				l.logger.Debug("change queued until the running check finishes")
				continue
			}
			switch err := l.trigger(ctx, results); {
			case err == nil:
				running = true
			case errors.Is(err, engine.ErrScanInProgress):
				timer.Reset(l.retryDelay())
			}

		case res := <-results:
			running = false
			if err := l.render(res); err != nil {
				return err
			}
			if pending {
				pending = false
				timer.Reset(0)
			}
		}
	}
}

func (l *watchLoop) retryDelay() time.Duration {
	if l.debounce > 0 {
		return l.debounce
	}
	return 100 * time.Millisecond
}

// trigger starts a check whose result is delivered to results. It returns
// engine.ErrScanInProgress when a check is already running.
func (l *watchLoop) trigger(ctx context.Context, results chan<- engine.Result) error {
	task, err := l.engine.RunAgentCheck()
	if errors.Is(err, engine.ErrScanInProgress) {
		l.logger.Info("scan request rejected: scan already in progress")
		return err
	}
	if err != nil {
		l.logger.Error("starting scan", zap.Error(err))
		return err
	}

	go func() {
		res, err := task.Wait(ctx)
		if err != nil {
			return
		}
		select {
		case results <- res:
		case <-ctx.Done():
		}
	}()
	return nil
}

func (l *watchLoop) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	for _, t := range l.targets {
		if t != "" && filepath.Clean(t) == name {
			return true
		}
	}
	return false
}
