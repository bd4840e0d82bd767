// Package commands implements the CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/arccheck/arccheck/internal/appctx"
	"github.com/arccheck/arccheck/internal/engine"
	"github.com/arccheck/arccheck/internal/output"
	"github.com/arccheck/arccheck/internal/report"
	"github.com/arccheck/arccheck/internal/tui"
)

// scanOptions control how a scan command finishes.
type scanOptions struct {
	// csvPath, when set, also exports the report.
	csvPath string
}

// runScan starts profile on the app's engine, waits for it, and renders the
// report. The spinner is only shown on an interactive terminal.
func runScan(cmd *cobra.Command, profile engine.Profile, opts scanOptions) error {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	// Validate before scanning so a bad flag never costs a scan.
	if _, _, err := app.FailThreshold(); err != nil {
		return err
	}

	res, err := scan(cmd.Context(), app, profile)
	if err != nil {
		return err
	}

	if opts.csvPath != "" {
		if err := report.ExportCSV(opts.csvPath, res.Rows); err != nil {
			return output.ErrExport(opts.csvPath, err)
		}
	}

	if app.Output.EffectiveFormat() == output.FormatStyled {
		renderReportStyled(cmd.OutOrStdout(), res, opts.csvPath)
	} else if err := app.OK(res.Rows, scanResponseOptions(res, opts.csvPath)...); err != nil {
		return err
	}

	return app.CheckFindings(res.Rows)
}

// scan runs profile to completion.
func scan(ctx context.Context, app *appctx.App, profile engine.Profile) (engine.Result, error) {
	if app.IsInteractive() && app.Output.EffectiveFormat() == output.FormatStyled {
		return scanWithSpinner(ctx, app, profile)
	}
	return startAndWait(ctx, app, profile, nil)
}

func startAndWait(ctx context.Context, app *appctx.App, profile engine.Profile, status func(string)) (engine.Result, error) {
	if status != nil {
		restore := app.OnStatus(status)
		defer restore()
	}

	task, err := app.Engine.Start(profile)
	if errors.Is(err, engine.ErrScanInProgress) {
		return engine.Result{}, output.ErrBusy()
	}
	if err != nil {
		return engine.Result{}, output.ErrUsage(err.Error())
	}
	return task.Wait(ctx)
}

func scanWithSpinner(ctx context.Context, app *appctx.App, profile engine.Profile) (engine.Result, error) {
	styles := tui.NewStyles()
	spinner := tui.NewSpinner("Starting scan...", app.Stderr,
		tui.WithStyles(styles),
		tui.WithSpinnerColor(styles.Theme().Accent),
	)

	done := make(chan engine.Result, 1)
	_, err := spinner.Run(func(status func(string)) (string, error) {
		res, err := startAndWait(ctx, app, profile, status)
		if err != nil {
			return "", err
		}
		done <- res
		return res.Rows.Summary(), nil
	})
	if err != nil {
		return engine.Result{}, err
	}
	return <-done, nil
}

func scanResponseOptions(res engine.Result, csvPath string) []output.ResponseOption {
	opts := []output.ResponseOption{
		output.WithSummary(res.Rows.Summary()),
		output.WithContext("scan_id", res.ID),
		output.WithContext("profile", string(res.Profile)),
		output.WithMeta("started_at", res.StartedAt.Format(time.RFC3339)),
		output.WithMeta("duration_ms", res.Duration().Milliseconds()),
		output.WithMeta("worst", res.Rows.Worst().String()),
	}
	if csvPath != "" {
		opts = append(opts, output.WithContext("csv", csvPath))
	}
	if crumbs := buildScanBreadcrumbs(res); len(crumbs) > 0 {
		opts = append(opts, output.WithBreadcrumbs(crumbs...))
	}
	return opts
}

// buildScanBreadcrumbs suggests follow-ups for the problems in res.
func buildScanBreadcrumbs(res engine.Result) []output.Breadcrumb {
	var breadcrumbs []output.Breadcrumb

	for _, row := range res.Rows {
		if row.Severity == report.SeverityOK {
			continue
		}

		switch {
		case row.Component == "Agent Configuration" && row.Status == "not found":
			breadcrumbs = append(breadcrumbs, output.Breadcrumb{
				Action:      "paths",
				Cmd:         "arccheck paths",
				Description: "Show where the agent configuration is read from",
			})
		case strings.HasPrefix(row.Alert, "token"):
			breadcrumbs = append(breadcrumbs, output.Breadcrumb{
				Action:      "watch",
				Cmd:         "arccheck watch",
				Description: "Re-check when the agent refreshes its token",
			})
		case row.Status == "not running":
			breadcrumbs = append(breadcrumbs, output.Breadcrumb{
				Action:      "recheck",
				Cmd:         "arccheck check",
				Description: "Re-run the check after starting the agent services",
			})
		case row.Component == "Azure Extensions":
			breadcrumbs = append(breadcrumbs, output.Breadcrumb{
				Action:      "paths",
				Cmd:         "arccheck paths",
				Description: "Show which plugins folder is scanned",
			})
		}
	}

	if res.Profile == engine.ProfileAgentCheck {
		breadcrumbs = append(breadcrumbs, output.Breadcrumb{
			Action:      "export",
			Cmd:         "arccheck export --profile agent",
			Description: "Save this report as CSV",
		})
	}

	// Deduplicate breadcrumbs
	seen := make(map[string]bool)
	unique := []output.Breadcrumb{}
	for _, b := range breadcrumbs {
		if !seen[b.Cmd] {
			seen[b.Cmd] = true
			unique = append(unique, b)
		}
	}

	return unique
}

func scanTitle(p engine.Profile) string {
	if p == engine.ProfileExtensions {
		return "Azure Arc Extensions"
	}
	return "Azure Arc Agent Check"
}

// renderReportStyled prints one line per row with a severity icon, followed
// by the row's details and alert.
func renderReportStyled(w io.Writer, res engine.Result, csvPath string) {
	r := output.NewRenderer(w, false)
	styles := tui.NewStyles()

	nameStyle := lipgloss.NewStyle().Bold(true)
	hintStyle := r.Hint

	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Summary.Render(scanTitle(res.Profile)))
	fmt.Fprintln(w)

	if res.Rows.Len() == 0 {
		fmt.Fprintf(w, "  %s\n\n", r.Muted.Render("No components analyzed"))
		return
	}

	for _, row := range res.Rows {
		sev := row.Severity.String()
		icon := r.SeverityStyle(sev).Render(tui.SeverityIcon(sev))

		fmt.Fprintf(w, "  %s %s %s\n",
			icon,
			nameStyle.Render(row.Component),
			r.SeverityStyle(sev).Render(row.Status),
		)

		for _, kv := range [][2]string{
			{"Path", row.VersionOrPath},
			{"Token expires", row.Expiration},
			{"Details", row.Details},
		} {
			if kv[1] != "" {
				fmt.Fprintf(w, "      %s\n", styles.RenderKeyValue(kv[0], kv[1]))
			}
		}
		if row.Alert != "" && row.Severity != report.SeverityOK {
			fmt.Fprintf(w, "      %s\n", hintStyle.Render("↳ "+row.Alert))
		}
	}

	fmt.Fprintln(w)

	counts := res.Rows.Counts()
	var summaryParts []string
	if counts.OK > 0 {
		summaryParts = append(summaryParts, r.OK.Render(fmt.Sprintf("%d OK", counts.OK)))
	}
	if counts.Warnings > 0 {
		summaryParts = append(summaryParts, r.Warning.Render(fmt.Sprintf("%d %s", counts.Warnings, pluralize(counts.Warnings, "warning", "warnings"))))
	}
	if counts.Errors > 0 {
		summaryParts = append(summaryParts, r.Error.Render(fmt.Sprintf("%d %s", counts.Errors, pluralize(counts.Errors, "error", "errors"))))
	}

	fmt.Fprintf(w, "  %s\n", strings.Join(summaryParts, "  "))
	if csvPath != "" {
		fmt.Fprintf(w, "  %s\n", r.Muted.Render("Report saved to "+csvPath))
	}
	fmt.Fprintln(w)
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
