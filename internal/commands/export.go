package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arccheck/arccheck/internal/appctx"
	"github.com/arccheck/arccheck/internal/engine"
	"github.com/arccheck/arccheck/internal/output"
	"github.com/arccheck/arccheck/internal/report"
	"github.com/arccheck/arccheck/internal/tui"
)

// DefaultExportName is the file name offered for CSV exports.
const DefaultExportName = "AzureArcAgent_Report.csv"

// exportPrompter asks for the export path; replaced in tests.
var exportPrompter = func(defaultPath string) (string, error) {
	return tui.InputWithDefault("Save report as", defaultPath)
}

// profilePrompter picks the scan profile; replaced in tests.
var profilePrompter = func() (string, error) {
	return tui.Select("Profile to export", []tui.SelectOption{
		{Value: string(engine.ProfileAgentCheck), Label: "Agent check"},
		{Value: string(engine.ProfileExtensions), Label: "Extensions"},
	})
}

// overwritePrompter confirms replacing an existing file; replaced in tests.
var overwritePrompter = func(path string) (bool, error) {
	return tui.Confirm(fmt.Sprintf("%s exists. Overwrite?", path), false)
}

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	var (
		profileName string
		path        string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run a scan and save the report as CSV",
		Long: `Run a scan and save the report as CSV.

The file is UTF-8 with a byte-order mark, one quoted row per component.
On an interactive terminal the profile and path are asked for unless
given as flags. Otherwise ` + DefaultExportName + ` and the agent profile
are used.

Examples:
  arccheck export
  arccheck export --profile extensions --output ext.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			if !cmd.Flags().Changed("profile") && app.IsInteractive() {
				picked, err := profilePrompter()
				if err != nil {
					return err
				}
				profileName = picked
			}

			profile, err := engine.ParseProfile(profileName)
			if err != nil {
				return output.ErrUsageHint(err.Error(), "Use --profile agent or --profile extensions")
			}

			path, err = resolveExportPath(app, path)
			if err != nil {
				return err
			}
			if path == "" {
				return app.OK(map[string]any{"exported": false}, output.WithSummary("Export canceled"))
			}

			res, err := scan(cmd.Context(), app, profile)
			if err != nil {
				return err
			}
			if err := report.ExportCSV(path, res.Rows); err != nil {
				return output.ErrExport(path, err)
			}

			return app.OK(map[string]any{
				"exported": true,
				"path":     path,
				"profile":  string(profile),
				"rows":     res.Rows.Len(),
				"worst":    res.Rows.Worst().String(),
			},
				output.WithSummary(fmt.Sprintf("Report saved to %s (%s)", path, res.Rows.Summary())),
				output.WithContext("scan_id", res.ID),
			)
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", string(engine.ProfileAgentCheck), "Scan profile: agent or extensions")
	cmd.Flags().StringVarP(&path, "output", "o", "", "CSV file `path`")

	return cmd
}

// resolveExportPath returns the path to write. An empty result means the
// user declined to overwrite an existing file.
func resolveExportPath(app *appctx.App, path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if !app.IsInteractive() {
		return DefaultExportName, nil
	}

	path, err := exportPrompter(DefaultExportName)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		ok, err := overwritePrompter(path)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", nil
		}
	}
	return path, nil
}
