package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arccheck/arccheck/internal/appctx"
	"github.com/arccheck/arccheck/internal/config"
	"github.com/arccheck/arccheck/internal/output"
)

// NewPathsCmd creates the paths command.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "paths",
		Aliases: []string{"config"},
		Short:   "Show the effective configuration",
		Long: fmt.Sprintf(`Show where arccheck reads from and writes to, with the source of each value.

Configuration is loaded from multiple sources with the following precedence:
  flags > env > --config-file > global > system > defaults

Config locations:
  - System: %s
  - Global: %s

Every key can also be set with an %s<KEY> environment variable.`,
			config.SystemConfigPath(), config.GlobalConfigPath(), config.EnvPrefix),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}
			return runPaths(app)
		},
	}
}

func runPaths(app *appctx.App) error {
	rows := make([]map[string]any, 0, len(config.Keys)+1)
	for _, key := range config.Keys {
		source := app.Config.Sources[key]
		if source == "" {
			source = string(config.SourceDefault)
		}
		rows = append(rows, map[string]any{
			"key":    key,
			"value":  app.Config.Value(key),
			"source": source,
		})
	}
	rows = append(rows, map[string]any{
		"key":    "diagnostic_log",
		"value":  app.Log.Path(),
		"source": "resolved",
	})

	return app.OK(rows,
		output.WithSummary("Effective configuration"),
		output.WithContext("system_config", config.SystemConfigPath()),
		output.WithContext("global_config", config.GlobalConfigPath()),
		output.WithBreadcrumbs(output.Breadcrumb{
			Action:      "check",
			Cmd:         "arccheck check",
			Description: "Run the agent check with these settings",
		}),
	)
}
