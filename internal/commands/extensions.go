package commands

import (
	"github.com/spf13/cobra"

	"github.com/arccheck/arccheck/internal/engine"
)

// NewExtensionsCmd creates the extensions command.
func NewExtensionsCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:     "extensions",
		Aliases: []string{"ext"},
		Short:   "List installed Azure extensions",
		Long: `List the Azure extensions installed on this machine.

Every directory in the plugins folder matching the plugin pattern is one
extension. A missing or empty folder is reported as a warning.

Examples:
  arccheck extensions
  arccheck extensions --plugins-dir /tmp/plugins
  arccheck extensions --quiet --jq '.[].details'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, engine.ProfileExtensions, opts)
		},
	}

	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "Also export the report as CSV to `path`")

	return cmd
}
