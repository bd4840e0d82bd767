package commands

import (
	"github.com/spf13/cobra"

	"github.com/arccheck/arccheck/internal/engine"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the connected machine agent",
		Long: `Check the Azure Arc connected machine agent.

The check covers, in order:
  - the HIMDS service and agent processes
  - the agent configuration and token expiry
  - the most recent agent warning or error in the event log

Examples:
  arccheck check                    # Styled report on a terminal
  arccheck check --json             # JSON envelope
  arccheck check --csv report.csv   # Also export the report
  arccheck check --fail-on warning  # Exit 2 on warnings or errors`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, engine.ProfileAgentCheck, opts)
		},
	}

	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "Also export the report as CSV to `path`")

	return cmd
}
