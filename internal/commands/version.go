package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arccheck/arccheck/internal/appctx"
	"github.com/arccheck/arccheck/internal/output"
	"github.com/arccheck/arccheck/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				// Setup is skipped for version; print plainly.
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Full())
				return err
			}
			return app.OK(version.Current(), output.WithSummary(version.Full()))
		},
	}
}
