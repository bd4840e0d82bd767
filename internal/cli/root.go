// Package cli wires the commands into the arccheck root command.
package cli

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arccheck/arccheck/internal/appctx"
	"github.com/arccheck/arccheck/internal/commands"
	"github.com/arccheck/arccheck/internal/config"
	"github.com/arccheck/arccheck/internal/output"
	"github.com/arccheck/arccheck/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:   "arccheck",
		Short: "Diagnose the Azure Arc connected machine agent",
		Long: `arccheck inspects the Azure Arc connected machine agent on this host: its
processes, configuration, token expiry, recent event log entries, and the
installed Azure extensions.

Status messages are appended to a diagnostic log (see 'arccheck paths').`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == cobra.ShellCompRequestCmd {
				return nil
			}

			cfg, err := config.Load(flags.Overrides())
			if err != nil {
				return output.ErrUsageHint(err.Error(), "Check the --config-file path")
			}

			app := appctx.NewApp(cfg)
			app.Stdout = cmd.OutOrStdout()
			app.Stderr = cmd.ErrOrStderr()
			app.Flags = flags
			app.ApplyFlags()

			// The diagnostic log is best effort.
			_ = app.Log.SessionStart(version.Version, time.Now())

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	// Config keys double as flag names: --plugins_dir works like --plugins-dir.
	cmd.SetGlobalNormalizationFunc(normalizeFlagName)

	// Output format flags
	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVar(&flags.YAML, "yaml", false, "Output as YAML")
	cmd.PersistentFlags().BoolVarP(&flags.MD, "md", "m", false, "Output as Markdown (portable)")
	cmd.PersistentFlags().BoolVar(&flags.Styled, "styled", false, "Force styled output (ANSI colors)")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	cmd.PersistentFlags().StringVar(&flags.JQ, "jq", "", "Filter JSON output through a jq `expression`")

	// Location flags
	cmd.PersistentFlags().StringVar(&flags.ConfigFile, "config-file", "", "Read settings from this JSON `file`")
	cmd.PersistentFlags().StringVar(&flags.PluginsDir, "plugins-dir", "", "Extensions plugins `directory`")
	cmd.PersistentFlags().StringVar(&flags.TokenFile, "token-file", "", "Agent token metadata `file`")
	cmd.PersistentFlags().StringVar(&flags.LogFile, "log-file", "", "Diagnostic log `file`")

	// Behavior flags
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Write debug logging to stderr")
	cmd.PersistentFlags().StringVar(&flags.FailOn, "fail-on", "", "Exit 2 when the report reaches this severity: none, warning, error")

	cmd.AddCommand(
		commands.NewCheckCmd(),
		commands.NewExtensionsCmd(),
		commands.NewExportCmd(),
		commands.NewWatchCmd(),
		commands.NewPathsCmd(),
		commands.NewVersionCmd(),
	)

	return cmd
}

func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// Execute runs the root command and exits with the mapped exit code.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes args and returns the process exit code. Errors that occur
// before the app exists are written to stdout directly.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	// Use ExecuteC to get the executed command (for correct context access)
	executedCmd, err := cmd.ExecuteC()
	if err == nil {
		return output.ExitOK
	}

	err = transformCobraError(err)
	apiErr := output.AsError(err)

	if app := appctx.FromContext(executedCmd.Context()); app != nil {
		_ = app.Err(err)
		return apiErr.ExitCode()
	}

	// Fallback: output error directly (app not available, e.g., during setup)
	writer := output.New(output.Options{
		Format: fallbackFormat(cmd),
		Writer: stdout,
	})
	_ = writer.Err(err)

	return apiErr.ExitCode()
}

// fallbackFormat reads the format flags straight from the command line.
func fallbackFormat(cmd *cobra.Command) output.Format {
	pf := cmd.PersistentFlags()
	quiet, _ := pf.GetBool("quiet")
	jsonFlag, _ := pf.GetBool("json")
	yamlFlag, _ := pf.GetBool("yaml")
	styled, _ := pf.GetBool("styled")
	md, _ := pf.GetBool("md")

	switch {
	case quiet:
		return output.FormatQuiet
	case jsonFlag:
		return output.FormatJSON
	case yamlFlag:
		return output.FormatYAML
	case styled:
		return output.FormatStyled
	case md:
		return output.FormatMarkdown
	default:
		return output.FormatAuto
	}
}

var shorthandFlagRe = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)

// transformCobraError turns cobra's parse errors into usage errors with a
// consistent wording.
func transformCobraError(err error) error {
	msg := err.Error()

	// "flag needs an argument: --FLAG" → "--FLAG requires a value"
	if strings.HasPrefix(msg, "flag needs an argument: ") {
		flag := strings.TrimPrefix(msg, "flag needs an argument: ")
		return output.ErrUsage(flag + " requires a value")
	}

	// "unknown flag: --FLAG" → "Unknown option: --FLAG"
	if strings.HasPrefix(msg, "unknown flag: ") {
		flag := strings.TrimPrefix(msg, "unknown flag: ")
		return output.ErrUsage("Unknown option: " + flag)
	}

	// "unknown shorthand flag: 'X' in -X" → "Unknown option: -X"
	if strings.HasPrefix(msg, "unknown shorthand flag: ") {
		if matches := shorthandFlagRe.FindStringSubmatch(msg); len(matches) > 1 {
			return output.ErrUsage("Unknown option: " + matches[1])
		}
	}

	if strings.HasPrefix(msg, "unknown command ") {
		return output.ErrUsageHint(msg, "Run 'arccheck --help' for the list of commands")
	}

	if strings.Contains(msg, "invalid argument") || strings.Contains(msg, "accepts 0 arg(s)") {
		return output.ErrUsage(msg)
	}

	return err
}
