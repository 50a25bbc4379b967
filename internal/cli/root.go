// Package cli provides the command-line interface for FaultScope.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ccollicutt/faultscope/internal/cli/commands"
)

// EnvPrefix prefixes environment variables that override global flags,
// e.g. FAULTSCOPE_LOG_LEVEL.
const EnvPrefix = "FAULTSCOPE"

// Execute runs the root command and returns the exit code.
func Execute() int {
	return ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the root command with args and returns the exit code.
func ExecuteArgs(args []string) int {
	commands.ExitCode = 0

	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors prevents Cobra from printing this itself
		_, _ = fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return 2
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	globals := &commands.GlobalOptions{}
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "faultscope",
		Short: "Extract the error codes behind a mass spectrometer fault",
		Long: `FaultScope scans exported instrument event logs for the most recent
"Device fault detected in  Mass Spectrometer" event and reports the
error codes raised in the minute before it.

Fault Set / Fault Cleared pairs are cancelled out so only unresolved
faults remain. The result is a flat feature bundle per log.

Global flags can also be set through FAULTSCOPE_LOG_LEVEL and
FAULTSCOPE_LOG_FORMAT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			globals.LogLevel = v.GetString("log-level")
			globals.LogFormat = v.GetString("log-format")
			return globals.InitLogger(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = globals.Logger().Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.String("log-format", "console", "Log format (console|json)")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	rootCmd.AddCommand(commands.NewAnalyzeCommand(globals))
	rootCmd.AddCommand(commands.NewDiagnoseCommand(globals))
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
