package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/faultscope/pkg/config"
	"github.com/ccollicutt/faultscope/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a FaultScope configuration file without scanning any logs.

Checks:
  - YAML syntax
  - Required fields
  - Window bounds
  - Troubleshooting table keys
  - Webhook endpoints
  - Log source file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Log sources:    %d pattern(s)\n", len(cfg.LogSources))
	fmt.Fprintf(w, "  Schema version: %s\n", cfg.SchemaVersion)
	fmt.Fprintf(w, "  Signature:      %q from %s\n", cfg.Signature.Phrase, cfg.Signature.Provider)
	fmt.Fprintf(w, "  Window:         %s < distance <= %s, miss limit %d\n",
		cfg.Window.PeriodMin, cfg.Window.PeriodMax, cfg.Window.MissLimit)

	if table := cfg.Table(); table.Present() {
		fmt.Fprintf(w, "  Troubleshooting table: %d entries\n", table.Len())
		keys := make([]string, 0, table.Len())
		for k := range cfg.TroubleshootingTable {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "    %s: %s\n", k, cfg.TroubleshootingTable[k])
		}
	} else {
		fmt.Fprintf(w, "  Troubleshooting table: none (reports will carry a warning)\n")
	}

	if len(cfg.Webhooks) > 0 {
		fmt.Fprintf(w, "  Webhooks:       %d\n", len(cfg.Webhooks))
	}

	// Check if log sources exist (warnings only)
	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		fmt.Fprintf(w, "\nWarning: Error expanding log source patterns: %v\n", err)
	} else if len(files) == 0 {
		fmt.Fprintf(w, "\nWarning: No files match log source patterns\n")
	} else {
		fmt.Fprintf(w, "\nLog files matched: %d\n", len(files))
		for _, f := range files {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}

	return nil
}
