package commands

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/faultscope/pkg/analyzer"
	"github.com/ccollicutt/faultscope/pkg/config"
	"github.com/ccollicutt/faultscope/pkg/output"
	"github.com/ccollicutt/faultscope/pkg/parser"
	"github.com/ccollicutt/faultscope/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	Output  string
	Sources []string
	Strict  bool
	Verbose bool
	Quiet   bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(g *GlobalOptions) *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <config-file>",
		Short: "Correlate the error codes leading up to the last instrument fault",
		Long: `Scan exported event logs for the most recent instrument fault and
collect the error codes raised shortly before it.

Each matched log file is scanned independently. Fault set/cleared pairs
are cancelled out; what remains is reported as a flat feature bundle.

Exit codes:
  0 - No anchor fault found
  1 - Fault episode found
  2 - Configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts, g)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringSliceVarP(&opts.Sources, "source", "s", nil, "Log file or glob to scan instead of log_sources (can be repeated)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Fail on the first malformed record instead of skipping it")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Include scan statistics")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnFault), "When to fire webhook (on_fault|always|never)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions, g *GlobalOptions) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := g.Logger()

	cfg, err := config.Read(ctx, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	// --source replaces log_sources before validation, so the config file
	// may leave log_sources out.
	if len(opts.Sources) > 0 {
		cfg.LogSources = opts.Sources
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("loading config: validating config: %w", err)
	}

	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		return fmt.Errorf("expanding log sources: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no log files matched patterns: %v", cfg.LogSources)
	}

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	a, err := analyzer.NewAnalyzer(cfg,
		analyzer.WithStrict(opts.Strict),
		analyzer.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}

	reports, err := scanFiles(ctx, a, files, cfg.SchemaVersion, configPath, logger)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, report := range reports {
		if err := formatter.Format(ctx, report, w); err != nil {
			return fmt.Errorf("formatting output: %w", err)
		}
	}

	// Webhook failures are logged but don't fail the analysis.
	if hooks := collectWebhooks(cfg, opts); len(hooks) > 0 {
		client := webhook.NewClient(webhook.WithLogger(logger))
		for _, report := range reports {
			client.Dispatch(ctx, report, hooks)
		}
	}

	for _, report := range reports {
		if report.HasFault() {
			ExitCode = 1
			break
		}
	}

	return nil
}

// scanFiles runs one independent scan per file concurrently and returns the
// reports in file order.
func scanFiles(ctx context.Context, a *analyzer.Analyzer, files []string, version, configPath string, logger *zap.Logger) ([]*output.Report, error) {
	reports := make([]*output.Report, len(files))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i, file := range files {
		i, file := i, file
		eg.Go(func() error {
			source := parser.NewFileSource([]string{file})
			defer source.Close()

			result, err := a.Analyze(egCtx, source)
			if err != nil {
				return fmt.Errorf("analyzing %s: %w", file, err)
			}
			if result.Source == "" {
				result.Source = file
			}

			logger.Debug("scan complete",
				zap.String("source", file),
				zap.Bool("anchor", result.Terminal.HasAnchor()),
				zap.Int("open_errors", len(result.Terminal.Entries)),
				zap.Int("skipped", result.RecordsSkipped))

			reports[i] = output.NewReport(result, version, configPath)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// collectWebhooks merges config file webhooks with CLI webhook.
func collectWebhooks(cfg *config.Config, opts *AnalyzeOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnFault
		}

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}
