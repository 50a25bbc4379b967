package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/faultscope/pkg/analyzer"
	"github.com/ccollicutt/faultscope/pkg/config"
	"github.com/ccollicutt/faultscope/pkg/parser"
)

// parseSampleSize is how many records the parse-rate check reads.
const parseSampleSize = 50

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// Diagnostic statuses.
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusError   = "error"
)

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand(g *GlobalOptions) *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration and log issues",
		Long: `Diagnose common configuration and log issues.

This command checks:
- Config file syntax and structure
- Log source file existence and accessibility
- Whether exported records parse as events
- Whether the anchor fault signature occurs in the logs
- Troubleshooting table and webhook settings

Example:
  faultscope diagnose config.yaml
  faultscope diagnose -v config.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			results := runDiagnose(ctx, args[0], opts, g.Logger())
			printDiagnostics(cmd.OutOrStdout(), results, opts)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, configPath string, opts *DiagnoseOptions, logger *zap.Logger) []DiagnosticResult {
	results := []DiagnosticResult{}

	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == StatusError {
		return results
	}

	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == StatusError {
		return results
	}

	results = append(results, checkLogSources(cfg)...)

	files, _ := parser.ExpandGlobs(cfg.LogSources)
	if len(files) > 0 {
		// Only the first matching file is sampled.
		results = append(results, checkRecordParsing(ctx, files[0], opts))
		results = append(results, checkSignature(ctx, cfg, files[0], logger))
	}

	results = append(results, checkTable(cfg, opts))
	results = append(results, checkWebhooks(ctx, cfg, opts)...)

	return results
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{"Check the file path is correct"}
		return result
	}
	if err != nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = StatusError
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = StatusError
		result.Message = "Config file is empty"
		result.Suggests = []string{"At minimum, list the exported logs under log_sources"}
		return result
	}

	result.Status = StatusOK
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
				"Quote error-code keys in troubleshooting_table, e.g. \"0x20001011\"",
			}
		}
		return nil, result
	}

	result.Status = StatusOK
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Log sources: %d", len(cfg.LogSources)),
		fmt.Sprintf("Provider: %s", cfg.Signature.Provider),
		fmt.Sprintf("Window: %s..%s, miss limit %d", cfg.Window.PeriodMin, cfg.Window.PeriodMax, cfg.Window.MissLimit),
	}
	return cfg, result
}

func checkLogSources(cfg *config.Config) []DiagnosticResult {
	results := []DiagnosticResult{}

	totalFiles := 0
	for _, source := range cfg.LogSources {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Log Source: %s", source),
		}

		if strings.ContainsAny(source, "*?[") {
			matches, err := filepath.Glob(source)
			switch {
			case err != nil:
				result.Status = StatusError
				result.Message = fmt.Sprintf("Invalid glob pattern: %v", err)
			case len(matches) == 0:
				result.Status = StatusWarning
				result.Message = "Glob pattern matches no files"
				result.Suggests = []string{
					"Check if the exported logs exist at this path",
					"Verify the glob pattern syntax",
				}
			default:
				result.Status = StatusOK
				result.Message = fmt.Sprintf("Matches %d file(s)", len(matches))
				result.Details = append(result.Details, matches...)
				totalFiles += len(matches)
			}
			results = append(results, result)
			continue
		}

		info, err := os.Stat(source)
		switch {
		case os.IsNotExist(err):
			result.Status = StatusError
			result.Message = "File does not exist"
			result.Suggests = []string{"Check if the log file path is correct"}
		case err != nil:
			result.Status = StatusError
			result.Message = fmt.Sprintf("Cannot access file: %v", err)
			result.Suggests = []string{"Check file permissions"}
		case info.IsDir():
			result.Status = StatusError
			result.Message = "Path is a directory, not a file"
			result.Suggests = []string{
				"Use a glob pattern to match files in directory",
				"Example: /data/exports/*.xml",
			}
		case info.Size() == 0:
			result.Status = StatusWarning
			result.Message = "File is empty (0 bytes)"
		default:
			result.Status = StatusOK
			result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
			totalFiles++
		}
		results = append(results, result)
	}

	if totalFiles == 0 {
		results = append(results, DiagnosticResult{
			Check:    "Log Files Summary",
			Status:   StatusError,
			Message:  "No accessible log files found",
			Suggests: []string{"Ensure at least one exported log exists and is readable"},
		})
	}

	return results
}

// checkRecordParsing reads the first records of file and reports how many
// parse as events.
func checkRecordParsing(ctx context.Context, file string, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Record Parsing: %s", filepath.Base(file)),
	}

	source := parser.NewFileSource([]string{file})
	defer source.Close()

	total, parsed := 0, 0
	var firstFailure string
	var providers []string
	seen := make(map[string]bool)

	for total < parseSampleSize {
		rec, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Status = StatusError
			result.Message = fmt.Sprintf("Cannot read records: %v", err)
			result.Suggests = []string{"Export the log as XML event records"}
			return result
		}
		total++

		ev, err := parser.Parse(rec)
		if err != nil {
			if firstFailure == "" {
				firstFailure = fmt.Sprintf("record %d: %v", rec.Index, err)
			}
			continue
		}
		parsed++
		if !seen[ev.Provider] {
			seen[ev.Provider] = true
			providers = append(providers, ev.Provider)
		}
	}

	switch {
	case total == 0:
		result.Status = StatusError
		result.Message = "No event records found"
		result.Suggests = []string{"Check the file is an XML event log export"}
	case parsed == 0:
		result.Status = StatusError
		result.Message = fmt.Sprintf("None of %d sampled records parsed", total)
		result.Details = []string{firstFailure}
	case parsed < total:
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("%d/%d sampled records parsed", parsed, total)
		result.Details = []string{firstFailure}
		result.Suggests = []string{"Malformed records are skipped during analysis unless --strict is set"}
	default:
		result.Status = StatusOK
		result.Message = fmt.Sprintf("%d/%d sampled records parsed", parsed, total)
		if opts.Verbose {
			result.Details = []string{"Providers: " + strings.Join(providers, ", ")}
		}
	}

	return result
}

// checkSignature scans file and reports whether the anchor fault occurs.
func checkSignature(ctx context.Context, cfg *config.Config, file string, logger *zap.Logger) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Anchor Signature: %s", filepath.Base(file)),
	}

	a, err := analyzer.NewAnalyzer(cfg, analyzer.WithLogger(logger))
	if err != nil {
		result.Status = StatusError
		result.Message = err.Error()
		return result
	}

	source := parser.NewFileSource([]string{file})
	defer source.Close()

	scan, err := a.Analyze(ctx, source)
	if err != nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Scan failed: %v", err)
		return result
	}

	if !scan.Terminal.HasAnchor() {
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("No %q event from %s found", cfg.Signature.Phrase, cfg.Signature.Provider)
		result.Suggests = []string{
			"The log may not contain a fault episode",
			"Check signature.provider and signature.phrase (spacing matters)",
		}
		return result
	}

	result.Status = StatusOK
	result.Message = fmt.Sprintf("Most recent anchor at %s on %s",
		scan.Terminal.Anchor.TimeCreated, scan.Terminal.Anchor.Computer)
	result.Details = []string{
		fmt.Sprintf("Open errors: %d", len(scan.Terminal.Entries)),
		fmt.Sprintf("Records scanned: %d of %d", scan.RecordsScanned, scan.RecordsRead),
	}
	return result
}

func checkTable(cfg *config.Config, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{Check: "Troubleshooting Table"}

	table := cfg.Table()
	if !table.Present() {
		result.Status = StatusWarning
		result.Message = "No troubleshooting table configured"
		result.Suggests = []string{
			"API and VPS fault pairs cannot be resolved without it",
			"Add a troubleshooting_table section mapping error codes to text",
		}
		return result
	}

	result.Status = StatusOK
	result.Message = fmt.Sprintf("%d entries", table.Len())
	if opts.Verbose {
		for k, v := range cfg.TroubleshootingTable {
			result.Details = append(result.Details, fmt.Sprintf("%s: %s", k, v))
		}
	}
	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== FaultScope Diagnostics ===")
	fmt.Fprintln(w)

	okCount, warnCount, errCount := 0, 0, 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case StatusOK:
			icon = "PASS"
			okCount++
		case StatusWarning:
			icon = "WARN"
			warnCount++
		case StatusError:
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != StatusOK {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	switch {
	case errCount > 0:
		fmt.Fprintln(w, "\nFix the errors above before running analysis.")
	case warnCount > 0:
		fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	default:
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

func checkWebhooks(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  StatusOK,
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		issues := []string{}
		warnings := []string{}

		// Check URL
		if wh.URL == "" {
			issues = append(issues, "Missing url")
		} else {
			u, err := url.Parse(wh.URL)
			if err != nil {
				issues = append(issues, fmt.Sprintf("Invalid URL: %v", err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				issues = append(issues, fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme))
			} else if u.Host == "" {
				issues = append(issues, "URL must have a host")
			}
		}

		// Check trigger
		if wh.Trigger != "" {
			switch wh.Trigger {
			case config.WebhookTriggerOnFault, config.WebhookTriggerAlways, config.WebhookTriggerNever:
				// Valid
			default:
				issues = append(issues, fmt.Sprintf("Invalid trigger %q (use on_fault, always, or never)", wh.Trigger))
			}
		}

		if wh.Token != "" && strings.HasPrefix(wh.URL, "http://") {
			warnings = append(warnings, "Bearer token is sent over plain http")
		}

		if len(issues) > 0 {
			result.Status = StatusError
			result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
			result.Details = issues
		} else if len(warnings) > 0 {
			result.Status = StatusWarning
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			result.Status = StatusOK
			trigger := wh.Trigger
			if trigger == "" {
				trigger = config.WebhookTriggerOnFault
			}
			result.Message = fmt.Sprintf("Trigger: %s", trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			if wh.URL == "" {
				continue
			}

			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(ctx, wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(ctx context.Context, wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = StatusOK
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}
