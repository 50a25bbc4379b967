package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/faultscope/pkg/patterns"
)

// Load reads and validates a configuration file.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg, err := Read(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Read parses a configuration file over the defaults and applies
// environment overrides without validating it. Callers that adjust the
// result must call Validate before use.
func Read(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Validate checks a configuration for errors and compiles the signature.
func Validate(cfg *Config) error {
	if len(cfg.LogSources) == 0 {
		return errors.New("log_sources: at least one log source is required")
	}

	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = DefaultSchemaVersion
	}

	if err := validateSignature(&cfg.Signature); err != nil {
		return fmt.Errorf("signature: %w", err)
	}

	if err := validateWindow(&cfg.Window); err != nil {
		return fmt.Errorf("window: %w", err)
	}

	if err := validateTable(cfg.TroubleshootingTable); err != nil {
		return fmt.Errorf("troubleshooting_table: %w", err)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateSignature(sig *SignatureConfig) error {
	if sig.Provider == "" {
		return errors.New("provider is required")
	}

	compiled, err := patterns.NewSignature(sig.Phrase)
	if err != nil {
		return fmt.Errorf("invalid phrase: %w", err)
	}
	sig.compiled = compiled

	return nil
}

// validateWindow checks the window bounds. Omitted fields already hold
// their defaults, so a non-positive value was set explicitly.
func validateWindow(w *WindowConfig) error {
	if w.PeriodMin <= 0 {
		return fmt.Errorf("period_min (%s) must be positive", w.PeriodMin)
	}
	if w.PeriodMax <= 0 {
		return fmt.Errorf("period_max (%s) must be positive", w.PeriodMax)
	}
	if w.MissLimit < 1 {
		return fmt.Errorf("miss_limit (%d) must be at least 1", w.MissLimit)
	}

	if w.PeriodMin%time.Second != 0 || w.PeriodMax%time.Second != 0 {
		return errors.New("period_min and period_max must be whole seconds")
	}
	if w.PeriodMin >= w.PeriodMax {
		return fmt.Errorf("period_min (%s) must be less than period_max (%s)", w.PeriodMin, w.PeriodMax)
	}
	if w.PeriodMax >= 24*time.Hour {
		return fmt.Errorf("period_max (%s) must be less than 24h", w.PeriodMax)
	}

	return nil
}

func validateTable(table map[string]string) error {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		m, ok := patterns.MatchErrorCode(k)
		if !ok || m.Token != k {
			return fmt.Errorf("key %q is not an error-code token (%sNHH)", k, patterns.ErrorCodePrefix)
		}
	}
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnFault, WebhookTriggerAlways, WebhookTriggerNever:
		default:
			return fmt.Errorf("invalid trigger %q (must be on_fault, always, or never)", wh.Trigger)
		}
	} else {
		wh.Trigger = WebhookTriggerOnFault
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}

	return s
}
