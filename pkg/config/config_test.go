package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ccollicutt/faultscope/pkg/patterns"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
log_sources:
  - /data/logs/*.xml
schema_version: "1.1.0"
signature:
  provider: Analyst
  phrase: "Device fault detected in  Mass Spectrometer"
window:
  period_min: 3s
  period_max: 45s
  miss_limit: 4
troubleshooting_table:
  "0x20001011": "Fault Cleared: Pump stalled"
  "0x20001310": "Fault Cleared: Vacuum low"
`
	path := writeTempFile(t, "config.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if diff := cmp.Diff([]string{"/data/logs/*.xml"}, cfg.LogSources); diff != "" {
		t.Errorf("LogSources mismatch (-want +got):\n%s", diff)
	}
	if cfg.SchemaVersion != "1.1.0" {
		t.Errorf("SchemaVersion = %q, want 1.1.0", cfg.SchemaVersion)
	}
	if cfg.Window.PeriodMin != 3*time.Second || cfg.Window.PeriodMax != 45*time.Second {
		t.Errorf("Window = %+v", cfg.Window)
	}
	if cfg.Window.MissLimit != 4 {
		t.Errorf("MissLimit = %d, want 4", cfg.Window.MissLimit)
	}
	if cfg.Signature.Compiled() == nil {
		t.Fatal("Signature not compiled")
	}
	if cfg.Signature.Compiled().Phrase() != patterns.DefaultSignaturePhrase {
		t.Errorf("Phrase = %q", cfg.Signature.Compiled().Phrase())
	}

	tbl := cfg.Table()
	if !tbl.Present() || tbl.Len() != 2 {
		t.Fatalf("Table() present=%v len=%d, want 2 entries", tbl.Present(), tbl.Len())
	}
	if text, _ := tbl.Lookup("0x20001310"); text != "Fault Cleared: Vacuum low" {
		t.Errorf("Lookup() = %q", text)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeTempFile(t, "config.yaml", "log_sources: [events.xml]\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SchemaVersion != DefaultSchemaVersion {
		t.Errorf("SchemaVersion = %q", cfg.SchemaVersion)
	}
	if cfg.Signature.Provider != DefaultProvider {
		t.Errorf("Provider = %q", cfg.Signature.Provider)
	}
	want := WindowConfig{PeriodMin: DefaultPeriodMin, PeriodMax: DefaultPeriodMax, MissLimit: DefaultMissLimit}
	if cfg.Window != want {
		t.Errorf("Window = %+v, want %+v", cfg.Window, want)
	}
	if cfg.Table().Present() {
		t.Error("Table() present without troubleshooting_table")
	}
}

func TestLoad_ExplicitWindowValues(t *testing.T) {
	tests := []struct {
		name    string
		window  string
		wantErr string
	}{
		{"zero period_min", "window:\n  period_min: 0s\n", "period_min (0s) must be positive"},
		{"negative period_min", "window:\n  period_min: -5s\n", "period_min (-5s) must be positive"},
		{"zero miss_limit", "window:\n  miss_limit: 0\n", "miss_limit (0) must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, "config.yaml", "log_sources: [events.xml]\n"+tt.window)
			_, err := Load(context.Background(), path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	path := writeTempFile(t, "config.yaml", "log_sources: [events.xml]\nwindow:\n  period_max: 30s\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := WindowConfig{PeriodMin: DefaultPeriodMin, PeriodMax: 30 * time.Second, MissLimit: DefaultMissLimit}
	if cfg.Window != want {
		t.Errorf("Window = %+v, want %+v", cfg.Window, want)
	}
}

func TestRead_DoesNotValidate(t *testing.T) {
	path := writeTempFile(t, "config.yaml", "signature:\n  provider: Analyst\n")
	cfg, err := Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(cfg.LogSources) != 0 {
		t.Errorf("LogSources = %v, want none", cfg.LogSources)
	}
	if cfg.Signature.Compiled() != nil {
		t.Error("Read() should not compile the signature")
	}

	cfg.LogSources = []string{"events.xml"}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(context.Background(), "/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "invalid.yaml", `invalid: yaml: content: [`)
	_, err := Load(context.Background(), path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvLogSources, "a.xml, b/*.xml,")
	t.Setenv(EnvProvider, "Acquisition")

	path := writeTempFile(t, "config.yaml", "log_sources: [ignored.xml]\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if diff := cmp.Diff([]string{"a.xml", "b/*.xml"}, cfg.LogSources); diff != "" {
		t.Errorf("LogSources mismatch (-want +got):\n%s", diff)
	}
	if cfg.Signature.Provider != "Acquisition" {
		t.Errorf("Provider = %q, want Acquisition", cfg.Signature.Provider)
	}
}

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.LogSources = []string{"/data/logs/*.xml"}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no log sources", func(c *Config) { c.LogSources = nil }, true},
		{"no provider", func(c *Config) { c.Signature.Provider = "" }, true},
		{"no phrase", func(c *Config) { c.Signature.Phrase = "" }, true},
		{"min not below max", func(c *Config) { c.Window.PeriodMin = time.Minute }, true},
		{"max a day", func(c *Config) { c.Window.PeriodMax = 24 * time.Hour }, true},
		{"fractional seconds", func(c *Config) { c.Window.PeriodMin = 1500 * time.Millisecond }, true},
		{"zero min", func(c *Config) { c.Window.PeriodMin = 0 }, true},
		{"negative min", func(c *Config) { c.Window.PeriodMin = -time.Second }, true},
		{"zero max", func(c *Config) { c.Window.PeriodMax = 0 }, true},
		{"zero miss limit", func(c *Config) { c.Window.MissLimit = 0 }, true},
		{"valid table", func(c *Config) {
			c.TroubleshootingTable = map[string]string{"0x200010ab": "x"}
		}, false},
		{"bad table key", func(c *Config) {
			c.TroubleshootingTable = map[string]string{"E-1001": "x"}
		}, true},
		{"table key with suffix", func(c *Config) {
			c.TroubleshootingTable = map[string]string{"0x200010abc": "x"}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_SchemaVersionDefault(t *testing.T) {
	cfg := validConfig()
	cfg.SchemaVersion = ""

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.SchemaVersion != DefaultSchemaVersion {
		t.Errorf("SchemaVersion = %q", cfg.SchemaVersion)
	}
}

func TestValidate_Webhook(t *testing.T) {
	tests := []struct {
		name    string
		webhook WebhookConfig
		wantErr bool
	}{
		{"https", WebhookConfig{URL: "https://example.com/hook"}, false},
		{"http", WebhookConfig{URL: "http://localhost:8080/hook"}, false},
		{"missing url", WebhookConfig{Name: "x"}, true},
		{"bad scheme", WebhookConfig{URL: "ftp://example.com/hook"}, true},
		{"no host", WebhookConfig{URL: "https:///hook"}, true},
		{"bad trigger", WebhookConfig{URL: "https://example.com", Trigger: "sometimes"}, true},
		{"always", WebhookConfig{URL: "https://example.com", Trigger: WebhookTriggerAlways}, false},
		{"never", WebhookConfig{URL: "https://example.com", Trigger: WebhookTriggerNever}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Webhooks = []WebhookConfig{tt.webhook}
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_WebhookDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Webhooks = []WebhookConfig{{URL: "https://example.com/hook"}}

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Webhooks[0].Trigger != WebhookTriggerOnFault {
		t.Errorf("Trigger = %q, want %q", cfg.Webhooks[0].Trigger, WebhookTriggerOnFault)
	}
	if cfg.Webhooks[0].Timeout != DefaultWebhookTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Webhooks[0].Timeout, DefaultWebhookTimeout)
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("TEST_WEBHOOK_TOKEN", "secret-value")

	tests := []struct {
		input string
		want  string
	}{
		{"${TEST_WEBHOOK_TOKEN}", "secret-value"},
		{"$TEST_WEBHOOK_TOKEN", "secret-value"},
		{"plain-value", "plain-value"},
		{"", ""},
		{"${NONEXISTENT_VAR}", ""},
	}

	for _, tt := range tests {
		got := expandEnvVar(tt.input)
		if got != tt.want {
			t.Errorf("expandEnvVar(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoad_WithWebhooks(t *testing.T) {
	t.Setenv("LIMS_TOKEN", "abc")
	content := `
log_sources: [events.xml]
webhooks:
  - name: lims
    url: "https://lims.example.com/hook"
    token: ${LIMS_TOKEN}
    trigger: always
    timeout: 30s
  - url: "https://backup.example.com/hook"
`
	path := writeTempFile(t, "config-with-webhooks.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Webhooks) != 2 {
		t.Fatalf("Webhooks = %d, want 2", len(cfg.Webhooks))
	}
	if cfg.Webhooks[0].Token != "abc" {
		t.Errorf("Token = %q, want abc", cfg.Webhooks[0].Token)
	}
	if cfg.Webhooks[0].Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Webhooks[0].Timeout)
	}
	if cfg.Webhooks[1].Trigger != WebhookTriggerOnFault {
		t.Errorf("Trigger = %q, want default", cfg.Webhooks[1].Trigger)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}
	if cfg.Signature.Phrase == "" {
		t.Error("DefaultConfig() has empty signature phrase")
	}
	if cfg.Window.PeriodMax == 0 {
		t.Error("DefaultConfig() has zero period_max")
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}
