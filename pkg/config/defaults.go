package config

import (
	"os"
	"strings"
	"time"

	"github.com/ccollicutt/faultscope/pkg/patterns"
)

// Default values for configuration.
const (
	DefaultSchemaVersion  = "1.0.0"
	DefaultProvider       = "Analyst"
	DefaultPeriodMin      = 5 * time.Second
	DefaultPeriodMax      = 60 * time.Second
	DefaultMissLimit      = 10
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvLogSources = "FAULTSCOPE_LOG_SOURCES"
	EnvProvider   = "FAULTSCOPE_PROVIDER"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogSources:    []string{},
		SchemaVersion: DefaultSchemaVersion,
		Signature: SignatureConfig{
			Provider: DefaultProvider,
			Phrase:   patterns.DefaultSignaturePhrase,
		},
		Window: WindowConfig{
			PeriodMin: DefaultPeriodMin,
			PeriodMax: DefaultPeriodMax,
			MissLimit: DefaultMissLimit,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if sources := os.Getenv(EnvLogSources); sources != "" {
		c.LogSources = c.LogSources[:0]
		for _, s := range strings.Split(sources, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.LogSources = append(c.LogSources, s)
			}
		}
	}

	if provider := os.Getenv(EnvProvider); provider != "" {
		c.Signature.Provider = provider
	}
}
