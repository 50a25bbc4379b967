// Package config provides configuration loading and validation for faultscope.
package config

import (
	"time"

	"github.com/ccollicutt/faultscope/pkg/patterns"
	"github.com/ccollicutt/faultscope/pkg/troubleshoot"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	LogSources    []string        `yaml:"log_sources"`
	SchemaVersion string          `yaml:"schema_version"`
	Signature     SignatureConfig `yaml:"signature"`
	Window        WindowConfig    `yaml:"window"`

	// TroubleshootingTable maps error-code tokens to descriptive text.
	// Leaving it out (or empty) marks the table as absent.
	TroubleshootingTable map[string]string `yaml:"troubleshooting_table,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// Table returns the troubleshooting table, or nil when none is configured.
func (c *Config) Table() *troubleshoot.Table {
	return troubleshoot.New(c.TroubleshootingTable)
}

// SignatureConfig defines the anchor fault signature.
type SignatureConfig struct {
	// Provider is the subsystem name an anchor event must come from.
	Provider string `yaml:"provider"`

	// Phrase is the literal fault text an anchor payload must contain.
	Phrase string `yaml:"phrase"`

	// compiled is populated during validation.
	compiled *patterns.Signature
}

// Compiled returns the compiled signature.
func (s *SignatureConfig) Compiled() *patterns.Signature {
	return s.compiled
}

// WindowConfig controls the backward-scan stop heuristic.
type WindowConfig struct {
	// PeriodMin is the distance from the reference below which events are
	// passed over without extraction.
	PeriodMin time.Duration `yaml:"period_min"`

	// PeriodMax is the distance from the reference beyond which the window closes.
	PeriodMax time.Duration `yaml:"period_max"`

	// MissLimit is how many consecutive events from other providers are
	// tolerated before the distance is checked.
	MissLimit int `yaml:"miss_limit"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnFault fires only when a fault episode was found (default).
	WebhookTriggerOnFault WebhookTrigger = "on_fault"
	// WebhookTriggerAlways fires after every scan.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending scan reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_fault" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
