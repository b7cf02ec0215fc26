// Package audit provides retention housekeeping for the hub's append-only
// audit trail.
package audit

import (
	"os"
	"strconv"
)

// RetentionConfig controls audit retention behavior.
type RetentionConfig struct {
	RetentionDays int  // Default 90
	Enabled       bool // Whether the retention worker runs
}

// DefaultRetentionConfig returns the default configuration.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		RetentionDays: 90,
		Enabled:       true,
	}
}

// RetentionConfigFromEnv loads config from environment variables.
// TRUSTHUB_AUDIT_RETENTION_DAYS, TRUSTHUB_AUDIT_RETENTION_ENABLED
func RetentionConfigFromEnv() *RetentionConfig {
	cfg := DefaultRetentionConfig()

	if v := os.Getenv("TRUSTHUB_AUDIT_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}

	if v := os.Getenv("TRUSTHUB_AUDIT_RETENTION_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}

	return cfg
}
