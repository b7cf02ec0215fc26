package audit

import (
	"os"
	"testing"
)

func TestDefaultRetentionConfig(t *testing.T) {
	cfg := DefaultRetentionConfig()

	if cfg.RetentionDays != 90 {
		t.Errorf("expected RetentionDays 90, got %d", cfg.RetentionDays)
	}
	if !cfg.Enabled {
		t.Error("expected Enabled to be true")
	}
}

func TestRetentionConfigFromEnv(t *testing.T) {
	tests := []struct {
		name          string
		envs          map[string]string
		wantRetention int
		wantEnabled   bool
	}{
		{
			name:          "defaults",
			envs:          map[string]string{},
			wantRetention: 90,
			wantEnabled:   true,
		},
		{
			name: "custom values",
			envs: map[string]string{
				"TRUSTHUB_AUDIT_RETENTION_DAYS":    "30",
				"TRUSTHUB_AUDIT_RETENTION_ENABLED": "false",
			},
			wantRetention: 30,
			wantEnabled:   false,
		},
		{
			name: "invalid retention falls back to default",
			envs: map[string]string{
				"TRUSTHUB_AUDIT_RETENTION_DAYS": "invalid",
			},
			wantRetention: 90,
			wantEnabled:   true,
		},
		{
			name: "negative retention falls back to default",
			envs: map[string]string{
				"TRUSTHUB_AUDIT_RETENTION_DAYS": "-5",
			},
			wantRetention: 90,
			wantEnabled:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envs {
				os.Setenv(k, v)
			}
			defer func() {
				for k := range tt.envs {
					os.Unsetenv(k)
				}
			}()

			cfg := RetentionConfigFromEnv()
			if cfg.RetentionDays != tt.wantRetention {
				t.Errorf("RetentionDays = %d, want %d", cfg.RetentionDays, tt.wantRetention)
			}
			if cfg.Enabled != tt.wantEnabled {
				t.Errorf("Enabled = %v, want %v", cfg.Enabled, tt.wantEnabled)
			}
		})
	}
}
