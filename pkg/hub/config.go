package hub

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BootstrapSource is one source entry in the bootstrap file.
type BootstrapSource struct {
	Namespace        string         `yaml:"namespace"`
	SourceID         string         `yaml:"source_id"`
	Name             string         `yaml:"name"`
	Category         string         `yaml:"category"`
	TrustLevel       string         `yaml:"trust_level"`
	License          string         `yaml:"license"`
	Entrypoint       string         `yaml:"entrypoint"`
	UpdateFrequency  string         `yaml:"update_frequency"`
	FetchMethod      string         `yaml:"fetch_method"`
	ParserProfile    map[string]any `yaml:"parser_profile"`
	ValidatorProfile map[string]any `yaml:"validator_profile"`
	Enabled          *bool          `yaml:"enabled"`
	AllowedUseNotes  string         `yaml:"allowed_use_notes"`
	AccessMode       string         `yaml:"access_mode"`
}

// BootstrapConfig is the YAML file registering sources at startup.
type BootstrapConfig struct {
	Sources []BootstrapSource `yaml:"sources"`
}

// LoadBootstrapConfig reads and parses a bootstrap sources file.
func LoadBootstrapConfig(path string) (*BootstrapConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bootstrap config %s: %w", path, err)
	}
	var cfg BootstrapConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse bootstrap config %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyBootstrap registers every source in the config. Entries without a
// namespace land in the default namespace.
func (r *Repository) ApplyBootstrap(ctx context.Context, cfg *BootstrapConfig) error {
	for _, src := range cfg.Sources {
		ns := src.Namespace
		if ns == "" {
			ns = "default"
		}
		if src.SourceID == "" {
			return fmt.Errorf("bootstrap source missing source_id (entrypoint %q)", src.Entrypoint)
		}
		spec := SourceSpec{
			Name:             src.Name,
			Category:         src.Category,
			TrustLevel:       TrustLevel(src.TrustLevel),
			License:          src.License,
			Entrypoint:       src.Entrypoint,
			UpdateFrequency:  src.UpdateFrequency,
			FetchMethod:      src.FetchMethod,
			ParserProfile:    src.ParserProfile,
			ValidatorProfile: src.ValidatorProfile,
			Enabled:          src.Enabled,
			AllowedUseNotes:  src.AllowedUseNotes,
			AccessMode:       src.AccessMode,
		}
		if _, err := r.UpsertSource(ctx, ns, src.SourceID, spec); err != nil {
			return fmt.Errorf("bootstrap source %s/%s: %w", ns, src.SourceID, err)
		}
	}
	return nil
}
