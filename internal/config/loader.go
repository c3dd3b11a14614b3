package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/andukdahacker/classlite-sub004/internal/textsim"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. Unknown keys are rejected; an empty document yields
// the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing every failure. Call [ApplyDefaults] first; unset
// thresholds are validated at their default values.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxReviews < 0 {
		errs = append(errs, fmt.Errorf("server.max_reviews %d must not be negative", cfg.Server.MaxReviews))
	}
	for i, o := range cfg.Server.AllowedOrigins {
		if o == "" {
			errs = append(errs, fmt.Errorf("server.allowed_origins[%d] is empty", i))
		}
	}

	if err := cfg.Anchor.Thresholds().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("anchor: %w", err))
	}
	if _, err := textsim.MetricByName(cfg.Anchor.Metric); err != nil {
		errs = append(errs, fmt.Errorf("anchor.metric: %w", err))
	}

	if cfg.Highlight.Debounce < 0 {
		errs = append(errs, fmt.Errorf("highlight.debounce %s must not be negative", cfg.Highlight.Debounce))
	}
	if cfg.Highlight.TouchSuppression < 0 {
		errs = append(errs, fmt.Errorf("highlight.touch_suppression %s must not be negative", cfg.Highlight.TouchSuppression))
	}

	return errors.Join(errs...)
}
