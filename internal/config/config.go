// Package config provides the configuration schema, loader, file watcher and
// change detection for the classlite server.
package config

import (
	"time"

	"github.com/andukdahacker/classlite-sub004/internal/anchor"
	"github.com/andukdahacker/classlite-sub004/internal/highlight"
	"github.com/andukdahacker/classlite-sub004/internal/textsim"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr = ":8080"
	DefaultLogLevel   = LogInfo
)

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Anchor    AnchorConfig    `yaml:"anchor"`
	Highlight HighlightConfig `yaml:"highlight"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// AllowedOrigins are host patterns accepted for cross-origin websocket
	// connections, e.g. "review.example.com" or "*.example.com".
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxReviews makes /readyz fail once more reviews are open. Zero means
	// no limit.
	MaxReviews int `yaml:"max_reviews"`
}

// AnchorConfig tunes anchor validation. Thresholds are pointers so that an
// explicit 0 can be told apart from "not set".
type AnchorConfig struct {
	ValidThreshold   *float64 `yaml:"valid_threshold"`
	DriftedThreshold *float64 `yaml:"drifted_threshold"`

	// Metric names the similarity metric: "levenshtein" or "jaro-winkler".
	Metric string `yaml:"metric"`
}

// Thresholds returns the configured cut-offs, falling back to the defaults
// for unset values.
func (a AnchorConfig) Thresholds() anchor.Thresholds {
	t := anchor.DefaultThresholds()
	if a.ValidThreshold != nil {
		t.Valid = *a.ValidThreshold
	}
	if a.DriftedThreshold != nil {
		t.Drifted = *a.DriftedThreshold
	}
	return t
}

// HighlightConfig holds the highlight timing. Durations use Go syntax
// ("50ms", "0.4s").
type HighlightConfig struct {
	// Debounce is the hover debounce window. Applies to reviews opened after
	// a change.
	Debounce time.Duration `yaml:"debounce"`

	// TouchSuppression is how long pointer events are ignored after a tap.
	TouchSuppression time.Duration `yaml:"touch_suppression"`
}

// ApplyDefaults fills unset fields in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = DefaultLogLevel
	}
	if cfg.Anchor.ValidThreshold == nil {
		v := anchor.DefaultValidThreshold
		cfg.Anchor.ValidThreshold = &v
	}
	if cfg.Anchor.DriftedThreshold == nil {
		v := anchor.DefaultDriftedThreshold
		cfg.Anchor.DriftedThreshold = &v
	}
	if cfg.Anchor.Metric == "" {
		cfg.Anchor.Metric = textsim.MetricLevenshtein
	}
	if cfg.Highlight.Debounce == 0 {
		cfg.Highlight.Debounce = highlight.DefaultDelay
	}
	if cfg.Highlight.TouchSuppression == 0 {
		cfg.Highlight.TouchSuppression = highlight.DefaultTouchSuppression
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
