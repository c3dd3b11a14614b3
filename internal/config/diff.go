package config

import "slices"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// AnchorChanged is set when thresholds or the metric changed. Open
	// reviews are re-validated.
	AnchorChanged bool

	// HighlightChanged is set when debounce or touch timing changed. Only
	// reviews opened later pick it up.
	HighlightChanged bool

	// RestartRequired lists changed keys that only take effect on restart.
	RestartRequired []string
}

// Changed reports whether anything hot-reloadable changed.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.AnchorChanged || d.HighlightChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Anchor.Thresholds() != new.Anchor.Thresholds() || old.Anchor.Metric != new.Anchor.Metric {
		d.AnchorChanged = true
	}

	if old.Highlight != new.Highlight {
		d.HighlightChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if !slices.Equal(old.Server.AllowedOrigins, new.Server.AllowedOrigins) {
		d.RestartRequired = append(d.RestartRequired, "server.allowed_origins")
	}
	if old.Server.MaxReviews != new.Server.MaxReviews {
		d.RestartRequired = append(d.RestartRequired, "server.max_reviews")
	}

	return d
}
