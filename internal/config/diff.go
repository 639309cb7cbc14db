package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// MatcherChanged is true when the fuzzy matcher tuning changed.
	MatcherChanged bool
	NewMaxDistance int

	// AIChanged is true when the primary backend, any fallback, or the
	// breaker settings changed. AI backends are rebuilt wholesale on change.
	AIChanged bool
}

// Any reports whether the diff contains any change at all.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.MatcherChanged || d.AIChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart: the listen
// address, TLS setup, and store backend require one.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Matcher.MaxDistance != new.Matcher.MaxDistance {
		d.MatcherChanged = true
		d.NewMaxDistance = new.Matcher.MaxDistance
	}

	if old.AI.Primary != new.AI.Primary ||
		old.AI.Breaker != new.AI.Breaker ||
		!slices.Equal(old.AI.Fallbacks, new.AI.Fallbacks) {
		d.AIChanged = true
	}

	return d
}
