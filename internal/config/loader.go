package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known AI backend names. Used by [Validate] to warn
// about unrecognised names.
var ValidProviderNames = []string{"gemini", "openai", "anthropic", "ollama"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
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

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// AI backends; warn for unknown names.
	validateProviderName("ai.primary", cfg.AI.Primary.Name)
	for i, e := range cfg.AI.Fallbacks {
		prefix := fmt.Sprintf("ai.fallbacks[%d]", i)
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		validateProviderName(prefix, e.Name)
	}
	if cfg.AI.Primary.Name == "" {
		slog.Warn("ai.primary is not configured; AI fallback, spelling correction, and clinical extraction will be unavailable")
	}
	if cfg.AI.Primary.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("ai.primary.timeout_seconds %d must not be negative", cfg.AI.Primary.TimeoutSeconds))
	}

	// Breaker knobs
	if b := cfg.AI.Breaker; b.MaxFailures < 0 || b.ResetSeconds < 0 || b.ProbeCalls < 0 {
		errs = append(errs, errors.New("ai.breaker values must not be negative"))
	}

	// Store availability
	if cfg.Store.PostgresDSN == "" {
		slog.Warn("store.postgres_dsn is empty; records will be kept in memory and lost on restart")
	}

	// Matcher
	if cfg.Matcher.MaxDistance < 0 {
		errs = append(errs, fmt.Errorf("matcher.max_distance %d must not be negative", cfg.Matcher.MaxDistance))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// [ValidProviderNames].
func validateProviderName(field, name string) {
	if name == "" {
		return
	}
	if slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown AI backend name, may be a typo or a third-party backend",
		"field", field,
		"name", name,
		"known", ValidProviderNames,
	)
}
