// Package config provides the configuration schema, loader, provider
// registry, and hot-reload watcher for the voice-command server.
package config

// LogLevel controls log verbosity for the server.
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

// Config is the root configuration structure for the server.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	AI      AIConfig      `yaml:"ai"`
	Store   StoreConfig   `yaml:"store"`
	Matcher MatcherConfig `yaml:"matcher"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// AIConfig declares the AI backends the pipeline delegates to. Primary is
// tried first; fallbacks follow in listed order, each behind its own circuit
// breaker.
type AIConfig struct {
	Primary   ProviderEntry   `yaml:"primary"`
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
	Breaker   BreakerSettings `yaml:"breaker"`
}

// ProviderEntry is the common configuration block shared by all AI backends.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered backend implementation (e.g., "gemini",
	// "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the backend's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default API endpoint.
	// Leave empty to use the built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the backend (e.g.,
	// "gemini-1.5-flash").
	Model string `yaml:"model"`

	// TimeoutSeconds bounds a single completion call. Zero uses the
	// backend's default.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// BreakerSettings tunes the per-backend circuit breakers. Zero values use the
// resilience package defaults.
type BreakerSettings struct {
	MaxFailures  int `yaml:"max_failures"`
	ResetSeconds int `yaml:"reset_seconds"`
	ProbeCalls   int `yaml:"probe_calls"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	// PostgresDSN is the connection string for the Postgres store. Empty
	// selects the in-memory store.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// MatcherConfig tunes the fuzzy matcher.
type MatcherConfig struct {
	// MaxDistance is the edit-distance ceiling for a fuzzy match.
	// Zero uses the matcher's default.
	MaxDistance int `yaml:"max_distance"`
}
