package config

import "testing"

func baseConfig() *Config {
	return &Config{
		Server: ServerConfig{ListenAddr: ":8080", LogLevel: LogInfo},
		AI: AIConfig{
			Primary:   ProviderEntry{Name: "gemini", APIKey: "k"},
			Fallbacks: []ProviderEntry{{Name: "ollama"}},
			Breaker:   BreakerSettings{MaxFailures: 5},
		},
		Matcher: MatcherConfig{MaxDistance: 3},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	if d := Diff(old, new); d.Any() {
		t.Errorf("diff = %+v, want no changes", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = LogDebug

	d := Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != LogDebug {
		t.Errorf("diff = %+v", d)
	}
	if d.MatcherChanged || d.AIChanged {
		t.Errorf("unrelated changes flagged: %+v", d)
	}
}

func TestDiff_Matcher(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Matcher.MaxDistance = 5

	d := Diff(old, new)
	if !d.MatcherChanged || d.NewMaxDistance != 5 {
		t.Errorf("diff = %+v", d)
	}
}

func TestDiff_AIChanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"primary model", func(c *Config) { c.AI.Primary.Model = "gemini-2.0" }},
		{"breaker knob", func(c *Config) { c.AI.Breaker.MaxFailures = 10 }},
		{"fallback added", func(c *Config) {
			c.AI.Fallbacks = append(c.AI.Fallbacks, ProviderEntry{Name: "openai"})
		}},
		{"fallback removed", func(c *Config) { c.AI.Fallbacks = nil }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			old, new := baseConfig(), baseConfig()
			tc.mutate(new)

			d := Diff(old, new)
			if !d.AIChanged {
				t.Errorf("diff = %+v, want AIChanged", d)
			}
		})
	}
}

func TestDiff_ListenAddrNotTracked(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Server.ListenAddr = ":9090"

	// Restarting the listener is not hot-reloadable.
	if d := Diff(old, new); d.Any() {
		t.Errorf("diff = %+v, want no hot-reloadable changes", d)
	}
}
