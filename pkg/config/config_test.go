package config

import (
	"os"
	"testing"
	"time"

	"github.com/platinummonkey/hub/pkg/observability"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{name: "true string", envValue: "true", want: true},
		{name: "one string", envValue: "1", want: true},
		{name: "false string", envValue: "false", defaultValue: true, want: false},
		{name: "unset uses default", envValue: "", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				t.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}

			if got := getEnvBool(key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION_VAR", "45s")
	if got := getEnvDuration("TEST_DURATION_VAR", time.Second); got != 45*time.Second {
		t.Errorf("getEnvDuration() = %v, want 45s", got)
	}

	t.Setenv("TEST_DURATION_VAR", "garbage")
	if got := getEnvDuration("TEST_DURATION_VAR", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() with bad value = %v, want default", got)
	}
}

// TestGetEnvList tests comma-separated list parsing
func TestGetEnvList(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     []string
	}{
		{name: "single value", envValue: "/a", want: []string{"/a"}},
		{name: "multiple values", envValue: "/a,/b", want: []string{"/a", "/b"}},
		{name: "trims spaces and empties", envValue: " /a , ,/b ", want: []string{"/a", "/b"}},
		{name: "unset uses default", envValue: "", want: []string{"/default"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_LIST_VAR"
			if tt.envValue != "" {
				t.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}

			got := getEnvList(key, []string{"/default"})
			if len(got) != len(tt.want) {
				t.Fatalf("getEnvList() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("getEnvList()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// TestParseLogLevel tests log level parsing
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  observability.LogLevel
	}{
		{"debug", observability.DebugLevel},
		{"info", observability.InfoLevel},
		{"warn", observability.WarnLevel},
		{"warning", observability.WarnLevel},
		{"error", observability.ErrorLevel},
		{"garbage", observability.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// TestLoadConfigDefaults tests loading configuration with no environment set
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Plugins.Mode != "standard" {
		t.Errorf("default mode = %v, want standard", cfg.Plugins.Mode)
	}
	if len(cfg.Plugins.Roots) != 1 || cfg.Plugins.Roots[0] != "./plugins" {
		t.Errorf("default roots = %v", cfg.Plugins.Roots)
	}
	if !cfg.Plugins.HotReload {
		t.Error("hot reload should default to enabled")
	}
	if cfg.Plugins.ReloadDebounce != 2*time.Second {
		t.Errorf("default debounce = %v, want 2s", cfg.Plugins.ReloadDebounce)
	}
}

// TestGateSet tests gate list to set conversion
func TestGateSet(t *testing.T) {
	p := PluginConfig{Gates: []string{"a", "b"}}
	set := p.GateSet()
	if !set["a"] || !set["b"] || set["c"] {
		t.Errorf("GateSet() = %v", set)
	}
}

// TestValidate tests configuration validation failures
func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080", HealthPort: "9090"},
			Plugins: PluginConfig{
				Roots:           []string{"./plugins"},
				Mode:            "standard",
				ReclaimAttempts: 3,
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing port", func(c *Config) { c.Server.Port = "" }},
		{"same ports", func(c *Config) { c.Server.HealthPort = "8080" }},
		{"no roots", func(c *Config) { c.Plugins.Roots = nil }},
		{"no mode", func(c *Config) { c.Plugins.Mode = "" }},
		{"bad reclaim attempts", func(c *Config) { c.Plugins.ReclaimAttempts = 0 }},
		{"bad rescan schedule", func(c *Config) { c.Plugins.RescanSchedule = "not a cron spec" }},
		{"otel enabled without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	// A parseable cron schedule passes.
	cfg := valid()
	cfg.Plugins.RescanSchedule = "@every 5m"
	if err := cfg.Validate(); err != nil {
		t.Errorf("cron schedule rejected: %v", err)
	}
}
