package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/hub/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Plugin subsystem configuration
	Plugins PluginConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// PluginConfig holds plugin discovery and lifecycle configuration
type PluginConfig struct {
	// Roots are the directories scanned for plugin candidates.
	Roots []string

	LoadTimeout   time.Duration
	UnloadTimeout time.Duration

	// HotReload enables the filesystem watcher.
	HotReload      bool
	ReloadDebounce time.Duration

	// Gates is the set of satisfied feature gates, consumed by validation.
	Gates []string

	// Mode is the execution mode plugins are validated against.
	Mode string

	// RescanSchedule is a cron expression for the periodic discovery sweep.
	// Empty disables the sweep.
	RescanSchedule string

	// ReclaimAttempts bounds the collection retries after an unload.
	ReclaimAttempts int
}

// GateSet returns the gates as the lookup set validation consumes.
func (p PluginConfig) GateSet() map[string]bool {
	set := make(map[string]bool, len(p.Gates))
	for _, g := range p.Gates {
		set[g] = true
	}
	return set
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Plugins:       loadPluginConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("HUB_HOST", "0.0.0.0"),
		Port:            getEnv("HUB_PORT", "8080"),
		ReadTimeout:     getEnvDuration("HUB_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("HUB_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("HUB_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("HUB_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("HUB_HEALTH_PORT", "9090"),
	}
}

// loadPluginConfig loads plugin subsystem configuration from environment
func loadPluginConfig() PluginConfig {
	return PluginConfig{
		Roots:           getEnvList("HUB_PLUGIN_DIRS", []string{"./plugins"}),
		LoadTimeout:     getEnvDuration("HUB_LOAD_TIMEOUT", 30*time.Second),
		UnloadTimeout:   getEnvDuration("HUB_UNLOAD_TIMEOUT", 10*time.Second),
		HotReload:       getEnvBool("HUB_HOT_RELOAD", true),
		ReloadDebounce:  getEnvDuration("HUB_RELOAD_DEBOUNCE", 2*time.Second),
		Gates:           getEnvList("HUB_GATES", nil),
		Mode:            getEnv("HUB_MODE", "standard"),
		RescanSchedule:  getEnv("HUB_RESCAN_SCHEDULE", ""),
		ReclaimAttempts: getEnvInt("HUB_RECLAIM_ATTEMPTS", 3),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("HUB_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("HUB_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("HUB_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("HUB_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("HUB_OTEL_SERVICE_NAME", "hub"),
		OTelServiceVersion: getEnv("HUB_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("HUB_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if len(c.Plugins.Roots) == 0 {
		return fmt.Errorf("at least one plugin root directory is required")
	}
	if c.Plugins.Mode == "" {
		return fmt.Errorf("execution mode is required")
	}
	if c.Plugins.ReclaimAttempts <= 0 {
		return fmt.Errorf("reclaim attempts must be positive")
	}
	if c.Plugins.RescanSchedule != "" {
		if _, err := cron.ParseStandard(c.Plugins.RescanSchedule); err != nil {
			return fmt.Errorf("invalid rescan schedule %q: %w", c.Plugins.RescanSchedule, err)
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable as a slice
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
