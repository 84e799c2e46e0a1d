// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	HUB_HOST="0.0.0.0"
//	HUB_PORT="8080"
//	HUB_HEALTH_PORT="9090"
//	HUB_READ_TIMEOUT="15s"
//	HUB_WRITE_TIMEOUT="15s"
//
// Plugin settings:
//
//	HUB_PLUGIN_DIRS="./plugins,/opt/hub/plugins"
//	HUB_LOAD_TIMEOUT="30s"
//	HUB_UNLOAD_TIMEOUT="10s"
//	HUB_HOT_RELOAD="true"
//	HUB_RELOAD_DEBOUNCE="2s"
//	HUB_GATES="experimental-greeters,beta-contracts"
//	HUB_MODE="standard"
//	HUB_RESCAN_SCHEDULE="@every 5m"
//
// Observability settings:
//
//	HUB_LOG_LEVEL="info"
//	HUB_METRICS_ENABLED="true"
//	HUB_OTEL_ENABLED="false"
//	HUB_OTEL_ENDPOINT="localhost:4317"
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatalf("invalid configuration: %v", err)
//	}
package config
