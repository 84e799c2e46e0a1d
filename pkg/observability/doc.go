// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Infof("Listening on %s", addr)
//
// Context-aware logging:
//
//	logger.WithField("plugin_id", id).WithError(err).Error("Load failed")
//
// # Prometheus Metrics
//
// Metrics register against an injected registry so tests can use their own:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ObservePluginOperation("load", true, elapsed)
//
// # Health Checks
//
// The checker aggregates named dependency probes:
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddCheck("plugins", pluginCheck)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
// Initialize tracing and metric export:
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
