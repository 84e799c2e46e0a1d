package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/hub/pkg/api"
	"github.com/platinummonkey/hub/pkg/config"
	"github.com/platinummonkey/hub/pkg/contract"
	"github.com/platinummonkey/hub/pkg/lifecycle"
	"github.com/platinummonkey/hub/pkg/loader"
	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/plugins"
	"github.com/platinummonkey/hub/pkg/provider"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	plogger := newPluginLogger(cfg.Observability.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("OpenTelemetry initialization failed, continuing without it")
	}

	promRegistry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(promRegistry)
	}

	// One typed registry per contract. Greeter is the contract shipped with
	// the example plugins; Service accepts any plugin with lifecycle hooks.
	greeters := provider.NewRegistry[contract.Greeter]()
	if metrics != nil {
		greeters.AddChangeHandler(func(ev provider.ChangeEvent) {
			metrics.ProvidersRegistered.WithLabelValues(ev.Contract).Set(float64(greeters.Len()))
		})
	}

	manager := lifecycle.NewManager(lifecycle.Options{
		Discovery: plugins.NewDiscovery(cfg.Plugins.Roots, plogger),
		Validator: plugins.NewValidator(plogger),
		Loader:    loader.NewLoader(plogger),
		Bindings: []lifecycle.Binding{
			lifecycle.NewRegistryBinding[contract.Greeter](greeters),
		},
		Gates:           cfg.Plugins.GateSet(),
		Mode:            cfg.Plugins.Mode,
		LoadTimeout:     cfg.Plugins.LoadTimeout,
		UnloadTimeout:   cfg.Plugins.UnloadTimeout,
		ReclaimAttempts: cfg.Plugins.ReclaimAttempts,
		Log:             plogger,
	})
	if metrics != nil {
		manager.AddEventHandler(observeLifecycle(manager, metrics))
	}

	loadExistingPlugins(ctx, manager, logger)

	var watcher *lifecycle.Watcher
	if cfg.Plugins.HotReload {
		watcher, err = lifecycle.NewWatcher(manager, lifecycle.WatcherOptions{
			Roots:          cfg.Plugins.Roots,
			DebounceWindow: cfg.Plugins.ReloadDebounce,
			Log:            plogger,
		})
		if err != nil {
			logger.WithError(err).Error("Hot reload watcher unavailable")
		} else {
			go func() {
				defer observability.RecoverPanic(logger, "hot reload watcher")
				watcher.Run(ctx)
			}()
			logger.Infof("Hot reload enabled for %v", cfg.Plugins.Roots)
		}
	}

	var sweeper *cron.Cron
	if cfg.Plugins.RescanSchedule != "" {
		sweeper = cron.New()
		_, err := sweeper.AddFunc(cfg.Plugins.RescanSchedule, func() {
			rescan(ctx, manager, metrics, logger)
		})
		if err != nil {
			logger.WithError(err).Error("Rescan schedule rejected")
		} else {
			sweeper.Start()
			logger.Infof("Discovery sweep scheduled: %s", cfg.Plugins.RescanSchedule)
		}
	}

	// Main API server.
	var handler http.Handler = api.NewServer(manager, logger)
	if metrics != nil {
		handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	}
	if providers != nil {
		handler = otelhttp.NewHandler(handler, "hub-api")
	}
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics server on a separate port for probes.
	checker := observability.NewHealthChecker(cfg.Observability.OTelServiceVersion)
	checker.AddCheck("plugins", pluginHealthCheck(manager))
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, promRegistry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	go func() {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()
	go func() {
		logger.Infof("Hub daemon listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
			cancel()
		}
	}()

	sm := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	sm.RegisterShutdownFunc("background workers", func(sctx context.Context) error {
		cancel()
		if watcher != nil {
			watcher.Close()
		}
		if sweeper != nil {
			sweeper.Stop()
		}
		return healthServer.Shutdown(sctx)
	})
	sm.RegisterShutdownFunc("plugin manager", func(sctx context.Context) error {
		manager.Shutdown(sctx)
		return nil
	})
	sm.RegisterShutdownFunc("telemetry", func(sctx context.Context) error {
		return observability.ShutdownOTel(sctx, providers, logger)
	})

	if err := sm.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

// newPluginLogger builds the logrus logger the plugin subsystem uses.
func newPluginLogger(level observability.LogLevel) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	switch level {
	case observability.DebugLevel:
		l.SetLevel(logrus.DebugLevel)
	case observability.WarnLevel:
		l.SetLevel(logrus.WarnLevel)
	case observability.ErrorLevel:
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// loadExistingPlugins sweeps the configured roots once at startup and loads
// every candidate. Individual failures are logged and skipped.
func loadExistingPlugins(ctx context.Context, manager *lifecycle.Manager, logger *observability.Logger) {
	metas, err := manager.Discover(ctx)
	if err != nil {
		logger.WithError(err).Error("Startup discovery failed")
		return
	}

	var g errgroup.Group
	for _, meta := range metas {
		dir := filepath.Dir(meta.ModulePath)
		id := meta.ID
		g.Go(func() error {
			if res := manager.Load(ctx, dir); !res.Success {
				logger.WithField("plugin_id", id).WithField("error", res.Error).Warn("Startup load failed")
			}
			return nil
		})
	}
	g.Wait()
	logger.Infof("Startup sweep complete, %d plugins loaded", len(manager.ListLoaded()))
}

// rescan runs the periodic discovery sweep and loads any new candidates.
func rescan(ctx context.Context, manager *lifecycle.Manager, metrics *observability.Metrics, logger *observability.Logger) {
	start := time.Now()
	metas, err := manager.Discover(ctx)
	if err != nil {
		if metrics != nil {
			metrics.DiscoveryScansTotal.WithLabelValues("failure").Inc()
		}
		logger.WithError(err).Warn("Discovery sweep failed")
		return
	}
	if metrics != nil {
		metrics.DiscoveryScansTotal.WithLabelValues("success").Inc()
		metrics.DiscoveryScanDuration.Observe(time.Since(start).Seconds())
		metrics.DiscoveryCandidates.Set(float64(len(metas)))
	}

	for _, meta := range metas {
		if _, loaded := manager.Get(meta.ID); loaded {
			continue
		}
		dir := filepath.Dir(meta.ModulePath)
		if res := manager.Load(ctx, dir); !res.Success {
			logger.WithField("plugin_id", meta.ID).WithField("error", res.Error).Warn("Sweep load failed")
		}
	}
}

// observeLifecycle feeds lifecycle events into the metrics registry.
func observeLifecycle(manager *lifecycle.Manager, metrics *observability.Metrics) lifecycle.EventHandler {
	return func(ev lifecycle.Event) {
		metrics.ObservePluginOperation(string(ev.Result.Kind), ev.Result.Success, ev.Result.Elapsed)
		metrics.PluginsLoaded.Set(float64(len(manager.ListLoaded())))
		metrics.PluginsQuarantined.Set(float64(len(manager.Quarantined())))

		switch ev.Type {
		case lifecycle.EventQuarantined:
			metrics.ReclamationFailuresTotal.Inc()
		case lifecycle.EventReloaded:
			metrics.HotReloadsTotal.WithLabelValues("success").Inc()
		case lifecycle.EventLoadFailed:
			if len(ev.Result.ValidationErrors) > 0 {
				metrics.ValidationFailuresTotal.WithLabelValues(ev.PluginID).Inc()
			}
		}
	}
}

// pluginHealthCheck reports degraded when any plugin id is quarantined and
// unhealthy when nothing is running.
func pluginHealthCheck(manager *lifecycle.Manager) observability.CheckFunc {
	return func(ctx context.Context) observability.DependencyStatus {
		status := observability.DependencyStatus{
			Status:    observability.StatusHealthy,
			Timestamp: time.Now(),
		}
		if len(manager.Quarantined()) > 0 {
			status.Status = observability.StatusDegraded
			status.Message = "one or more plugins are quarantined"
		}
		return status
	}
}
