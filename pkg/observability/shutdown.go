package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc tears down one subsystem. It must honor the context deadline.
type ShutdownFunc func(context.Context) error

type shutdownStage struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager drains the HTTP server and runs registered teardown stages
// in registration order once a termination signal arrives. Ordering matters:
// stages that stop producing work are registered before the stages that flush
// what was produced.
type ShutdownManager struct {
	logger  *Logger
	server  *http.Server
	timeout time.Duration

	mu     sync.Mutex
	stages []shutdownStage
}

// NewShutdownManager creates a shutdown manager. A zero timeout defaults to
// 30 seconds.
func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:  logger,
		server:  server,
		timeout: timeout,
	}
}

// RegisterShutdownFunc appends a named teardown stage. Stages run in the
// order they were registered.
func (sm *ShutdownManager) RegisterShutdownFunc(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	sm.stages = append(sm.stages, shutdownStage{name: name, fn: fn})
	sm.mu.Unlock()
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then performs the teardown
// under a single deadline. All stage failures are joined into the returned
// error; a later stage still runs when an earlier one fails.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	signal.Stop(sigs)

	sm.logger.WithField("signal", sig.String()).Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()
	return sm.run(ctx)
}

func (sm *ShutdownManager) run(ctx context.Context) error {
	var errs []error

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("HTTP server drain failed")
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	sm.mu.Lock()
	stages := append([]shutdownStage(nil), sm.stages...)
	sm.mu.Unlock()

	for _, stage := range stages {
		if ctx.Err() != nil {
			sm.logger.WithField("stage", stage.name).Warn("Shutdown deadline reached, skipping remaining stages")
			errs = append(errs, fmt.Errorf("deadline reached before stage %s", stage.name))
			break
		}
		if err := stage.fn(ctx); err != nil {
			sm.logger.WithError(err).WithField("stage", stage.name).Error("Shutdown stage failed")
			errs = append(errs, fmt.Errorf("stage %s: %w", stage.name, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	sm.logger.Info("Shutdown complete")
	return nil
}
