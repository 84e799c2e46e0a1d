package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/platinummonkey/hub/pkg/plugins"
)

// SharedModulePrefixes is the fixed allow-list of import paths that resolve
// against the host instead of inside a plugin boundary. Loading a second copy
// of these packages would give the plugin distinct runtime types with the
// same names, and every cross-boundary type assertion would fail.
var SharedModulePrefixes = []string{
	"github.com/platinummonkey/hub/pkg/contract",
	"github.com/platinummonkey/hub/pkg/provider",
}

// ErrNotReclaimed is returned when a boundary could not be confirmed
// collected within the configured retry budget.
var ErrNotReclaimed = errors.New("boundary not reclaimed; a reference into the plugin is still live")

// Loader creates isolated boundaries and loads plugin modules into them.
type Loader struct {
	exports interp.Exports
	log     *logrus.Logger
}

// NewLoader creates a Loader exposing the shared symbol table to every
// boundary it creates.
func NewLoader(log *logrus.Logger) *Loader {
	if log == nil {
		log = logrus.New()
	}
	return &Loader{
		exports: Symbols,
		log:     log,
	}
}

// IsShared reports whether an import path resolves against the host's
// singleton type space rather than inside a plugin boundary.
func (l *Loader) IsShared(importPath string) bool {
	for _, prefix := range SharedModulePrefixes {
		if importPath == prefix || strings.HasPrefix(importPath, prefix+"/") {
			return true
		}
	}
	return false
}

// Load creates a fresh boundary for the plugin and evaluates its module file
// inside it. The module's private imports resolve only within this boundary;
// shared imports bind to the host's copies. Plugin top-level code runs here,
// under ctx, and a failure tears the partial boundary down.
func (l *Loader) Load(ctx context.Context, meta *plugins.Metadata) (*Boundary, error) {
	src, err := os.ReadFile(meta.ModulePath)
	if err != nil {
		return nil, fmt.Errorf("read module %s: %w", meta.ModulePath, err)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("boundary stdlib setup: %w", err)
	}
	if err := i.Use(l.exports); err != nil {
		return nil, fmt.Errorf("boundary shared-symbol setup: %w", err)
	}

	if _, err := i.EvalWithContext(ctx, string(src)); err != nil {
		return nil, fmt.Errorf("load module %s: %w", meta.ModulePath, err)
	}

	l.log.WithFields(logrus.Fields{
		"plugin": meta.ID,
		"module": meta.ModulePath,
	}).Debug("Boundary created")

	return &Boundary{pluginID: meta.ID, interp: i}, nil
}

// AwaitReclamation forces full collection cycles until the tracker confirms
// the boundary is gone, retrying up to attempts times with backoff between
// rounds. Two GC cycles run per round: the first queues finalizers, the
// second collects what they released. Returns ErrNotReclaimed when the
// budget is exhausted; the boundary is leaked, not freed, and callers must
// not report the unload as complete.
func AwaitReclamation(ctx context.Context, tracker *Tracker, attempts int, backoff time.Duration) error {
	if attempts <= 0 {
		attempts = 3
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.GC()
		runtime.GC()
		if tracker.Reclaimed() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	if tracker.Reclaimed() {
		return nil
	}
	return ErrNotReclaimed
}
