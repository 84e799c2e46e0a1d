package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/hub/pkg/contract"
	"github.com/platinummonkey/hub/pkg/dependencies"
	"github.com/platinummonkey/hub/pkg/loader"
	"github.com/platinummonkey/hub/pkg/plugins"
	"github.com/platinummonkey/hub/pkg/provider"
)

const (
	defaultLoadTimeout     = 30 * time.Second
	defaultUnloadTimeout   = 10 * time.Second
	defaultReclaimAttempts = 3
	defaultReclaimBackoff  = 100 * time.Millisecond
)

// Options configures a Manager.
type Options struct {
	Discovery *plugins.Discovery
	Validator *plugins.Validator
	Loader    *loader.Loader
	Bindings  []Binding

	// Gates is the available-gate set handed to validation.
	Gates map[string]bool
	// Mode is the current execution mode checked against a plugin's
	// declared supported modes.
	Mode string
	// Platform defaults to the host platform.
	Platform provider.Platform

	LoadTimeout     time.Duration
	UnloadTimeout   time.Duration
	ReclaimAttempts int
	ReclaimBackoff  time.Duration

	Log *logrus.Logger
}

type boundRef struct {
	binding  Binding
	provider string
}

type service struct {
	constructor string
	instance    interface{}
	started     bool
	bound       []boundRef
}

// LoadedPlugin is the manager's record of one plugin. Owned by the manager;
// callers observe it only through PluginInfo snapshots.
type LoadedPlugin struct {
	Metadata *plugins.Metadata
	Status   Status
	LoadedAt time.Time
	Err      error

	boundary *loader.Boundary
	services []*service
}

// PluginInfo is an immutable snapshot of a plugin record.
type PluginInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Version  string    `json:"version"`
	Status   string    `json:"status"`
	Services []string  `json:"services,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitzero"`
	Error    string    `json:"error,omitempty"`
}

// Manager drives every plugin through the lifecycle state machine. Exactly
// one load, unload, or reload operation runs per plugin id at a time;
// operations on distinct ids proceed in parallel.
type Manager struct {
	opts Options
	log  *logrus.Logger

	mu         sync.Mutex
	records    map[string]*LoadedPlugin
	locks      map[string]*sync.Mutex
	quarantine map[string]string
	graph      *dependencies.Graph

	hmu      sync.RWMutex
	handlers []EventHandler
}

// NewManager creates a Manager. Zero-valued timeouts and retry knobs take
// conservative defaults.
func NewManager(opts Options) *Manager {
	if opts.Log == nil {
		opts.Log = logrus.New()
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = defaultLoadTimeout
	}
	if opts.UnloadTimeout <= 0 {
		opts.UnloadTimeout = defaultUnloadTimeout
	}
	if opts.ReclaimAttempts <= 0 {
		opts.ReclaimAttempts = defaultReclaimAttempts
	}
	if opts.ReclaimBackoff <= 0 {
		opts.ReclaimBackoff = defaultReclaimBackoff
	}
	if opts.Platform == 0 {
		opts.Platform = provider.ParsePlatform(runtime.GOOS)
	}
	if opts.Mode == "" {
		opts.Mode = "standard"
	}
	return &Manager{
		opts:       opts,
		log:        opts.Log,
		records:    make(map[string]*LoadedPlugin),
		locks:      make(map[string]*sync.Mutex),
		quarantine: make(map[string]string),
		graph:      dependencies.NewGraph(),
	}
}

// AddEventHandler subscribes a handler to lifecycle events.
func (m *Manager) AddEventHandler(h EventHandler) {
	m.hmu.Lock()
	defer m.hmu.Unlock()
	m.handlers = append(m.handlers, h)
}

func (m *Manager) publish(t EventType, res *Result) {
	m.hmu.RLock()
	handlers := make([]EventHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.hmu.RUnlock()

	ev := Event{Type: t, PluginID: res.PluginID, Result: res, Time: time.Now()}
	for _, h := range handlers {
		h(ev)
	}
}

func (m *Manager) idLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *Manager) setStatus(rec *LoadedPlugin, s Status) {
	m.mu.Lock()
	rec.Status = s
	m.mu.Unlock()
}

func (m *Manager) setFailed(rec *LoadedPlugin, err error) {
	m.mu.Lock()
	rec.Status = StatusFailed
	rec.Err = err
	m.mu.Unlock()
}

// Discover scans the configured roots and returns candidate metadata without
// loading anything.
func (m *Manager) Discover(ctx context.Context) ([]*plugins.Metadata, error) {
	return m.opts.Discovery.Scan(ctx)
}

// Load discovers the plugin at path, validates it, loads it into a fresh
// boundary, registers its services, and starts them.
func (m *Manager) Load(ctx context.Context, path string) *Result {
	res := newResult(OpLoad, "")
	meta, err := m.opts.Discovery.ScanPath(ctx, path)
	if err != nil {
		res.fail(fmt.Errorf("discover %s: %w", path, err))
		m.publish(EventLoadFailed, res)
		return res
	}
	res.PluginID = meta.ID

	l := m.idLock(meta.ID)
	l.Lock()
	m.loadLocked(ctx, meta, res)
	l.Unlock()

	if res.Success {
		m.publish(EventLoaded, res)
	} else {
		m.publish(EventLoadFailed, res)
	}
	return res
}

// Unload stops, unregisters, and tears down a loaded plugin, then verifies
// the boundary was reclaimed. A plugin whose boundary cannot be confirmed
// reclaimed is quarantined.
func (m *Manager) Unload(ctx context.Context, id string) *Result {
	res := newResult(OpUnload, id)

	l := m.idLock(id)
	l.Lock()
	quarantined := m.unloadLocked(ctx, id, res, false)
	l.Unlock()

	switch {
	case quarantined:
		m.publish(EventQuarantined, res)
	case res.Success:
		m.publish(EventUnloaded, res)
	default:
		m.publish(EventUnloadFailed, res)
	}
	return res
}

// Reload performs a full unload then load cycle for a loaded plugin,
// rereading its metadata from disk. The per-id lock is held across both
// halves so nothing else can interleave.
func (m *Manager) Reload(ctx context.Context, id string) *Result {
	res := newResult(OpReload, id)

	l := m.idLock(id)
	l.Lock()
	quarantined := m.reloadLocked(ctx, id, res)
	l.Unlock()

	switch {
	case quarantined:
		m.publish(EventQuarantined, res)
	case res.Success:
		m.publish(EventReloaded, res)
	default:
		m.publish(EventLoadFailed, res)
	}
	return res
}

func (m *Manager) reloadLocked(ctx context.Context, id string, res *Result) (quarantined bool) {
	m.mu.Lock()
	rec, ok := m.records[id]
	var dir string
	if ok {
		dir = filepath.Dir(rec.Metadata.ModulePath)
	}
	m.mu.Unlock()
	if !ok {
		res.fail(fmt.Errorf("plugin %s is not loaded", id))
		return false
	}

	if quarantined := m.unloadLocked(ctx, id, res, true); quarantined || !res.Success {
		return quarantined
	}

	meta, err := m.opts.Discovery.ScanPath(ctx, dir)
	if err != nil {
		res.fail(fmt.Errorf("rediscover %s: %w", dir, err))
		return false
	}
	if meta.ID != id {
		res.fail(fmt.Errorf("module in %s now identifies as %s, expected %s", dir, meta.ID, id))
		return false
	}

	// Reset the unload outcome before the load half reuses the result.
	res.Success = false
	res.Error = ""
	m.loadLocked(ctx, meta, res)
	return false
}

func (m *Manager) loadLocked(ctx context.Context, meta *plugins.Metadata, res *Result) {
	m.mu.Lock()
	if reason, ok := m.quarantine[meta.ID]; ok {
		m.mu.Unlock()
		res.fail(fmt.Errorf("plugin %s is quarantined: %s", meta.ID, reason))
		return
	}
	if rec, ok := m.records[meta.ID]; ok && rec.Status != StatusFailed && rec.Status != StatusUnloaded {
		m.mu.Unlock()
		res.fail(fmt.Errorf("plugin %s is already loaded", meta.ID))
		return
	}
	rec := &LoadedPlugin{Metadata: meta, Status: StatusDiscovered}
	m.records[meta.ID] = rec
	m.mu.Unlock()

	m.setStatus(rec, StatusValidating)
	vr := m.opts.Validator.Validate(meta, m.validationContext())
	res.Warnings = append(res.Warnings, vr.Warnings...)
	if !vr.Valid {
		res.ValidationErrors = vr.Errors
		err := fmt.Errorf("plugin %s failed validation with %d error(s)", meta.ID, len(vr.Errors))
		m.setFailed(rec, err)
		res.fail(err)
		return
	}

	m.setStatus(rec, StatusLoading)
	lctx, cancel := context.WithTimeout(ctx, m.opts.LoadTimeout)
	defer cancel()

	boundary, err := m.opts.Loader.Load(lctx, meta)
	if err != nil {
		m.setFailed(rec, err)
		res.fail(err)
		return
	}
	rec.boundary = boundary

	if err := m.registerServices(rec); err != nil {
		m.rollback(rec)
		m.setFailed(rec, err)
		res.fail(err)
		return
	}
	m.setStatus(rec, StatusRegistered)

	if err := m.startServices(lctx, rec); err != nil {
		m.rollback(rec)
		m.setFailed(rec, err)
		res.fail(err)
		return
	}

	m.mu.Lock()
	rec.Status = StatusRunning
	rec.LoadedAt = time.Now()
	rec.Err = nil
	m.mu.Unlock()
	m.graph.Add(meta.ID, meta.Version, dependencyRefs(meta))

	m.log.WithFields(logrus.Fields{
		"plugin":   meta.ID,
		"version":  meta.Version,
		"services": len(rec.services),
	}).Info("Plugin loaded")
	res.succeed()
}

func dependencyRefs(meta *plugins.Metadata) []dependencies.Reference {
	refs := make([]dependencies.Reference, 0, len(meta.Dependencies))
	for _, dep := range meta.Dependencies {
		refs = append(refs, dependencies.Reference{ID: dep.ID, Range: dep.Range})
	}
	return refs
}

// registerServices instantiates each declared constructor and offers the
// instance to every binding. An instance no binding accepts is a load error.
func (m *Manager) registerServices(rec *LoadedPlugin) error {
	for _, ctor := range rec.Metadata.Services {
		instance, err := rec.boundary.Instantiate(ctor)
		if err != nil {
			return fmt.Errorf("instantiate %s: %w", ctor, err)
		}

		svc := &service{constructor: ctor, instance: instance}
		pm := m.providerMetadata(rec.Metadata, ctor, instance)
		for _, b := range m.opts.Bindings {
			bound, err := b.Bind(instance, pm)
			if err != nil {
				rec.services = append(rec.services, svc)
				return err
			}
			if bound {
				svc.bound = append(svc.bound, boundRef{binding: b, provider: pm.Name})
			}
		}
		rec.services = append(rec.services, svc)
		if len(svc.bound) == 0 {
			return fmt.Errorf("service %s of plugin %s matches no registered contract", ctor, rec.Metadata.ID)
		}
	}
	return nil
}

// providerMetadata asks the instance to describe itself, filling in defaults
// derived from the plugin manifest for anything it leaves out.
func (m *Manager) providerMetadata(meta *plugins.Metadata, ctor string, instance interface{}) provider.Metadata {
	pm := provider.Metadata{}
	if d, ok := instance.(contract.Describable); ok {
		pm = d.ProviderMetadata()
	}
	if pm.Name == "" {
		pm.Name = meta.ID + "/" + ctor
	}
	if pm.Version == "" {
		pm.Version = meta.Version
	}
	if pm.Platforms == 0 {
		pm.Platforms = provider.PlatformAll
	}
	return pm
}

func (m *Manager) startServices(ctx context.Context, rec *LoadedPlugin) error {
	for _, svc := range rec.services {
		s, ok := svc.instance.(contract.Service)
		if !ok {
			continue
		}
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", svc.constructor, err)
		}
		svc.started = true
	}
	return nil
}

// rollback undoes a partial load: stops what started, unbinds what bound,
// and tears the boundary down without waiting on reclamation.
func (m *Manager) rollback(rec *LoadedPlugin) {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.UnloadTimeout)
	defer cancel()

	for i := len(rec.services) - 1; i >= 0; i-- {
		svc := rec.services[i]
		for _, ref := range svc.bound {
			ref.binding.Unbind(ref.provider)
		}
		if svc.started {
			if s, ok := svc.instance.(contract.Service); ok {
				if err := s.Stop(ctx); err != nil {
					m.log.WithError(err).WithField("plugin", rec.Metadata.ID).Warn("Service stop failed during rollback")
				}
			}
		}
	}
	rec.services = nil
	if rec.boundary != nil {
		rec.boundary.RequestUnload()
		rec.boundary = nil
	}
}

// unloadLocked tears a plugin down. With force false the unload is refused
// while other loaded plugins still depend on the id; reload and shutdown set
// force because the plugin is being replaced or everything is going away in
// dependency order anyway.
func (m *Manager) unloadLocked(ctx context.Context, id string, res *Result, force bool) (quarantined bool) {
	m.mu.Lock()
	rec, ok := m.records[id]
	m.mu.Unlock()
	if !ok {
		res.fail(fmt.Errorf("plugin %s is not loaded", id))
		return false
	}

	if !force {
		if dependents := m.graph.Dependents(id); len(dependents) > 0 {
			res.fail(fmt.Errorf("plugin %s is required by %s", id, strings.Join(dependents, ", ")))
			return false
		}
	}

	m.setStatus(rec, StatusUnloading)
	uctx, cancel := context.WithTimeout(ctx, m.opts.UnloadTimeout)
	defer cancel()

	for i := len(rec.services) - 1; i >= 0; i-- {
		svc := rec.services[i]
		for _, ref := range svc.bound {
			ref.binding.Unbind(ref.provider)
		}
		if s, ok := svc.instance.(contract.Service); ok {
			if err := s.Stop(uctx); err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("stop %s: %v", svc.constructor, err))
				m.log.WithError(err).WithFields(logrus.Fields{
					"plugin":  id,
					"service": svc.constructor,
				}).Warn("Service stop failed during unload")
			}
		}
	}

	// Drop every strong reference the host holds into the boundary before
	// asking for reclamation.
	rec.services = nil
	var tracker *loader.Tracker
	if rec.boundary != nil {
		tracker = rec.boundary.RequestUnload()
		rec.boundary = nil
	}

	m.graph.Remove(id)

	if tracker != nil {
		if err := loader.AwaitReclamation(uctx, tracker, m.opts.ReclaimAttempts, m.opts.ReclaimBackoff); err != nil {
			m.setFailed(rec, err)
			m.mu.Lock()
			m.quarantine[id] = err.Error()
			m.mu.Unlock()
			m.log.WithError(err).WithField("plugin", id).Warn("Plugin quarantined, boundary not reclaimed")
			res.fail(fmt.Errorf("unload %s: %w", id, err))
			return true
		}
	}

	m.mu.Lock()
	rec.Status = StatusUnloaded
	delete(m.records, id)
	m.mu.Unlock()

	m.log.WithField("plugin", id).Info("Plugin unloaded")
	res.succeed()
	return false
}

// ListLoaded returns snapshots of every plugin record, ordered by id.
func (m *Manager) ListLoaded() []PluginInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]PluginInfo, 0, len(m.records))
	for _, rec := range m.records {
		infos = append(infos, snapshot(rec))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Get returns the snapshot for one plugin id.
func (m *Manager) Get(id string) (PluginInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return PluginInfo{}, false
	}
	return snapshot(rec), true
}

func snapshot(rec *LoadedPlugin) PluginInfo {
	info := PluginInfo{
		ID:       rec.Metadata.ID,
		Name:     rec.Metadata.Name,
		Version:  rec.Metadata.Version,
		Status:   rec.Status.String(),
		Services: append([]string(nil), rec.Metadata.Services...),
		LoadedAt: rec.LoadedAt,
	}
	if rec.Err != nil {
		info.Error = rec.Err.Error()
	}
	return info
}

// Quarantined returns the quarantined plugin ids and their reasons.
func (m *Manager) Quarantined() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.quarantine))
	for id, reason := range m.quarantine {
		out[id] = reason
	}
	return out
}

// ClearQuarantine lifts the quarantine for an id so an operator can retry a
// load. Returns whether the id was quarantined.
func (m *Manager) ClearQuarantine(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quarantine[id]; !ok {
		return false
	}
	delete(m.quarantine, id)
	delete(m.records, id)
	return true
}

// findByModuleDir maps a directory back to the loaded plugin whose module
// file lives there. Used by the hot-reload watcher.
func (m *Manager) findByModuleDir(dir string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.records {
		if filepath.Dir(rec.Metadata.ModulePath) == dir {
			return id, true
		}
	}
	return "", false
}

func (m *Manager) validationContext() *plugins.ValidationContext {
	m.mu.Lock()
	loaded := make(map[string]string, len(m.records))
	for id, rec := range m.records {
		if rec.Status == StatusRunning {
			loaded[id] = rec.Metadata.Version
		}
	}
	m.mu.Unlock()

	return &plugins.ValidationContext{
		AvailableGates: m.opts.Gates,
		LoadedVersions: loaded,
		Mode:           m.opts.Mode,
		Platform:       m.opts.Platform,
	}
}

// Impact reports the direct and transitive dependents of a loaded plugin.
func (m *Manager) Impact(id string) (dependencies.Impact, bool) {
	if _, ok := m.Get(id); !ok {
		return dependencies.Impact{}, false
	}
	return m.graph.ImpactOf(id), true
}

// Shutdown unloads every plugin, dependents before the plugins they depend
// on. Individual failures are logged and do not stop the rest.
func (m *Manager) Shutdown(ctx context.Context) {
	order, err := m.graph.UnloadOrder()
	if err != nil {
		m.log.WithError(err).Warn("Dependency order unavailable, unloading in arbitrary order")
	}

	// Records the graph does not know about, such as failed loads, go last.
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		seen[id] = true
	}
	m.mu.Lock()
	var rest []string
	for id := range m.records {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	m.mu.Unlock()
	sort.Strings(rest)
	order = append(order, rest...)

	for _, id := range order {
		res := newResult(OpUnload, id)
		l := m.idLock(id)
		l.Lock()
		quarantined := m.unloadLocked(ctx, id, res, true)
		l.Unlock()
		switch {
		case quarantined:
			m.publish(EventQuarantined, res)
		case res.Success:
			m.publish(EventUnloaded, res)
		default:
			m.log.WithField("plugin", id).WithField("error", res.Error).Warn("Unload failed during shutdown")
			m.publish(EventUnloadFailed, res)
		}
	}
}
