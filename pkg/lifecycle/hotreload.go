package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const (
	defaultDebounceWindow    = 2 * time.Second
	defaultStabilityAttempts = 10
	defaultStabilityInterval = 100 * time.Millisecond
)

// WatcherOptions configures hot reload.
type WatcherOptions struct {
	// Roots are the plugin root directories to observe. Subdirectories of
	// loaded plugins are watched as they load.
	Roots []string

	// DebounceWindow suppresses repeated change events for the same plugin
	// id until the window elapses with no further events.
	DebounceWindow time.Duration

	// StabilityAttempts and StabilityInterval gate the reload: the module
	// file's modification time and size must hold still across consecutive
	// polls before the file is treated as fully written.
	StabilityAttempts int
	StabilityInterval time.Duration

	Log *logrus.Logger
}

// Watcher observes plugin directories and drives debounced reloads through
// the manager when a loaded plugin's files change on disk.
type Watcher struct {
	manager *Manager
	opts    WatcherOptions
	log     *logrus.Logger
	fs      *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer

	closeOnce sync.Once
	done      chan struct{}
}

// NewWatcher creates a hot-reload watcher bound to a manager. Call Run to
// start processing events.
func NewWatcher(manager *Manager, opts WatcherOptions) (*Watcher, error) {
	if opts.Log == nil {
		opts.Log = logrus.New()
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = defaultDebounceWindow
	}
	if opts.StabilityAttempts <= 0 {
		opts.StabilityAttempts = defaultStabilityAttempts
	}
	if opts.StabilityInterval <= 0 {
		opts.StabilityInterval = defaultStabilityInterval
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		manager: manager,
		opts:    opts,
		log:     opts.Log,
		fs:      fs,
		timers:  make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}
	for _, root := range opts.Roots {
		if err := w.watchTree(root); err != nil {
			w.log.WithError(err).WithField("root", root).Warn("Cannot watch plugin root")
		}
	}
	return w, nil
}

func (w *Watcher) watchTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fs.Add(path)
		}
		return nil
	})
}

// Run processes filesystem events until ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("Watcher error")
		}
	}
}

// Close stops the watcher and cancels pending debounce timers.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.timers = make(map[string]*time.Timer)
		w.mu.Unlock()
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	// Watch directories as they appear so plugins added after startup are
	// still observed.
	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := w.fs.Add(event.Name); err != nil {
				w.log.WithError(err).WithField("dir", event.Name).Warn("Cannot watch new directory")
			}
			return
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	dir := filepath.Dir(event.Name)
	id, ok := w.manager.findByModuleDir(dir)
	if !ok {
		return
	}
	w.debounce(ctx, id)
}

// debounce arms or rearms the per-plugin timer. Only after the window passes
// with no further events does the reload pipeline run.
func (w *Watcher) debounce(ctx context.Context, id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[id]; ok {
		t.Reset(w.opts.DebounceWindow)
		return
	}
	w.timers[id] = time.AfterFunc(w.opts.DebounceWindow, func() {
		w.mu.Lock()
		delete(w.timers, id)
		w.mu.Unlock()

		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		default:
		}
		w.reload(ctx, id)
	})
}

func (w *Watcher) reload(ctx context.Context, id string) {
	info, ok := w.manager.Get(id)
	if !ok {
		return
	}

	// The module may still be mid-write when the debounce window closes.
	dir := w.moduleDirFor(id)
	if dir == "" {
		return
	}
	if err := w.awaitStable(ctx, dir); err != nil {
		w.log.WithError(err).WithField("plugin", id).Warn("Skipping reload, module never stabilized")
		return
	}

	w.log.WithFields(logrus.Fields{
		"plugin":  id,
		"version": info.Version,
	}).Info("Change detected, reloading plugin")

	if res := w.manager.Reload(ctx, id); !res.Success {
		w.log.WithFields(logrus.Fields{
			"plugin": id,
			"error":  res.Error,
		}).Warn("Hot reload failed")
	}
}

func (w *Watcher) moduleDirFor(id string) string {
	w.manager.mu.Lock()
	defer w.manager.mu.Unlock()
	rec, ok := w.manager.records[id]
	if !ok {
		return ""
	}
	return filepath.Dir(rec.Metadata.ModulePath)
}

// awaitStable polls the directory's newest modification time and total size
// until they hold still across two consecutive polls, up to the configured
// attempt budget.
func (w *Watcher) awaitStable(ctx context.Context, dir string) error {
	var lastMod time.Time
	var lastSize int64
	have := false

	for attempt := 0; attempt < w.opts.StabilityAttempts; attempt++ {
		mod, size, err := dirFingerprint(dir)
		if err != nil {
			return err
		}
		if have && mod.Equal(lastMod) && size == lastSize {
			return nil
		}
		lastMod, lastSize, have = mod, size, true

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.opts.StabilityInterval):
		}
	}
	return errNeverStable
}

var errNeverStable = errors.New("module kept changing during the stability window")

func dirFingerprint(dir string) (time.Time, int64, error) {
	var newest time.Time
	var total int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		total += info.Size()
		return nil
	})
	return newest, total, err
}
