package plugins

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// manifestCacheSize bounds the discovery cache; a rescan of an unchanged tree
// should not re-read every manifest.
const manifestCacheSize = 256

// coreModuleDenylist names directories that look like plugins but belong to
// the host runtime. Discovery never offers them as candidates.
var coreModuleDenylist = map[string]bool{
	"contract":  true,
	"provider":  true,
	"loader":    true,
	"lifecycle": true,
	"internal":  true,
}

type cacheEntry struct {
	modTime time.Time
	meta    *Metadata
}

// Discovery scans candidate plugin directories and produces Metadata records.
// It performs metadata-only inspection: manifests are parsed as YAML, module
// files are parsed with go/parser, and no plugin code ever runs during a scan.
type Discovery struct {
	roots []string
	cache *lru.Cache[string, cacheEntry]
	mu    sync.Mutex // serializes cache fill per scan
	log   *logrus.Logger
}

// NewDiscovery creates a Discovery over the given root directories.
func NewDiscovery(roots []string, log *logrus.Logger) *Discovery {
	if log == nil {
		log = logrus.New()
	}
	cache, _ := lru.New[string, cacheEntry](manifestCacheSize)
	return &Discovery{
		roots: roots,
		cache: cache,
		log:   log,
	}
}

// Scan walks every configured root and returns the metadata of each candidate
// that inspected cleanly, sorted by id. A failure on one candidate is logged
// and skipped; only a failure to enumerate a root at all is returned as an
// error, and even then the other roots' results are kept.
func (d *Discovery) Scan(ctx context.Context) ([]*Metadata, error) {
	var mu sync.Mutex
	var found []*Metadata

	g, ctx := errgroup.WithContext(ctx)
	for _, root := range d.roots {
		g.Go(func() error {
			metas := d.scanRoot(ctx, root)
			mu.Lock()
			found = append(found, metas...)
			mu.Unlock()
			return ctx.Err()
		})
	}
	err := g.Wait()

	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found, err
}

// ScanPath inspects one directory as a plugin candidate.
func (d *Discovery) ScanPath(ctx context.Context, dir string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.inspect(dir)
}

func (d *Discovery) scanRoot(ctx context.Context, root string) []*Metadata {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		d.log.Debugf("Plugin root does not exist: %s", root)
		return nil
	}

	var metas []*Metadata
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			d.log.Warnf("Skipping unreadable path %s: %v", path, err)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !entry.IsDir() || path == root {
			return nil
		}
		if coreModuleDenylist[entry.Name()] {
			return filepath.SkipDir
		}
		if !isCandidateDir(path) {
			return nil
		}

		meta, err := d.inspect(path)
		if err != nil {
			d.log.Warnf("Skipping plugin candidate %s: %v", path, err)
			return filepath.SkipDir
		}
		metas = append(metas, meta)
		return filepath.SkipDir // candidates do not nest
	})
	if err != nil && ctx.Err() == nil {
		d.log.Warnf("Scan of root %s stopped early: %v", root, err)
	}
	return metas
}

// isCandidateDir reports whether dir holds a manifest or a module file.
func isCandidateDir(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ManifestFileName)); err == nil {
		return true
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.go"))
	return len(matches) > 0
}

// inspect produces the Metadata for one candidate directory, from cache when
// nothing on disk changed since the last scan.
func (d *Discovery) inspect(dir string) (*Metadata, error) {
	modulePath, err := findModuleFile(dir)
	if err != nil {
		return nil, err
	}

	stamp, err := latestModTime(dir, modulePath)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.cache.Get(dir); ok && entry.modTime.Equal(stamp) {
		return entry.meta, nil
	}

	meta, err := d.readMetadata(dir, modulePath)
	if err != nil {
		return nil, err
	}

	d.cache.Add(dir, cacheEntry{modTime: stamp, meta: meta})
	return meta, nil
}

func (d *Discovery) readMetadata(dir, modulePath string) (*Metadata, error) {
	var meta *Metadata

	manifestPath := filepath.Join(dir, ManifestFileName)
	if _, err := os.Stat(manifestPath); err == nil {
		meta, err = LoadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
	} else {
		meta = &Metadata{}
	}

	// File-name-derived identity when the manifest omits it.
	base := filepath.Base(dir)
	if meta.ID == "" {
		meta.ID = base
	}
	if meta.Name == "" {
		meta.Name = base
	}
	if meta.Version == "" {
		meta.Version = "0.0.0"
	}
	meta.ModulePath = modulePath

	if problems := CheckManifest(meta); len(problems) > 0 {
		return nil, fmt.Errorf("manifest invalid: %s", strings.Join(problems, "; "))
	}

	if len(meta.Services) == 0 {
		services, err := inspectModuleFile(modulePath)
		if err != nil {
			return nil, fmt.Errorf("module inspection failed: %w", err)
		}
		meta.Services = services
	}
	if len(meta.Services) == 0 {
		return nil, fmt.Errorf("plugin %s declares no services", meta.ID)
	}

	return meta, nil
}

// findModuleFile locates the plugin's Go source. Preference order: a file
// named after the directory, then plugin.go, then a lone .go file.
func findModuleFile(dir string) (string, error) {
	base := filepath.Base(dir)
	for _, name := range []string{base + ".go", "plugin.go"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return "", err
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no module file in %s", dir)
	}
	return "", fmt.Errorf("ambiguous module files in %s: found %d .go files and no plugin.go", dir, len(matches))
}

// inspectModuleFile extracts declared service constructors from plugin source
// without executing it. A service constructor is an exported top-level
// function named New*.
func inspectModuleFile(path string) ([]string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	var services []string
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil {
			continue
		}
		if fn.Name.IsExported() && strings.HasPrefix(fn.Name.Name, "New") {
			services = append(services, fn.Name.Name)
		}
	}
	return services, nil
}

func latestModTime(dir, modulePath string) (time.Time, error) {
	info, err := os.Stat(modulePath)
	if err != nil {
		return time.Time{}, err
	}
	latest := info.ModTime()

	if mInfo, err := os.Stat(filepath.Join(dir, ManifestFileName)); err == nil {
		if mInfo.ModTime().After(latest) {
			latest = mInfo.ModTime()
		}
	}
	return latest, nil
}
