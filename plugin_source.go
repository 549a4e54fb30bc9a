package modgraph

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PluginModule is a module contributed by a plugin source. A non-nil
// DependsOn is recorded as the module's declaration; a nil DependsOn leaves
// the question to the application's MetadataProvider.
type PluginModule struct {
	Type      ModuleType
	DependsOn []ModuleType
	Packages  []string
}

// PluginSource yields additional modules to fold into discovery.
type PluginSource interface {
	PluginModules(ctx context.Context) ([]PluginModule, error)
}

// TypePluginSource contributes an explicit list of modules.
type TypePluginSource struct {
	modules []PluginModule
}

// NewTypePluginSource contributes types whose dependencies are read from
// the application's metadata provider.
func NewTypePluginSource(types ...ModuleType) *TypePluginSource {
	s := &TypePluginSource{}
	for _, t := range types {
		s.modules = append(s.modules, PluginModule{Type: t})
	}
	return s
}

// Add contributes a module with an explicit declaration.
func (s *TypePluginSource) Add(m PluginModule) *TypePluginSource {
	s.modules = append(s.modules, m)
	return s
}

// PluginModules implements PluginSource.
func (s *TypePluginSource) PluginModules(context.Context) ([]PluginModule, error) {
	return slices.Clone(s.modules), nil
}

// FilePluginSource reads modules from explicit manifest files.
type FilePluginSource struct {
	Paths []string
}

// NewFilePluginSource creates a source reading paths in order.
func NewFilePluginSource(paths ...string) *FilePluginSource {
	return &FilePluginSource{Paths: paths}
}

// PluginModules implements PluginSource.
func (s *FilePluginSource) PluginModules(ctx context.Context) ([]PluginModule, error) {
	return readManifests(ctx, s.Paths)
}

// FolderPluginSource reads every manifest (*.yaml, *.yml, *.toml, *.json) in
// a folder, in lexical order.
type FolderPluginSource struct {
	Dir       string
	Recursive bool

	// Debounce coalesces bursts of file events in Watch. Defaults to 500ms.
	Debounce time.Duration
}

// NewFolderPluginSource creates a source for dir.
func NewFolderPluginSource(dir string, recursive bool) *FolderPluginSource {
	return &FolderPluginSource{Dir: dir, Recursive: recursive}
}

// PluginModules implements PluginSource.
func (s *FolderPluginSource) PluginModules(ctx context.Context) ([]PluginModule, error) {
	paths, err := s.manifestPaths()
	if err != nil {
		return nil, err
	}
	return readManifests(ctx, paths)
}

func (s *FolderPluginSource) manifestPaths() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.Dir && !s.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := ManifestFormatFor(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan plugin folder %s: %w", s.Dir, err)
	}
	slices.Sort(paths)
	return paths, nil
}

func (s *FolderPluginSource) directories() ([]string, error) {
	if !s.Recursive {
		return []string{s.Dir}, nil
	}
	var dirs []string
	err := filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

func readManifests(ctx context.Context, paths []string) ([]PluginModule, error) {
	var mods []PluginModule
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := ReadManifest(p)
		if err != nil {
			return nil, err
		}
		mods = append(mods, m.PluginModules()...)
	}
	return mods, nil
}

// PluginChangeFunc receives the folder's modules after a change, or the error
// raised while re-reading them.
type PluginChangeFunc func(modules []PluginModule, err error)

// FolderWatcher reports changes to a plugin folder.
type FolderWatcher struct {
	source   *FolderPluginSource
	watcher  *fsnotify.Watcher
	onChange PluginChangeFunc
	logger   Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher starts watching the folder. Events are delivered once Run is
// called.
func (s *FolderPluginSource) NewWatcher(onChange PluginChangeFunc, logger Logger) (*FolderWatcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("plugin folder watcher: onChange cannot be nil")
	}
	if logger == nil {
		logger = discardLogger()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	dirs, err := s.directories()
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to scan plugin folder %s: %w", s.Dir, err)
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return &FolderWatcher{source: s, watcher: w, onChange: onChange, logger: logger}, nil
}

// Watch calls onChange with the folder's modules after every change until ctx
// is done.
func (s *FolderPluginSource) Watch(ctx context.Context, onChange PluginChangeFunc, logger Logger) error {
	fw, err := s.NewWatcher(onChange, logger)
	if err != nil {
		return err
	}
	return fw.Run(ctx)
}

// Run delivers changes until ctx is done, then closes the watcher.
func (fw *FolderWatcher) Run(ctx context.Context) error {
	defer fw.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && fw.source.Recursive {
					if err := fw.watcher.Add(event.Name); err != nil {
						fw.logger.Warn("Failed to watch new plugin directory", "dir", event.Name, "error", err)
					}
				}
			}
			if _, ok := ManifestFormatFor(event.Name); !ok {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				fw.schedule(ctx)
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.Error("Plugin folder watcher error", "dir", fw.source.Dir, "error", err)
		}
	}
}

// Close stops watching.
func (fw *FolderWatcher) Close() error {
	fw.mu.Lock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()
	return fw.watcher.Close()
}

func (fw *FolderWatcher) schedule(ctx context.Context) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
	}
	debounce := fw.source.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	fw.timer = time.AfterFunc(debounce, func() {
		if ctx.Err() != nil {
			return
		}
		mods, err := fw.source.PluginModules(ctx)
		fw.logger.Debug("Plugin folder changed", "dir", fw.source.Dir, "modules", len(mods))
		fw.onChange(mods, err)
	})
}
