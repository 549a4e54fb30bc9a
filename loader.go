package modgraph

import (
	"context"
	"errors"
	"fmt"
)

// ModuleLoader discovers, sorts and activates the modules reachable from a
// root module and from plugin sources.
type ModuleLoader struct {
	metadata  MetadataProvider
	activator *ModuleActivator
	registry  *TypeRegistry
	logger    Logger
	events    *observerRegistry
}

// NewModuleLoader creates a loader. registry may be nil; when set it is used
// to attach Go types to named module types. A nil activator has no resolver,
// so every activation fails with ErrNoResolver.
func NewModuleLoader(metadata MetadataProvider, activator *ModuleActivator, registry *TypeRegistry, logger Logger) *ModuleLoader {
	if logger == nil {
		logger = discardLogger()
	}
	if activator == nil {
		activator = NewModuleActivator(nil, logger)
	}
	return &ModuleLoader{
		metadata:  metadata,
		activator: activator,
		registry:  registry,
		logger:    logger,
	}
}

// discovery is the state of one LoadModules call.
type discovery struct {
	ctx      context.Context
	catalog  *ModuleCatalog
	expanded map[string]bool
}

// LoadModules returns every module reachable from root or contributed by a
// plugin source, sorted so that dependencies come first, with an instance
// attached to each.
//
// A dependency cycle aborts before anything is activated and returns no
// modules. An activation failure or cancellation aborts the remaining
// activations and returns the modules activated so far, in load order,
// together with the error, so the caller can shut them down.
func (l *ModuleLoader) LoadModules(ctx context.Context, root ModuleType, sources ...PluginSource) ([]*ModuleDescriptor, error) {
	if root.IsZero() {
		return nil, fmt.Errorf("%w: root module type is empty", ErrInvalidModuleType)
	}
	root = l.registry.Canonical(root)

	catalog, err := l.Discover(ctx, root, sources...)
	if err != nil {
		return nil, err
	}

	sorted, err := BuildAndSort(catalog.AllDescriptors(), root)
	if err != nil {
		var cycle *CircularDependencyError
		if errors.As(err, &cycle) {
			l.logger.Error("Dependency cycle detected", "cycle", cycle.Path)
			l.events.emit(ctx, EventTypeGraphCycleDetected, EventData{Error: err.Error(), Order: typeNames(cycle.Path)})
		}
		return nil, fmt.Errorf("failed to resolve dependencies: %w", err)
	}
	l.logger.Debug("Module load order", "order", ModuleTypes(sorted))
	l.events.emit(ctx, EventTypeGraphSorted, EventData{Order: typeNames(ModuleTypes(sorted))})

	for i, d := range sorted {
		if err := ctx.Err(); err != nil {
			return sorted[:i], fmt.Errorf("module activation cancelled: %w", err)
		}
		if _, err := l.activator.Activate(ctx, d); err != nil {
			return sorted[:i], err
		}
	}
	l.logger.Info("Modules loaded", "count", len(sorted), "root", root)
	return sorted, nil
}

// Discover builds the catalog of every module reachable from root and from
// the plugin sources, without sorting or activating anything.
func (l *ModuleLoader) Discover(ctx context.Context, root ModuleType, sources ...PluginSource) (*ModuleCatalog, error) {
	disc := &discovery{ctx: ctx, catalog: NewModuleCatalog(), expanded: make(map[string]bool)}

	disc.catalog.GetOrAdd(root)
	if err := l.expand(disc, root); err != nil {
		return nil, err
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mods, err := src.PluginModules(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read plugin source %T: %w", src, err)
		}
		for _, pm := range mods {
			if err := l.addPlugin(disc, pm); err != nil {
				return nil, err
			}
		}
	}

	l.logger.Debug("Module discovery complete", "modules", disc.catalog.Len())
	return disc.catalog, nil
}

func (l *ModuleLoader) addPlugin(disc *discovery, pm PluginModule) error {
	if pm.Type.IsZero() {
		return fmt.Errorf("%w: plugin source contributed an empty module type", ErrInvalidModuleType)
	}
	t := l.registry.Canonical(pm.Type)
	if !disc.catalog.Contains(t) {
		disc.catalog.GetOrAdd(t)
		disc.catalog.MarkPlugin(t)
		l.logger.Debug("Plugin module discovered", "module", t)
	}
	disc.catalog.AddPackages(t, pm.Packages...)
	if pm.DependsOn != nil {
		if err := disc.catalog.Declare(t, l.canonicalAll(pm.DependsOn)); err != nil {
			return err
		}
	}
	return l.expand(disc, t)
}

// expand reads the direct dependencies of t, records the edges and recurses.
// Each module is expanded once, which bounds the walk even on cyclic graphs.
func (l *ModuleLoader) expand(disc *discovery, t ModuleType) error {
	if disc.expanded[t.name] {
		return nil
	}
	if err := disc.ctx.Err(); err != nil {
		return err
	}
	disc.expanded[t.name] = true

	d, _ := disc.catalog.Get(t)
	l.events.emit(disc.ctx, EventTypeModuleDiscovered, EventData{Module: t.String(), Plugin: d.isPlugin})

	deps, err := l.dependenciesOf(disc.catalog, t)
	if err != nil {
		return err
	}
	if pp, ok := l.metadata.(PackageProvider); ok {
		disc.catalog.AddPackages(t, pp.Packages(t)...)
	}

	for _, dep := range deps {
		disc.catalog.GetOrAdd(dep)
		if err := disc.catalog.AddDependency(t, dep); err != nil {
			return err
		}
	}
	for _, dep := range deps {
		if err := l.expand(disc, dep); err != nil {
			return err
		}
	}
	return nil
}

// dependenciesOf asks the metadata provider for t's dependencies and checks
// them against any explicit declaration already in the catalog.
func (l *ModuleLoader) dependenciesOf(catalog *ModuleCatalog, t ModuleType) ([]ModuleType, error) {
	deps, err := l.metadata.Dependencies(t)
	if errors.Is(err, ErrUnknownModuleType) {
		if declared, ok := catalog.Declared(t); ok {
			return declared, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dependencies of module %s: %w", t, err)
	}
	deps = l.canonicalAll(deps)
	if err := catalog.Declare(t, deps); err != nil {
		return nil, err
	}
	return deps, nil
}

func (l *ModuleLoader) canonicalAll(types []ModuleType) []ModuleType {
	out := make([]ModuleType, len(types))
	for i, t := range types {
		out[i] = l.registry.Canonical(t)
	}
	return out
}

func typeNames(types []ModuleType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
