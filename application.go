package modgraph

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
)

type applicationState int

const (
	stateCreated applicationState = iota
	stateLoaded
	stateConfigured
	stateInitialized
	stateFailed
	stateShutdown
)

func (s applicationState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateLoaded:
		return "loaded"
	case stateConfigured:
		return "configured"
	case stateInitialized:
		return "initialized"
	case stateFailed:
		return "failed"
	case stateShutdown:
		return "shutdown"
	}
	return fmt.Sprintf("applicationState(%d)", int(s))
}

// Application loads the modules reachable from a root module and drives them
// through the lifecycle. Its methods must be called from one goroutine; the
// read-only accessors are safe to call concurrently.
//
// The lifecycle methods run in a fixed order:
//
//	LoadModules -> ConfigureServices -> Initialize -> Shutdown
//
// RunLifecycle runs the first three; Run also waits for a signal and shuts
// down. Calling a method out of order fails with ErrInvalidApplicationState.
// Shutdown is allowed from any state after a load attempt, including after a
// failure, and releases whatever was activated.
//
// Example:
//
//	app, err := modgraph.NewApplicationFor[WebModule](
//		modgraph.WithLogger(slog.Default()),
//		modgraph.WithPluginSources(modgraph.NewFolderPluginSource("plugins", false)),
//	)
//	if err != nil {
//		return err
//	}
//	return app.Run(ctx)
type Application struct {
	root     ModuleType
	cfg      Config
	logger   Logger
	types    *TypeRegistry
	services *ServiceRegistry
	events   *observerRegistry

	metadata  []MetadataProvider
	resolvers []InstanceResolver
	sources   []PluginSource

	loader       *ModuleLoader
	orchestrator *LifecycleOrchestrator

	mu      sync.RWMutex
	state   applicationState
	modules []*ModuleDescriptor
	history []PhaseRecord
}

// NewApplication creates an application rooted at root. Options are applied
// in order.
func NewApplication(root ModuleType, opts ...Option) (*Application, error) {
	if root.IsZero() {
		return nil, fmt.Errorf("%w: root module type is empty", ErrInvalidModuleType)
	}
	app := &Application{
		root:   root,
		cfg:    DefaultConfig(),
		logger: discardLogger(),
		types:  NewTypeRegistry(),
		events: newObserverRegistry("modgraph.application", discardLogger()),
	}
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, fmt.Errorf("failed to apply application option: %w", err)
		}
	}

	app.events.logger = app.logger
	if app.services == nil {
		app.services = NewServiceRegistry(app.logger)
	}
	app.root = app.types.Add(app.root)

	metadata := MetadataProviders(append(slices.Clone(app.metadata), NewTypeMetadataProvider(app.types))...)
	resolver := Resolvers(append(slices.Clone(app.resolvers), NewReflectResolver(app.types))...)

	activator := NewModuleActivator(resolver, app.logger)
	activator.events = app.events
	app.loader = NewModuleLoader(metadata, activator, app.types, app.logger)
	app.loader.events = app.events
	app.orchestrator = NewLifecycleOrchestrator(app.logger, app.cfg.HookTimeout)
	app.orchestrator.events = app.events
	return app, nil
}

// NewApplicationFor creates an application rooted at the module type T.
func NewApplicationFor[T any](opts ...Option) (*Application, error) {
	return NewApplication(TypeOf[T](), opts...)
}

// RootType returns the root module type.
func (app *Application) RootType() ModuleType { return app.root }

// Logger returns the application logger.
func (app *Application) Logger() Logger { return app.logger }

// Config returns the effective configuration.
func (app *Application) Config() Config { return app.cfg }

// Services returns the registry shared by every lifecycle hook.
func (app *Application) Services() *ServiceRegistry { return app.services }

// Modules returns the loaded modules in load order. It is empty until
// LoadModules succeeds.
func (app *Application) Modules() []*ModuleDescriptor {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return slices.Clone(app.modules)
}

// PhaseHistory returns a record of every phase run so far.
func (app *Application) PhaseHistory() []PhaseRecord {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return slices.Clone(app.history)
}

// State returns the lifecycle state name.
func (app *Application) State() string {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.state.String()
}

// RegisterObserver subscribes observer to eventTypes, or to every event when
// none are given. Registering an ID twice replaces the earlier registration.
func (app *Application) RegisterObserver(observer Observer, eventTypes ...string) {
	app.events.register(observer, eventTypes...)
}

// UnregisterObserver removes the observer with the given ID.
func (app *Application) UnregisterObserver(id string) {
	app.events.unregister(id)
}

// GetObservers describes the registered observers.
func (app *Application) GetObservers() []ObserverInfo {
	return app.events.info()
}

// LoadModules discovers, sorts and activates every module reachable from the
// root and from the plugin sources. When an activation fails, the modules
// activated before it remain in Modules and are shut down by Shutdown.
func (app *Application) LoadModules(ctx context.Context) error {
	if err := app.expectState("load modules", stateCreated); err != nil {
		return err
	}
	modules, err := app.loader.LoadModules(ctx, app.root, app.pluginSources()...)
	if err != nil {
		// Keep what was activated so Shutdown can release it.
		app.mu.Lock()
		app.modules = modules
		app.state = stateFailed
		app.mu.Unlock()
		return err
	}

	app.mu.Lock()
	app.modules = modules
	app.state = stateLoaded
	app.mu.Unlock()
	return nil
}

// ConfigureServices runs PreConfigure, Configure and PostConfigure across
// every module in dependency order.
func (app *Application) ConfigureServices(ctx context.Context) error {
	if err := app.expectState("configure services", stateLoaded); err != nil {
		return err
	}
	cc := &ConfigurationContext{
		Services: app.services,
		Items:    make(map[string]any),
		Modules:  app.Modules(),
	}
	if err := app.runPhases(ctx, ConfigurationPhases(cc)...); err != nil {
		return err
	}
	app.setState(stateConfigured)
	return nil
}

// Initialize runs PreInitialize, Initialize and PostInitialize across every
// module in the configured initialization order.
func (app *Application) Initialize(ctx context.Context) error {
	if err := app.expectState("initialize", stateConfigured); err != nil {
		return err
	}
	ic := &InitializationContext{Services: app.services, Logger: app.logger, Modules: app.Modules()}
	if err := app.runPhases(ctx, InitializationPhases(ic, app.cfg.Direction())...); err != nil {
		return err
	}
	app.setState(stateInitialized)
	app.logger.Info("Application initialized", "root", app.root, "modules", len(ic.Modules))
	app.events.emit(ctx, EventTypeApplicationInitialized, EventData{Module: app.root.String(), Order: typeNames(ModuleTypes(ic.Modules))})
	return nil
}

// RunLifecycle loads the modules if that has not happened yet, then
// configures and initializes them.
func (app *Application) RunLifecycle(ctx context.Context) error {
	if app.currentState() == stateCreated {
		if err := app.LoadModules(ctx); err != nil {
			return err
		}
	}
	if err := app.ConfigureServices(ctx); err != nil {
		return err
	}
	return app.Initialize(ctx)
}

// Shutdown runs the Shutdown hook of every module, dependents first. Every
// module is visited even when an earlier one fails; all failures are
// returned together. Without a deadline on ctx, the configured shutdown
// timeout applies.
func (app *Application) Shutdown(ctx context.Context) error {
	if err := app.expectState("shut down", stateLoaded, stateConfigured, stateInitialized, stateFailed); err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok && app.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.cfg.ShutdownTimeout)
		defer cancel()
	}

	sc := &ShutdownContext{Services: app.services, Logger: app.logger}
	rec, err := app.orchestrator.RunPhase(ctx, ShutdownPhase(sc), app.activatedModules())
	app.mu.Lock()
	app.history = append(app.history, rec)
	app.state = stateShutdown
	app.mu.Unlock()

	data := EventData{Module: app.root.String()}
	if err != nil {
		data.Error = err.Error()
		app.logger.Error("Application shutdown completed with errors", "error", err)
	} else {
		app.logger.Info("Application shut down", "root", app.root)
	}
	app.events.emit(ctx, EventTypeApplicationShutdown, data)
	return err
}

// Run runs the lifecycle, then blocks until ctx is done or the process
// receives SIGINT or SIGTERM, and shuts down.
func (app *Application) Run(ctx context.Context) error {
	if err := app.RunLifecycle(ctx); err != nil {
		if app.currentState() != stateCreated {
			_ = app.Shutdown(context.Background())
		}
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	app.logger.Info("Shutting down", "reason", context.Cause(sigCtx))

	return app.Shutdown(context.WithoutCancel(ctx))
}

func (app *Application) runPhases(ctx context.Context, phases ...Phase) error {
	for _, phase := range phases {
		rec, err := app.orchestrator.RunPhase(ctx, phase, app.Modules())
		app.mu.Lock()
		app.history = append(app.history, rec)
		app.mu.Unlock()
		if err != nil {
			app.setState(stateFailed)
			return err
		}
	}
	return nil
}

func (app *Application) activatedModules() []*ModuleDescriptor {
	modules := app.Modules()
	return slices.DeleteFunc(modules, func(d *ModuleDescriptor) bool { return !d.IsActivated() })
}

func (app *Application) pluginSources() []PluginSource {
	sources := slices.Clone(app.sources)
	for _, dir := range app.cfg.PluginFolders {
		sources = append(sources, NewFolderPluginSource(dir, app.cfg.PluginFolderRecursive))
	}
	return sources
}

func (app *Application) currentState() applicationState {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.state
}

func (app *Application) setState(s applicationState) {
	app.mu.Lock()
	app.state = s
	app.mu.Unlock()
}

func (app *Application) expectState(action string, allowed ...applicationState) error {
	current := app.currentState()
	if slices.Contains(allowed, current) {
		return nil
	}
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidApplicationState, action, current)
}
