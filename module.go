// Package modgraph resolves module dependency graphs and drives modules
// through their lifecycle.
//
// A module is any Go value. It declares its prerequisites through a
// MetadataProvider (by default a DependsOn method on its type) and opts into
// lifecycle phases by implementing the hook interfaces in this file. The
// loader discovers every transitively reachable module, including modules
// contributed by plugin sources, rejects dependency cycles, sorts the graph so
// dependencies come first and activates each module through an
// InstanceResolver. The application then runs each phase across the sorted
// modules, one module at a time.
//
// Basic usage:
//
//	app, err := modgraph.NewApplicationFor[RootModule](
//		modgraph.WithLogger(slog.Default()),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := app.RunLifecycle(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer app.Shutdown(context.Background())
package modgraph

import "context"

// Module is a unit of composition. Any value can be a module; behaviour is
// added by implementing the optional interfaces below. Modules that implement
// none of the hooks are still ordered and activated.
type Module any

// DependencyDeclarer is implemented by module types that declare their direct
// prerequisites. DependsOn is called on a zero value of the type, so it must
// not depend on instance state.
//
// Example:
//
//	func (*BlogModule) DependsOn() []modgraph.ModuleType {
//		return []modgraph.ModuleType{
//			modgraph.TypeOf[DatabaseModule](),
//			modgraph.TypeOf[IdentityModule](),
//		}
//	}
type DependencyDeclarer interface {
	DependsOn() []ModuleType
}

// PackageContributor is implemented by module types that bring packages other
// than their own into the application. Like DependsOn it is read from a zero value.
type PackageContributor interface {
	AdditionalPackages() []string
}

// PreConfigurable modules run before any module's Configure hook. Use it to
// read settings that other modules' Configure hooks depend on.
//
// Example:
//
//	func (m *DatabaseModule) PreConfigure(ctx context.Context, cc *modgraph.ConfigurationContext) error {
//		cc.Items["db.dsn"] = os.Getenv("DATABASE_URL")
//		return nil
//	}
type PreConfigurable interface {
	PreConfigure(ctx context.Context, cc *ConfigurationContext) error
}

// Configurable modules register their services and options.
// Configure is called in dependency order: a module's prerequisites have
// already configured themselves.
//
// Example:
//
//	func (m *DatabaseModule) Configure(ctx context.Context, cc *modgraph.ConfigurationContext) error {
//		return cc.Services.Register("db", newPool(cc.Items["db.dsn"].(string)))
//	}
type Configurable interface {
	Configure(ctx context.Context, cc *ConfigurationContext) error
}

// PostConfigurable modules run after every module has been configured.
type PostConfigurable interface {
	PostConfigure(ctx context.Context, cc *ConfigurationContext) error
}

// PreInitializable modules run before any module's Initialize hook.
type PreInitializable interface {
	PreInitialize(ctx context.Context, ic *InitializationContext) error
}

// Initializable modules perform their startup work once every module has
// been configured. Services registered by any module are available.
//
// Example:
//
//	func (m *BlogModule) Initialize(ctx context.Context, ic *modgraph.InitializationContext) error {
//		db, err := modgraph.GetService[*sql.DB](ic.Services, "db")
//		if err != nil {
//			return err
//		}
//		m.store = newStore(db)
//		return m.store.Migrate(ctx)
//	}
type Initializable interface {
	Initialize(ctx context.Context, ic *InitializationContext) error
}

// PostInitializable modules run after every module has been initialized.
type PostInitializable interface {
	PostInitialize(ctx context.Context, ic *InitializationContext) error
}

// Shutdownable modules release resources when the application shuts down.
// Shutdown runs dependents first, so a module's prerequisites are still
// available while it shuts down. Every activated module is visited even when
// an earlier Shutdown fails.
type Shutdownable interface {
	Shutdown(ctx context.Context, sc *ShutdownContext) error
}

// ConfigurationContext is shared by the three configuration phases.
type ConfigurationContext struct {
	// Services collects what modules contribute during configuration.
	Services *ServiceRegistry

	// Items carries arbitrary values between configuration hooks.
	Items map[string]any

	// Modules is the sorted module list, read-only.
	Modules []*ModuleDescriptor
}

// InitializationContext is shared by the three initialization phases.
type InitializationContext struct {
	// Services holds everything registered during configuration.
	Services *ServiceRegistry

	// Logger is the application logger.
	Logger Logger

	// Modules is the sorted module list, read-only.
	Modules []*ModuleDescriptor
}

// ShutdownContext is passed to Shutdown hooks.
type ShutdownContext struct {
	Services *ServiceRegistry
	Logger   Logger
}
