package modgraph

import (
	"errors"
	"fmt"
	"time"
)

// Option configures an Application.
type Option func(*Application) error

// WithLogger sets the application logger. *slog.Logger satisfies Logger.
func WithLogger(logger Logger) Option {
	return func(app *Application) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		app.logger = logger
		return nil
	}
}

// WithConfig replaces the application configuration.
func WithConfig(cfg Config) Option {
	return func(app *Application) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		app.cfg = cfg
		return nil
	}
}

// WithInitializationOrder sets the direction of the initialization phases.
func WithInitializationOrder(direction Direction) Option {
	return func(app *Application) error {
		if direction != DependencyFirst && direction != DependentsFirst {
			return fmt.Errorf("%w: unknown direction %v", ErrConfigInvalid, direction)
		}
		app.cfg.InitializationOrder = direction.String()
		return nil
	}
}

// WithHookTimeout bounds every lifecycle hook. Zero disables the bound.
func WithHookTimeout(timeout time.Duration) Option {
	return func(app *Application) error {
		if timeout < 0 {
			return fmt.Errorf("%w: hook timeout must not be negative", ErrConfigInvalid)
		}
		app.cfg.HookTimeout = timeout
		return nil
	}
}

// WithMetadataProvider adds a provider consulted before the type-based one.
// Providers added earlier are asked first.
func WithMetadataProvider(provider MetadataProvider) Option {
	return func(app *Application) error {
		if provider == nil {
			return errors.New("metadata provider cannot be nil")
		}
		app.metadata = append(app.metadata, provider)
		return nil
	}
}

// WithResolver adds an instance resolver consulted before the reflection
// based one. Resolvers added earlier are asked first.
func WithResolver(resolver InstanceResolver) Option {
	return func(app *Application) error {
		if resolver == nil {
			return errors.New("resolver cannot be nil")
		}
		app.resolvers = append(app.resolvers, resolver)
		return nil
	}
}

// WithPluginSources adds plugin sources, read in order after the root's
// dependency closure has been discovered.
func WithPluginSources(sources ...PluginSource) Option {
	return func(app *Application) error {
		for _, s := range sources {
			if s == nil {
				return errors.New("plugin source cannot be nil")
			}
		}
		app.sources = append(app.sources, sources...)
		return nil
	}
}

// WithPlugins adds module types as plugins.
func WithPlugins(types ...ModuleType) Option {
	return WithPluginSources(NewTypePluginSource(types...))
}

// WithObserver registers observer for eventTypes, or for every event.
func WithObserver(observer Observer, eventTypes ...string) Option {
	return func(app *Application) error {
		if observer == nil {
			return errors.New("observer cannot be nil")
		}
		app.events.register(observer, eventTypes...)
		return nil
	}
}

// WithTypeRegistry shares a registry of module types, so that modules named
// in manifests resolve to their Go types.
func WithTypeRegistry(registry *TypeRegistry) Option {
	return func(app *Application) error {
		if registry == nil {
			return errors.New("type registry cannot be nil")
		}
		app.types = registry
		return nil
	}
}

// WithModuleType registers T with the application's type registry.
func WithModuleType[T any]() Option {
	return func(app *Application) error {
		Register[T](app.types)
		return nil
	}
}

// WithServiceRegistry shares a service registry with the host.
func WithServiceRegistry(services *ServiceRegistry) Option {
	return func(app *Application) error {
		if services == nil {
			return errors.New("service registry cannot be nil")
		}
		app.services = services
		return nil
	}
}
