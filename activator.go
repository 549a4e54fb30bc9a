package modgraph

import (
	"context"
	"fmt"
	"reflect"
)

// ModuleActivator attaches runtime instances to descriptors.
type ModuleActivator struct {
	resolver InstanceResolver
	logger   Logger
	events   *observerRegistry
}

// NewModuleActivator creates an activator backed by resolver.
func NewModuleActivator(resolver InstanceResolver, logger Logger) *ModuleActivator {
	if logger == nil {
		logger = discardLogger()
	}
	return &ModuleActivator{resolver: resolver, logger: logger}
}

// Activate returns the descriptor's instance, resolving it on first use.
// Calling Activate again on an activated descriptor returns the same
// instance without consulting the resolver. On failure the descriptor is
// left untouched and an *ActivationError is returned.
func (a *ModuleActivator) Activate(ctx context.Context, d *ModuleDescriptor) (Module, error) {
	if d.instance != nil {
		return d.instance, nil
	}

	instance, err := a.resolve(ctx, d.moduleType)
	if err != nil {
		a.logger.Error("Module activation failed", "module", d.moduleType, "error", err)
		a.events.emit(ctx, EventTypeModuleActivationFailed, moduleEventData(d.moduleType, "", 0, err))
		return nil, &ActivationError{Type: d.moduleType, Err: err}
	}

	d.instance = instance
	a.logger.Debug("Activated module", "module", d.moduleType, "instance", fmt.Sprintf("%T", instance))
	a.events.emit(ctx, EventTypeModuleActivated, moduleEventData(d.moduleType, "", 0, nil))
	return instance, nil
}

func (a *ModuleActivator) resolve(ctx context.Context, t ModuleType) (instance Module, err error) {
	if a.resolver == nil {
		return nil, ErrNoResolver
	}
	defer func() {
		if r := recover(); r != nil {
			instance, err = nil, fmt.Errorf("resolver panicked: %v", r)
		}
	}()
	instance, err = a.resolver.Resolve(ctx, t)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, ErrNilModuleInstance
	}
	if rv := reflect.ValueOf(instance); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, ErrNilModuleInstance
	}
	return instance, nil
}
