package modgraph

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/dig"
)

// DigResolver resolves modules from a dig container. Module constructors are
// provided to the container like any other; the resolver remembers which
// constructor output belongs to which module type.
//
// dig caches what it builds, so a module resolved twice yields the same
// instance.
type DigResolver struct {
	container *dig.Container
	mu        sync.RWMutex
	outputs   map[string]reflect.Type
}

// NewDigResolver wraps container. A nil container creates a fresh one.
func NewDigResolver(container *dig.Container) *DigResolver {
	if container == nil {
		container = dig.New()
	}
	return &DigResolver{container: container, outputs: make(map[string]reflect.Type)}
}

// Container returns the wrapped container so hosts can provide the services
// module constructors need.
func (r *DigResolver) Container() *dig.Container { return r.container }

// ProvideModule registers a module constructor. Its first result is the
// module; the constructor may take any parameters the container can supply
// and may return an error as its last result.
func (r *DigResolver) ProvideModule(constructor any, opts ...dig.ProvideOption) (ModuleType, error) {
	ct := reflect.TypeOf(constructor)
	if ct == nil || ct.Kind() != reflect.Func || ct.NumOut() == 0 {
		return ModuleType{}, fmt.Errorf("%w: module constructor must be a function returning the module", ErrInvalidModuleType)
	}
	out := ct.Out(0)
	if err := r.container.Provide(constructor, opts...); err != nil {
		return ModuleType{}, fmt.Errorf("failed to provide module %s: %w", out, err)
	}
	t := typeFromReflect(out)
	r.mu.Lock()
	r.outputs[t.name] = out
	r.mu.Unlock()
	return t, nil
}

// Resolve implements InstanceResolver by invoking a function whose single
// parameter is the module's constructor output type.
func (r *DigResolver) Resolve(_ context.Context, t ModuleType) (Module, error) {
	r.mu.RLock()
	out, ok := r.outputs[t.name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s was not provided to the container", ErrNoResolver, t)
	}

	var resolved Module
	fnType := reflect.FuncOf([]reflect.Type{out}, nil, false)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		resolved = args[0].Interface()
		return nil
	})
	if err := r.container.Invoke(fn.Interface()); err != nil {
		return nil, fmt.Errorf("failed to resolve %s from container: %w", t, err)
	}
	return resolved, nil
}
