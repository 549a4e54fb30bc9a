package modgraph

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// InstanceResolver produces the runtime instance of a module type. It is the
// only capability the activator needs from a composition root. A resolver
// that cannot build t returns an error wrapping ErrNoResolver, so that
// chained resolvers (see Resolvers) fall through to the next one.
//
// Example:
//
//	resolver := modgraph.ResolverFunc(func(ctx context.Context, t modgraph.ModuleType) (modgraph.Module, error) {
//		if t.Equal(modgraph.TypeOf[BlogModule]()) {
//			return NewBlogModule(cfg), nil
//		}
//		return nil, modgraph.ErrNoResolver
//	})
type InstanceResolver interface {
	Resolve(ctx context.Context, t ModuleType) (Module, error)
}

// ResolverFunc adapts a function to InstanceResolver.
type ResolverFunc func(ctx context.Context, t ModuleType) (Module, error)

// Resolve calls f(ctx, t).
func (f ResolverFunc) Resolve(ctx context.Context, t ModuleType) (Module, error) {
	return f(ctx, t)
}

// ReflectResolver constructs modules with new(T). Named-only types are
// resolved through the registry.
type ReflectResolver struct {
	registry *TypeRegistry
}

// NewReflectResolver creates a resolver. registry may be nil.
func NewReflectResolver(registry *TypeRegistry) *ReflectResolver {
	return &ReflectResolver{registry: registry}
}

// Resolve implements InstanceResolver.
func (r *ReflectResolver) Resolve(_ context.Context, t ModuleType) (Module, error) {
	rt := r.registry.Canonical(t).rt
	if rt == nil {
		return nil, fmt.Errorf("%w: %s has no Go type", ErrNoResolver, t)
	}
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct type", ErrNoResolver, t)
	}
	return reflect.New(rt).Interface(), nil
}

// ModuleConstructor builds one module instance.
type ModuleConstructor func(ctx context.Context) (Module, error)

// ConstructorResolver resolves modules from explicitly registered constructors.
type ConstructorResolver struct {
	mu    sync.RWMutex
	ctors map[string]ModuleConstructor
}

// NewConstructorResolver creates an empty resolver.
func NewConstructorResolver() *ConstructorResolver {
	return &ConstructorResolver{ctors: make(map[string]ModuleConstructor)}
}

// Register sets the constructor for t.
func (r *ConstructorResolver) Register(t ModuleType, ctor ModuleConstructor) *ConstructorResolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[t.name] = ctor
	return r
}

// Resolve implements InstanceResolver.
func (r *ConstructorResolver) Resolve(ctx context.Context, t ModuleType) (Module, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[t.name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no constructor registered for %s", ErrNoResolver, t)
	}
	return ctor(ctx)
}

type chainedResolver []InstanceResolver

// Resolvers chains resolvers. Each type is resolved by the first resolver that
// does not report ErrNoResolver.
func Resolvers(resolvers ...InstanceResolver) InstanceResolver {
	return chainedResolver(resolvers)
}

func (c chainedResolver) Resolve(ctx context.Context, t ModuleType) (Module, error) {
	for _, r := range c {
		m, err := r.Resolve(ctx, t)
		if errors.Is(err, ErrNoResolver) {
			continue
		}
		return m, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNoResolver, t)
}
