package modgraph

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// MetadataProvider returns the direct prerequisites of a module type. It must
// not recurse into the dependencies it returns. A module that declares
// nothing yields an empty slice; a type the provider knows nothing about
// yields ErrUnknownModuleType.
type MetadataProvider interface {
	Dependencies(t ModuleType) ([]ModuleType, error)
}

// PackageProvider is an optional extension of MetadataProvider that reports
// the packages associated with a module type.
type PackageProvider interface {
	Packages(t ModuleType) []string
}

// MetadataProviderFunc adapts a function to MetadataProvider.
type MetadataProviderFunc func(t ModuleType) ([]ModuleType, error)

// Dependencies calls f(t).
func (f MetadataProviderFunc) Dependencies(t ModuleType) ([]ModuleType, error) {
	return f(t)
}

// TypeMetadataProvider reads DependsOn and AdditionalPackages from a zero value
// of the module's Go type. Named-only types are looked up in the registry.
type TypeMetadataProvider struct {
	registry *TypeRegistry
}

// NewTypeMetadataProvider creates a provider. registry may be nil when every
// module type is reflect-backed.
func NewTypeMetadataProvider(registry *TypeRegistry) *TypeMetadataProvider {
	return &TypeMetadataProvider{registry: registry}
}

// Dependencies implements MetadataProvider.
func (p *TypeMetadataProvider) Dependencies(t ModuleType) (deps []ModuleType, err error) {
	zero, err := p.zeroValue(t)
	if err != nil {
		return nil, err
	}
	declarer, ok := zero.(DependencyDeclarer)
	if !ok {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			deps, err = nil, fmt.Errorf("%s.DependsOn panicked: %v", t, r)
		}
	}()
	for _, dep := range declarer.DependsOn() {
		if dep.IsZero() {
			return nil, fmt.Errorf("%w: %s declares an empty dependency", ErrInvalidModuleType, t)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// Packages implements PackageProvider.
func (p *TypeMetadataProvider) Packages(t ModuleType) []string {
	zero, err := p.zeroValue(t)
	if err != nil {
		return nil
	}
	rt := p.registry.Canonical(t).rt
	var pkgs []string
	if rt.PkgPath() != "" {
		pkgs = append(pkgs, rt.PkgPath())
	}
	if contributor, ok := zero.(PackageContributor); ok {
		func() {
			defer func() { _ = recover() }()
			pkgs = append(pkgs, contributor.AdditionalPackages()...)
		}()
	}
	return pkgs
}

// zeroValue returns a pointer to a zero value of t's Go type, so methods with
// either receiver kind are reachable. No constructor is run.
func (p *TypeMetadataProvider) zeroValue(t ModuleType) (any, error) {
	rt := p.registry.Canonical(t).rt
	if rt == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModuleType, t)
	}
	if rt.Kind() == reflect.Interface {
		return nil, fmt.Errorf("%w: %s is an interface", ErrInvalidModuleType, t)
	}
	return reflect.New(rt).Interface(), nil
}

// DeclaredMetadataProvider answers from dependency lists registered up front,
// for hosts that compose modules without relying on Go types.
type DeclaredMetadataProvider struct {
	mu       sync.RWMutex
	deps     map[string][]ModuleType
	packages map[string][]string
}

// NewDeclaredMetadataProvider creates an empty provider.
func NewDeclaredMetadataProvider() *DeclaredMetadataProvider {
	return &DeclaredMetadataProvider{
		deps:     make(map[string][]ModuleType),
		packages: make(map[string][]string),
	}
}

// Declare records the direct dependencies of t, replacing any earlier entry.
func (p *DeclaredMetadataProvider) Declare(t ModuleType, deps ...ModuleType) *DeclaredMetadataProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deps[t.name] = slices.Clone(deps)
	return p
}

// DeclarePackages records the packages associated with t.
func (p *DeclaredMetadataProvider) DeclarePackages(t ModuleType, pkgs ...string) *DeclaredMetadataProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.packages[t.name] = slices.Clone(pkgs)
	return p
}

// Dependencies implements MetadataProvider.
func (p *DeclaredMetadataProvider) Dependencies(t ModuleType) ([]ModuleType, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	deps, ok := p.deps[t.name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModuleType, t)
	}
	return slices.Clone(deps), nil
}

// Packages implements PackageProvider.
func (p *DeclaredMetadataProvider) Packages(t ModuleType) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.packages[t.name])
}

// Types returns every declared module type.
func (p *DeclaredMetadataProvider) Types() []ModuleType {
	p.mu.RLock()
	defer p.mu.RUnlock()
	types := make([]ModuleType, 0, len(p.deps))
	for name := range p.deps {
		types = append(types, NamedType(name))
	}
	slices.SortFunc(types, func(a, b ModuleType) int {
		switch {
		case a.name < b.name:
			return -1
		case a.name > b.name:
			return 1
		}
		return 0
	})
	return types
}

type chainedMetadataProvider []MetadataProvider

// MetadataProviders chains providers. Each type is answered by the first
// provider that does not report ErrUnknownModuleType.
func MetadataProviders(providers ...MetadataProvider) MetadataProvider {
	return chainedMetadataProvider(providers)
}

func (c chainedMetadataProvider) Dependencies(t ModuleType) ([]ModuleType, error) {
	for _, p := range c {
		deps, err := p.Dependencies(t)
		if errors.Is(err, ErrUnknownModuleType) {
			continue
		}
		return deps, err
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownModuleType, t)
}

func (c chainedMetadataProvider) Packages(t ModuleType) []string {
	for _, p := range c {
		if _, err := p.Dependencies(t); errors.Is(err, ErrUnknownModuleType) {
			continue
		}
		if pp, ok := p.(PackageProvider); ok {
			return pp.Packages(t)
		}
		return nil
	}
	return nil
}
