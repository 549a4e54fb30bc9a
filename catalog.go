package modgraph

import (
	"fmt"
	"slices"
)

// ModuleCatalog holds the canonical descriptor of every module discovered
// during one load. It is not safe for concurrent use; the loader owns it for
// the duration of discovery.
type ModuleCatalog struct {
	byName   map[string]*ModuleDescriptor
	ordered  []*ModuleDescriptor
	declared map[string][]ModuleType
}

// NewModuleCatalog creates an empty catalog.
func NewModuleCatalog() *ModuleCatalog {
	return &ModuleCatalog{
		byName:   make(map[string]*ModuleDescriptor),
		declared: make(map[string][]ModuleType),
	}
}

// GetOrAdd returns the descriptor for t, creating it on first use.
func (c *ModuleCatalog) GetOrAdd(t ModuleType) *ModuleDescriptor {
	if d, ok := c.byName[t.name]; ok {
		if d.moduleType.rt == nil && t.rt != nil {
			d.moduleType = t
		}
		return d
	}
	d := &ModuleDescriptor{moduleType: t, index: len(c.ordered)}
	c.byName[t.name] = d
	c.ordered = append(c.ordered, d)
	return d
}

// Get returns the descriptor for t if it has been added.
func (c *ModuleCatalog) Get(t ModuleType) (*ModuleDescriptor, bool) {
	d, ok := c.byName[t.name]
	return d, ok
}

// Contains reports whether t has been added.
func (c *ModuleCatalog) Contains(t ModuleType) bool {
	_, ok := c.byName[t.name]
	return ok
}

// AddDependency records that from depends on to. Both must already be in the
// catalog. Repeated edges are ignored.
func (c *ModuleCatalog) AddDependency(from, to ModuleType) error {
	src, ok := c.byName[from.name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotInCatalog, from)
	}
	dst, ok := c.byName[to.name]
	if !ok {
		return fmt.Errorf("%w: %s (dependency of %s)", ErrModuleNotInCatalog, to, from)
	}
	src.addDependency(dst)
	return nil
}

// Declare records the dependency list declared for t. The first declaration
// is kept; a later declaration naming a different set of modules is a
// DuplicateModuleError.
func (c *ModuleCatalog) Declare(t ModuleType, deps []ModuleType) error {
	prev, ok := c.declared[t.name]
	if !ok {
		c.declared[t.name] = slices.Clone(deps)
		return nil
	}
	if !sameTypeSet(prev, deps) {
		return &DuplicateModuleError{
			Type:   t,
			Reason: fmt.Sprintf("conflicting dependency declarations %v and %v", prev, deps),
		}
	}
	return nil
}

// Declared returns the dependency list recorded for t, if any.
func (c *ModuleCatalog) Declared(t ModuleType) ([]ModuleType, bool) {
	deps, ok := c.declared[t.name]
	return slices.Clone(deps), ok
}

// MarkPlugin flags t as contributed by a plugin source.
func (c *ModuleCatalog) MarkPlugin(t ModuleType) {
	if d, ok := c.byName[t.name]; ok {
		d.isPlugin = true
	}
}

// AddPackages associates package paths with t.
func (c *ModuleCatalog) AddPackages(t ModuleType, pkgs ...string) {
	if d, ok := c.byName[t.name]; ok {
		d.addPackages(pkgs...)
	}
}

// AllDescriptors returns every descriptor in discovery order.
func (c *ModuleCatalog) AllDescriptors() []*ModuleDescriptor {
	return slices.Clone(c.ordered)
}

// Len returns the number of modules in the catalog.
func (c *ModuleCatalog) Len() int { return len(c.ordered) }

func sameTypeSet(a, b []ModuleType) bool {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t.name] = struct{}{}
	}
	other := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, ok := set[t.name]; !ok {
			return false
		}
		other[t.name] = struct{}{}
	}
	return len(set) == len(other)
}
