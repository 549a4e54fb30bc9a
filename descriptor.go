package modgraph

import (
	"fmt"
	"slices"
)

// ModuleDescriptor tracks one module during a load: its identity, its direct
// prerequisites and, after activation, its instance. Descriptors are created
// and mutated by the ModuleCatalog and the ModuleActivator only.
type ModuleDescriptor struct {
	moduleType   ModuleType
	instance     Module
	dependencies []*ModuleDescriptor
	isPlugin     bool
	packages     []string
	index        int
}

// Type returns the module type.
func (d *ModuleDescriptor) Type() ModuleType { return d.moduleType }

// Instance returns the activated module, or nil before activation.
func (d *ModuleDescriptor) Instance() Module { return d.instance }

// IsActivated reports whether an instance is attached.
func (d *ModuleDescriptor) IsActivated() bool { return d.instance != nil }

// Dependencies returns the direct prerequisites in declaration order.
func (d *ModuleDescriptor) Dependencies() []*ModuleDescriptor {
	return slices.Clone(d.dependencies)
}

// DependencyTypes returns the types of the direct prerequisites.
func (d *ModuleDescriptor) DependencyTypes() []ModuleType {
	types := make([]ModuleType, len(d.dependencies))
	for i, dep := range d.dependencies {
		types[i] = dep.moduleType
	}
	return types
}

// DependsOn reports whether t is a direct prerequisite.
func (d *ModuleDescriptor) DependsOn(t ModuleType) bool {
	for _, dep := range d.dependencies {
		if dep.moduleType.Equal(t) {
			return true
		}
	}
	return false
}

// IsPlugin reports whether the module was contributed by a plugin source.
func (d *ModuleDescriptor) IsPlugin() bool { return d.isPlugin }

// Packages returns the module's own package and any it contributes.
func (d *ModuleDescriptor) Packages() []string { return slices.Clone(d.packages) }

// DiscoveryIndex is the position at which the module was first encountered.
func (d *ModuleDescriptor) DiscoveryIndex() int { return d.index }

func (d *ModuleDescriptor) String() string {
	if d.isPlugin {
		return fmt.Sprintf("%s (plugin)", d.moduleType)
	}
	return d.moduleType.String()
}

func (d *ModuleDescriptor) addDependency(dep *ModuleDescriptor) {
	if slices.Contains(d.dependencies, dep) {
		return
	}
	d.dependencies = append(d.dependencies, dep)
}

func (d *ModuleDescriptor) addPackages(pkgs ...string) {
	for _, p := range pkgs {
		if p != "" && !slices.Contains(d.packages, p) {
			d.packages = append(d.packages, p)
		}
	}
}

// ModuleTypes returns the types of the given descriptors, in order.
func ModuleTypes(descriptors []*ModuleDescriptor) []ModuleType {
	types := make([]ModuleType, len(descriptors))
	for i, d := range descriptors {
		types[i] = d.moduleType
	}
	return types
}
