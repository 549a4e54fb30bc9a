package modgraph

import (
	"reflect"
	"sync"
)

// ModuleType identifies a module. Two ModuleType values denote the same
// module when their names are equal, whether or not they carry the Go type.
type ModuleType struct {
	name string
	rt   reflect.Type
}

// TypeOf returns the ModuleType of T. Pointer indirections are stripped, so
// TypeOf[Foo]() and TypeOf[*Foo]() name the same module.
func TypeOf[T any]() ModuleType {
	return typeFromReflect(reflect.TypeFor[T]())
}

// TypeOfModule returns the ModuleType of a module instance.
func TypeOfModule(m Module) ModuleType {
	if m == nil {
		return ModuleType{}
	}
	return typeFromReflect(reflect.TypeOf(m))
}

// NamedType returns a ModuleType that only carries a name. It is equal to the
// reflect-backed type of the same fully qualified name.
func NamedType(name string) ModuleType {
	return ModuleType{name: name}
}

func typeFromReflect(rt reflect.Type) ModuleType {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return ModuleType{name: qualifiedName(rt), rt: rt}
}

func qualifiedName(rt reflect.Type) string {
	if rt.PkgPath() == "" || rt.Name() == "" {
		return rt.String()
	}
	return rt.PkgPath() + "." + rt.Name()
}

// String returns the fully qualified type name.
func (t ModuleType) String() string { return t.name }

// IsZero reports whether t names no module.
func (t ModuleType) IsZero() bool { return t.name == "" }

// Equal reports whether t and o name the same module.
func (t ModuleType) Equal(o ModuleType) bool { return t.name == o.name }

// Reflect returns the underlying Go type, or nil for a named-only type.
func (t ModuleType) Reflect() reflect.Type { return t.rt }

// TypeRegistry maps module names to Go types so that named types read from
// manifests can be resolved to constructible types.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]reflect.Type)}
}

// Register adds T to the registry and returns its ModuleType.
func Register[T any](r *TypeRegistry) ModuleType {
	return r.Add(TypeOf[T]())
}

// Add registers a reflect-backed module type. Named-only types are returned
// unchanged.
func (r *TypeRegistry) Add(t ModuleType) ModuleType {
	if t.rt == nil {
		return t
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.name] = t.rt
	return t
}

// Canonical returns t with its Go type attached when the registry knows it.
func (r *TypeRegistry) Canonical(t ModuleType) ModuleType {
	if r == nil || t.rt != nil {
		return t
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rt, ok := r.types[t.name]; ok {
		return ModuleType{name: t.name, rt: rt}
	}
	return t
}

// Len returns the number of registered types.
func (r *TypeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}
