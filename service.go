package modgraph

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// ServiceRegistry holds the services modules contribute while configuring and
// consume while initializing. Names are unique; registering a name twice
// fails with ErrServiceAlreadyRegistered.
//
// Example:
//
//	// in Configure
//	if err := cc.Services.Register("clock", clock.New()); err != nil {
//		return err
//	}
//
//	// in Initialize
//	var c clock.Clock
//	if err := ic.Services.Get("clock", &c); err != nil {
//		return err
//	}
type ServiceRegistry struct {
	mu       sync.RWMutex
	services map[string]any
	order    []string
	logger   Logger
}

// NewServiceRegistry creates an empty registry.
func NewServiceRegistry(logger Logger) *ServiceRegistry {
	if logger == nil {
		logger = discardLogger()
	}
	return &ServiceRegistry{services: make(map[string]any), logger: logger}
}

// Register adds a service under name.
func (r *ServiceRegistry) Register(name string, service any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[name]; exists {
		return fmt.Errorf("%w: %s", ErrServiceAlreadyRegistered, name)
	}
	r.services[name] = service
	r.order = append(r.order, name)
	r.logger.Debug("Registered service", "name", name, "type", reflect.TypeOf(service))
	return nil
}

// Has reports whether name is registered.
func (r *ServiceRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[name]
	return ok
}

// Names returns service names in registration order.
func (r *ServiceRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Lookup returns the raw service registered under name.
func (r *ServiceRegistry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	return svc, ok
}

// Get assigns the service registered under name to target, which must be a
// non-nil pointer. The service is assigned when it implements target's
// interface type, is assignable to it, or is a pointer to an assignable value.
func (r *ServiceRegistry) Get(name string, target any) error {
	service, exists := r.Lookup(name)
	if !exists {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Pointer || targetValue.IsNil() {
		return ErrTargetNotPointer
	}

	serviceType := reflect.TypeOf(service)
	targetType := targetValue.Elem().Type()
	if serviceType == nil {
		return fmt.Errorf("%w: service '%s' is nil", ErrServiceIncompatible, name)
	}

	switch {
	case targetType.Kind() == reflect.Interface && serviceType.Implements(targetType):
		targetValue.Elem().Set(reflect.ValueOf(service))
		return nil
	case serviceType.AssignableTo(targetType):
		targetValue.Elem().Set(reflect.ValueOf(service))
		return nil
	case serviceType.Kind() == reflect.Pointer && serviceType.Elem().AssignableTo(targetType):
		targetValue.Elem().Set(reflect.ValueOf(service).Elem())
		return nil
	}

	return fmt.Errorf("%w: service '%s' of type %s cannot be assigned to %s",
		ErrServiceIncompatible, name, serviceType, targetType)
}

// GetService returns the service registered under name as a T.
func GetService[T any](r *ServiceRegistry, name string) (T, error) {
	var target T
	if err := r.Get(name, &target); err != nil {
		return target, err
	}
	return target, nil
}
