package modgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Loader and lifecycle errors
var (
	// Module identity errors
	ErrInvalidModuleType  = errors.New("invalid module type")
	ErrUnknownModuleType  = errors.New("unknown module type")
	ErrModuleNotInCatalog = errors.New("module not in catalog")
	ErrDuplicateModule    = errors.New("duplicate module")

	// Dependency resolution errors
	ErrCircularDependency      = errors.New("circular dependency detected")
	ErrModuleDependencyMissing = errors.New("module depends on non-existent module")
	ErrRootModuleNotFound      = errors.New("root module not found in module set")

	// Activation errors
	ErrModuleActivation  = errors.New("module activation failed")
	ErrNoResolver        = errors.New("no resolver can produce module")
	ErrNilModuleInstance = errors.New("resolver returned nil module instance")

	// Lifecycle errors
	ErrLifecyclePhase          = errors.New("lifecycle phase failed")
	ErrInvalidApplicationState = errors.New("invalid application state")
	ErrHookPanicked            = errors.New("hook panicked")

	// Service registry errors
	ErrServiceAlreadyRegistered = errors.New("service already registered")
	ErrServiceNotFound          = errors.New("service not found")
	ErrTargetNotPointer         = errors.New("target must be a non-nil pointer")
	ErrServiceIncompatible      = errors.New("service cannot be assigned to target")

	// Configuration and manifest errors
	ErrConfigInvalid  = errors.New("invalid configuration")
	ErrManifestFormat = errors.New("unsupported manifest format")
	ErrManifestEntry  = errors.New("invalid manifest entry")
)

// CircularDependencyError reports a dependency cycle. Path starts and ends
// with the same module type.
type CircularDependencyError struct {
	Path []ModuleType
}

func (e *CircularDependencyError) Error() string {
	names := make([]string, len(e.Path))
	for i, t := range e.Path {
		names[i] = t.String()
	}
	return fmt.Sprintf("%s: cycle: %s", ErrCircularDependency, strings.Join(names, " → "))
}

func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// DuplicateModuleError is raised when the same module type is described
// inconsistently during a single load.
type DuplicateModuleError struct {
	Type   ModuleType
	Reason string
}

func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrDuplicateModule, e.Type, e.Reason)
}

func (e *DuplicateModuleError) Unwrap() error { return ErrDuplicateModule }

// ActivationError names the module whose instance could not be produced.
type ActivationError struct {
	Type ModuleType
	Err  error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrModuleActivation, e.Type, e.Err)
}

func (e *ActivationError) Unwrap() []error { return []error{ErrModuleActivation, e.Err} }

// LifecyclePhaseError names the module and phase whose hook failed.
type LifecyclePhaseError struct {
	Phase  string
	Module ModuleType
	Err    error
}

func (e *LifecyclePhaseError) Error() string {
	return fmt.Sprintf("%s: phase %s, module %s: %v", ErrLifecyclePhase, e.Phase, e.Module, e.Err)
}

func (e *LifecyclePhaseError) Unwrap() []error { return []error{ErrLifecyclePhase, e.Err} }

// IsErrCircularDependency reports whether err is, or wraps, a dependency cycle.
func IsErrCircularDependency(err error) bool {
	return errors.Is(err, ErrCircularDependency)
}
