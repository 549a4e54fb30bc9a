package modgraph

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Direction is the order in which a phase visits modules.
type Direction int

const (
	// DependencyFirst visits modules in load order: prerequisites first.
	DependencyFirst Direction = iota
	// DependentsFirst visits modules in reverse load order.
	DependentsFirst
)

func (d Direction) String() string {
	switch d {
	case DependencyFirst:
		return "dependency-first"
	case DependentsFirst:
		return "dependents-first"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection parses the String form of a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dependency-first", "forward":
		return DependencyFirst, nil
	case "dependents-first", "reverse":
		return DependentsFirst, nil
	}
	return 0, fmt.Errorf("%w: unknown direction %q", ErrConfigInvalid, s)
}

// PhaseHook invokes one phase on one module. It reports invoked=false when
// the module does not take part in the phase.
type PhaseHook func(ctx context.Context, m Module) (invoked bool, err error)

// Phase is one named lifecycle step applied across every module.
//
// Custom phases can be run with LifecycleOrchestrator.RunPhase:
//
//	warmup := modgraph.Phase{
//		Name:      "Warmup",
//		Direction: modgraph.DependencyFirst,
//		Invoke: func(ctx context.Context, m modgraph.Module) (bool, error) {
//			w, ok := m.(interface{ Warmup(context.Context) error })
//			if !ok {
//				return false, nil
//			}
//			return true, w.Warmup(ctx)
//		},
//	}
type Phase struct {
	// Name identifies the phase in logs, events and the phase history.
	Name string

	// Direction is the order in which modules are visited.
	Direction Direction

	// ContinueOnError runs the remaining modules after a failure and returns
	// every failure together. Only teardown phases should set it.
	ContinueOnError bool

	// Invoke runs the phase on one module.
	Invoke PhaseHook
}

// Canonical phase names.
const (
	PhasePreConfigure   = "PreConfigure"
	PhaseConfigure      = "Configure"
	PhasePostConfigure  = "PostConfigure"
	PhasePreInitialize  = "PreInitialize"
	PhaseInitialize     = "Initialize"
	PhasePostInitialize = "PostInitialize"
	PhaseShutdown       = "Shutdown"
)

// ConfigurationPhases returns PreConfigure, Configure and PostConfigure bound
// to cc. Configuration always runs dependency first.
func ConfigurationPhases(cc *ConfigurationContext) []Phase {
	return []Phase{
		{Name: PhasePreConfigure, Direction: DependencyFirst, Invoke: func(ctx context.Context, m Module) (bool, error) {
			h, ok := m.(PreConfigurable)
			if !ok {
				return false, nil
			}
			return true, h.PreConfigure(ctx, cc)
		}},
		{Name: PhaseConfigure, Direction: DependencyFirst, Invoke: func(ctx context.Context, m Module) (bool, error) {
			h, ok := m.(Configurable)
			if !ok {
				return false, nil
			}
			return true, h.Configure(ctx, cc)
		}},
		{Name: PhasePostConfigure, Direction: DependencyFirst, Invoke: func(ctx context.Context, m Module) (bool, error) {
			h, ok := m.(PostConfigurable)
			if !ok {
				return false, nil
			}
			return true, h.PostConfigure(ctx, cc)
		}},
	}
}

// InitializationPhases returns PreInitialize, Initialize and PostInitialize
// bound to ic, visiting modules in direction.
func InitializationPhases(ic *InitializationContext, direction Direction) []Phase {
	return []Phase{
		{Name: PhasePreInitialize, Direction: direction, Invoke: func(ctx context.Context, m Module) (bool, error) {
			h, ok := m.(PreInitializable)
			if !ok {
				return false, nil
			}
			return true, h.PreInitialize(ctx, ic)
		}},
		{Name: PhaseInitialize, Direction: direction, Invoke: func(ctx context.Context, m Module) (bool, error) {
			h, ok := m.(Initializable)
			if !ok {
				return false, nil
			}
			return true, h.Initialize(ctx, ic)
		}},
		{Name: PhasePostInitialize, Direction: direction, Invoke: func(ctx context.Context, m Module) (bool, error) {
			h, ok := m.(PostInitializable)
			if !ok {
				return false, nil
			}
			return true, h.PostInitialize(ctx, ic)
		}},
	}
}

// ShutdownPhase returns the teardown phase bound to sc. It visits dependents
// first and keeps going after a failure.
func ShutdownPhase(sc *ShutdownContext) Phase {
	return Phase{Name: PhaseShutdown, Direction: DependentsFirst, ContinueOnError: true,
		Invoke: func(ctx context.Context, m Module) (bool, error) {
			h, ok := m.(Shutdownable)
			if !ok {
				return false, nil
			}
			return true, h.Shutdown(ctx, sc)
		}}
}

// StandardPhases returns the six canonical phases in order.
func StandardPhases(cc *ConfigurationContext, ic *InitializationContext, initDirection Direction) []Phase {
	return append(ConfigurationPhases(cc), InitializationPhases(ic, initDirection)...)
}

// PhaseState is the outcome of a phase run.
type PhaseState string

const (
	// PhaseStateCompleted means every participating module's hook returned
	// without error.
	PhaseStateCompleted PhaseState = "completed"

	// PhaseStateFailed means at least one hook failed, panicked or timed out,
	// or the context was cancelled before every module was visited.
	PhaseStateFailed PhaseState = "failed"
)

// PhaseRecord is one entry of an application's phase history.
type PhaseRecord struct {
	// Phase is the phase name, e.g. PhaseConfigure.
	Phase string `json:"phase"`

	State PhaseState `json:"state"`

	// Invoked lists the modules whose hook ran, in call order. Modules that
	// do not implement the phase are not listed.
	Invoked []string `json:"invoked"`

	Duration time.Duration `json:"duration"`

	// Error is the combined error text of a failed phase.
	Error string `json:"error,omitempty"`

	FinishedAt time.Time `json:"finishedAt"`
}

func orderFor(direction Direction, modules []*ModuleDescriptor) []*ModuleDescriptor {
	ordered := slices.Clone(modules)
	if direction == DependentsFirst {
		slices.Reverse(ordered)
	}
	return ordered
}
