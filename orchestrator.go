package modgraph

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// LifecycleOrchestrator runs phases across a sorted module list, one module
// at a time. Each hook completes before the next module's hook starts.
type LifecycleOrchestrator struct {
	logger      Logger
	events      *observerRegistry
	hookTimeout time.Duration
}

// NewLifecycleOrchestrator creates an orchestrator. A positive hookTimeout
// bounds every individual hook call.
func NewLifecycleOrchestrator(logger Logger, hookTimeout time.Duration) *LifecycleOrchestrator {
	if logger == nil {
		logger = discardLogger()
	}
	return &LifecycleOrchestrator{logger: logger, hookTimeout: hookTimeout}
}

// Run executes phases in order and stops at the first failed phase.
func (o *LifecycleOrchestrator) Run(ctx context.Context, modules []*ModuleDescriptor, phases ...Phase) ([]PhaseRecord, error) {
	records := make([]PhaseRecord, 0, len(phases))
	for _, phase := range phases {
		rec, err := o.RunPhase(ctx, phase, modules)
		records = append(records, rec)
		if err != nil {
			return records, err
		}
	}
	return records, nil
}

// RunPhase invokes phase on every module in the phase's direction. Modules
// without a hook for the phase are skipped. The first failure ends the phase
// with a *LifecyclePhaseError unless the phase continues on error, in which
// case every failure is returned together.
func (o *LifecycleOrchestrator) RunPhase(ctx context.Context, phase Phase, modules []*ModuleDescriptor) (PhaseRecord, error) {
	start := time.Now()
	rec := PhaseRecord{Phase: phase.Name, Invoked: []string{}}
	o.logger.Debug("Running lifecycle phase", "phase", phase.Name, "direction", phase.Direction, "modules", len(modules))
	o.events.emit(ctx, EventTypePhaseStarted, EventData{Phase: phase.Name})

	var errs error
	for _, d := range orderFor(phase.Direction, modules) {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("phase %s cancelled before module %s: %w", phase.Name, d.moduleType, err))
			break
		}

		invoked, elapsed, err := o.invoke(ctx, phase, d)
		if invoked {
			rec.Invoked = append(rec.Invoked, d.moduleType.String())
			o.events.emit(ctx, EventTypeModuleHookComplete, moduleEventData(d.moduleType, phase.Name, elapsed, err))
		}
		if err == nil {
			continue
		}

		phaseErr := &LifecyclePhaseError{Phase: phase.Name, Module: d.moduleType, Err: err}
		o.logger.Error("Lifecycle hook failed", "phase", phase.Name, "module", d.moduleType, "error", err)
		errs = multierr.Append(errs, phaseErr)
		if !phase.ContinueOnError {
			break
		}
	}

	rec.Duration = time.Since(start)
	rec.FinishedAt = time.Now()
	if errs != nil {
		rec.State = PhaseStateFailed
		rec.Error = errs.Error()
		o.events.emit(ctx, EventTypePhaseFailed, EventData{Phase: phase.Name, Error: rec.Error})
		return rec, errs
	}
	rec.State = PhaseStateCompleted
	o.logger.Debug("Lifecycle phase completed", "phase", phase.Name, "invoked", len(rec.Invoked), "duration", rec.Duration)
	o.events.emit(ctx, EventTypePhaseCompleted, EventData{Phase: phase.Name, DurationMs: float64(rec.Duration) / float64(time.Millisecond)})
	return rec, nil
}

func (o *LifecycleOrchestrator) invoke(ctx context.Context, phase Phase, d *ModuleDescriptor) (invoked bool, elapsed time.Duration, err error) {
	if d.instance == nil {
		return false, 0, fmt.Errorf("%w: module %s is not activated", ErrInvalidApplicationState, d.moduleType)
	}
	if o.hookTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.hookTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			invoked, err = true, fmt.Errorf("%w: %v", ErrHookPanicked, r)
		}
		elapsed = time.Since(start)
	}()
	invoked, err = phase.Invoke(ctx, d.instance)
	return invoked, elapsed, err
}
