package modgraph

import (
	"context"
	"slices"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer is notified of loader and lifecycle events. Events are CloudEvents
// so they can be forwarded to external systems unchanged.
type Observer interface {
	// OnEvent is called synchronously, in registration order. Errors are
	// logged and never abort a load or a phase.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// EventType constants for events emitted by the loader and the application.
const (
	// Discovery and activation
	EventTypeModuleDiscovered       = "com.modgraph.module.discovered"
	EventTypeModuleActivated        = "com.modgraph.module.activated"
	EventTypeModuleActivationFailed = "com.modgraph.module.activation_failed"

	// Graph
	EventTypeGraphSorted        = "com.modgraph.graph.sorted"
	EventTypeGraphCycleDetected = "com.modgraph.graph.cycle_detected"

	// Phases
	EventTypePhaseStarted       = "com.modgraph.phase.started"
	EventTypePhaseCompleted     = "com.modgraph.phase.completed"
	EventTypePhaseFailed        = "com.modgraph.phase.failed"
	EventTypeModuleHookComplete = "com.modgraph.module.hook_completed"

	// Application
	EventTypeApplicationInitialized = "com.modgraph.application.initialized"
	EventTypeApplicationShutdown    = "com.modgraph.application.shutdown"
)

// EventData is the payload of every event emitted by this package.
// Fields that do not apply to an event are left empty.
type EventData struct {
	Module     string   `json:"module,omitempty"`
	Phase      string   `json:"phase,omitempty"`
	DurationMs float64  `json:"durationMs,omitempty"`
	Error      string   `json:"error,omitempty"`
	Plugin     bool     `json:"plugin,omitempty"`
	Order      []string `json:"order,omitempty"`
}

func moduleEventData(t ModuleType, phase string, d time.Duration, err error) EventData {
	data := EventData{Module: t.String(), Phase: phase}
	if d > 0 {
		data.DurationMs = float64(d) / float64(time.Millisecond)
	}
	if err != nil {
		data.Error = err.Error()
	}
	return data
}

// FunctionalObserver creates observers from functions.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer that delegates to handler.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{id: id, handler: handler}
}

// OnEvent calls the handler function.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID returns the observer ID.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// observerRegistry delivers events to observers. A nil registry drops events.
type observerRegistry struct {
	mu            sync.RWMutex
	registrations []*observerRegistration
	source        string
	logger        Logger
}

func newObserverRegistry(source string, logger Logger) *observerRegistry {
	return &observerRegistry{source: source, logger: logger}
}

func (r *observerRegistry) register(observer Observer, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	reg := &observerRegistration{observer: observer, eventTypes: types, registeredAt: time.Now()}

	for i, existing := range r.registrations {
		if existing.observer.ObserverID() == observer.ObserverID() {
			r.registrations[i] = reg
			return
		}
	}
	r.registrations = append(r.registrations, reg)
	r.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
}

func (r *observerRegistry) unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations = slices.DeleteFunc(r.registrations, func(reg *observerRegistration) bool {
		return reg.observer.ObserverID() == id
	})
}

func (r *observerRegistry) info() []ObserverInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]ObserverInfo, 0, len(r.registrations))
	for _, reg := range r.registrations {
		types := make([]string, 0, len(reg.eventTypes))
		for t := range reg.eventTypes {
			types = append(types, t)
		}
		slices.Sort(types)
		infos = append(infos, ObserverInfo{ID: reg.observer.ObserverID(), EventTypes: types, RegisteredAt: reg.registeredAt})
	}
	return infos
}

func (r *observerRegistry) emit(ctx context.Context, eventType string, data EventData) {
	if r == nil {
		return
	}
	r.mu.RLock()
	regs := slices.Clone(r.registrations)
	r.mu.RUnlock()
	if len(regs) == 0 {
		return
	}

	event := NewCloudEvent(eventType, r.source, data, nil)
	for _, reg := range regs {
		if len(reg.eventTypes) > 0 && !reg.eventTypes[eventType] {
			continue
		}
		r.notify(ctx, reg.observer, event)
	}
}

func (r *observerRegistry) notify(ctx context.Context, observer Observer, event cloudevents.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Observer panicked", "observerID", observer.ObserverID(), "event", event.Type(), "panic", rec)
		}
	}()
	if err := observer.OnEvent(ctx, event); err != nil {
		r.logger.Error("Observer error", "observerID", observer.ObserverID(), "event", event.Type(), "error", err)
	}
}
