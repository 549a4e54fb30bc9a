// Package metrics exports module loading and lifecycle events as Prometheus
// metrics.
package metrics

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GoCodeAlone/modgraph"
)

// ObserverID is the ID under which an Observer registers.
const ObserverID = "modgraph.metrics"

// Observer turns application events into Prometheus metrics.
type Observer struct {
	Activations    *prometheus.CounterVec
	HookDuration   *prometheus.HistogramVec
	PhaseFailures  *prometheus.CounterVec
	CyclesDetected prometheus.Counter
	LoadedModules  prometheus.Gauge
}

// NewObserver creates the metrics and registers them with reg.
func NewObserver(reg prometheus.Registerer) *Observer {
	o := &Observer{
		Activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modgraph_module_activations_total",
			Help: "Module activations by outcome",
		}, []string{"module", "outcome"}),
		HookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modgraph_hook_duration_seconds",
			Help:    "Duration of lifecycle hooks",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"phase", "module"}),
		PhaseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modgraph_phase_failures_total",
			Help: "Failed lifecycle phases",
		}, []string{"phase"}),
		CyclesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modgraph_cycles_detected_total",
			Help: "Module loads rejected because of a dependency cycle",
		}),
		LoadedModules: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modgraph_loaded_modules",
			Help: "Modules in the most recent load order",
		}),
	}
	reg.MustRegister(o.Activations, o.HookDuration, o.PhaseFailures, o.CyclesDetected, o.LoadedModules)
	return o
}

// ObserverID implements modgraph.Observer.
func (o *Observer) ObserverID() string { return ObserverID }

// OnEvent implements modgraph.Observer.
func (o *Observer) OnEvent(_ context.Context, event cloudevents.Event) error {
	data, err := modgraph.DecodeEventData(event)
	if err != nil {
		return err
	}
	switch event.Type() {
	case modgraph.EventTypeModuleActivated:
		o.Activations.WithLabelValues(data.Module, "success").Inc()
	case modgraph.EventTypeModuleActivationFailed:
		o.Activations.WithLabelValues(data.Module, "failure").Inc()
	case modgraph.EventTypeModuleHookComplete:
		d := time.Duration(data.DurationMs * float64(time.Millisecond))
		o.HookDuration.WithLabelValues(data.Phase, data.Module).Observe(d.Seconds())
	case modgraph.EventTypePhaseFailed:
		o.PhaseFailures.WithLabelValues(data.Phase).Inc()
	case modgraph.EventTypeGraphCycleDetected:
		o.CyclesDetected.Inc()
	case modgraph.EventTypeGraphSorted:
		o.LoadedModules.Set(float64(len(data.Order)))
	}
	return nil
}
