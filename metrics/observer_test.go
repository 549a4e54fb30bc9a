package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/modgraph"
)

type leafModule struct{}

func (*leafModule) Initialize(context.Context, *modgraph.InitializationContext) error { return nil }

type rootModule struct{}

func (*rootModule) DependsOn() []modgraph.ModuleType {
	return []modgraph.ModuleType{modgraph.TypeOf[leafModule]()}
}

type failingModule struct{}

func (*failingModule) Initialize(context.Context, *modgraph.InitializationContext) error {
	return errors.New("boom")
}

func TestObserver_RecordsLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewObserver(reg)

	app, err := modgraph.NewApplicationFor[rootModule](modgraph.WithObserver(obs))
	require.NoError(t, err)
	require.NoError(t, app.RunLifecycle(context.Background()))

	leaf := modgraph.TypeOf[leafModule]().String()
	root := modgraph.TypeOf[rootModule]().String()
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.Activations.WithLabelValues(leaf, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.Activations.WithLabelValues(root, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.LoadedModules))
	assert.Equal(t, 1, testutil.CollectAndCount(obs.HookDuration))
	assert.Equal(t, 0, testutil.CollectAndCount(obs.PhaseFailures))
}

func TestObserver_RecordsPhaseFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewObserver(reg)

	app, err := modgraph.NewApplicationFor[failingModule](modgraph.WithObserver(obs))
	require.NoError(t, err)
	require.Error(t, app.RunLifecycle(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(obs.PhaseFailures.WithLabelValues(modgraph.PhaseInitialize)))
}

type cycleA struct{}
type cycleB struct{}

func (*cycleA) DependsOn() []modgraph.ModuleType { return []modgraph.ModuleType{modgraph.TypeOf[cycleB]()} }
func (*cycleB) DependsOn() []modgraph.ModuleType { return []modgraph.ModuleType{modgraph.TypeOf[cycleA]()} }

func TestObserver_RecordsCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewObserver(reg)

	app, err := modgraph.NewApplicationFor[cycleA](modgraph.WithObserver(obs))
	require.NoError(t, err)
	err = app.LoadModules(context.Background())
	require.ErrorIs(t, err, modgraph.ErrCircularDependency)

	assert.Equal(t, 1.0, testutil.ToFloat64(obs.CyclesDetected))
	assert.Equal(t, 0.0, testutil.ToFloat64(obs.Activations.WithLabelValues(modgraph.TypeOf[cycleA]().String(), "success")))
}

func TestObserver_RejectsForeignPayload(t *testing.T) {
	obs := NewObserver(prometheus.NewRegistry())
	event := modgraph.NewCloudEvent(modgraph.EventTypeModuleActivated, "test", "not an object", nil)
	assert.Error(t, obs.OnEvent(context.Background(), event))
}
