package modgraph

import (
	"context"
	"strings"
	"sync"
)

// callLog records hook invocations as "Phase:module".
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// forPhase returns the modules invoked for phase, in call order.
func (l *callLog) forPhase(phase string) []string {
	var out []string
	for _, c := range l.list() {
		if p, m, ok := strings.Cut(c, ":"); ok && p == phase {
			out = append(out, m)
		}
	}
	return out
}

// hookModule implements every lifecycle hook and records each call.
type hookModule struct {
	name    string
	log     *callLog
	failOn  map[string]error
	panicOn string
	onHook  func(ctx context.Context, phase string) error
}

func (m *hookModule) record(ctx context.Context, phase string) error {
	m.log.add(phase + ":" + m.name)
	if m.panicOn == phase {
		panic("boom in " + m.name)
	}
	if m.onHook != nil {
		if err := m.onHook(ctx, phase); err != nil {
			return err
		}
	}
	return m.failOn[phase]
}

func (m *hookModule) PreConfigure(ctx context.Context, _ *ConfigurationContext) error {
	return m.record(ctx, PhasePreConfigure)
}

func (m *hookModule) Configure(ctx context.Context, _ *ConfigurationContext) error {
	return m.record(ctx, PhaseConfigure)
}

func (m *hookModule) PostConfigure(ctx context.Context, _ *ConfigurationContext) error {
	return m.record(ctx, PhasePostConfigure)
}

func (m *hookModule) PreInitialize(ctx context.Context, _ *InitializationContext) error {
	return m.record(ctx, PhasePreInitialize)
}

func (m *hookModule) Initialize(ctx context.Context, _ *InitializationContext) error {
	return m.record(ctx, PhaseInitialize)
}

func (m *hookModule) PostInitialize(ctx context.Context, _ *InitializationContext) error {
	return m.record(ctx, PhasePostInitialize)
}

func (m *hookModule) Shutdown(ctx context.Context, _ *ShutdownContext) error {
	return m.record(ctx, PhaseShutdown)
}

// testGraph declares named modules backed by hookModule instances.
type testGraph struct {
	metadata     *DeclaredMetadataProvider
	resolver     *ConstructorResolver
	log          *callLog
	modules      map[string]*hookModule
	constructed  map[string]int
	constructErr map[string]error
}

func newTestGraph() *testGraph {
	return &testGraph{
		metadata:     NewDeclaredMetadataProvider(),
		resolver:     NewConstructorResolver(),
		log:          &callLog{},
		modules:      make(map[string]*hookModule),
		constructed:  make(map[string]int),
		constructErr: make(map[string]error),
	}
}

// module declares name with deps and registers its constructor.
func (g *testGraph) module(name string, deps ...string) *testGraph {
	g.metadata.Declare(NamedType(name), namedTypes(deps)...)
	g.constructorOnly(name)
	return g
}

// constructorOnly registers a constructor without declaring metadata, as
// for modules that only a plugin source knows about.
func (g *testGraph) constructorOnly(name string) *testGraph {
	m := &hookModule{name: name, log: g.log, failOn: make(map[string]error)}
	g.modules[name] = m
	g.resolver.Register(NamedType(name), func(context.Context) (Module, error) {
		g.constructed[name]++
		if err := g.constructErr[name]; err != nil {
			return nil, err
		}
		return m, nil
	})
	return g
}

func (g *testGraph) loader() *ModuleLoader {
	return NewModuleLoader(g.metadata, NewModuleActivator(g.resolver, nil), nil, nil)
}

func (g *testGraph) application(root string, opts ...Option) (*Application, error) {
	opts = append([]Option{WithMetadataProvider(g.metadata), WithResolver(g.resolver)}, opts...)
	return NewApplication(NamedType(root), opts...)
}

func names(types []ModuleType) []string {
	return typeNames(types)
}

func descriptorNames(descs []*ModuleDescriptor) []string {
	return typeNames(ModuleTypes(descs))
}

// Go-typed fixtures read through TypeMetadataProvider.

type storageModule struct{}

type cacheModule struct{}

func (*cacheModule) DependsOn() []ModuleType { return []ModuleType{TypeOf[storageModule]()} }

type apiModule struct{}

func (apiModule) DependsOn() []ModuleType {
	return []ModuleType{TypeOf[cacheModule](), TypeOf[storageModule]()}
}

func (apiModule) AdditionalPackages() []string { return []string{"example.com/api/handlers"} }

type selfLoopModule struct{}

func (*selfLoopModule) DependsOn() []ModuleType { return []ModuleType{TypeOf[selfLoopModule]()} }

type panickyDeclarer struct{}

func (*panickyDeclarer) DependsOn() []ModuleType { panic("no deps for you") }
