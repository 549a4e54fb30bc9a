package modgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestTypePluginSource(t *testing.T) {
	src := NewTypePluginSource(NamedType("A")).Add(PluginModule{Type: NamedType("B"), DependsOn: []ModuleType{NamedType("A")}})
	mods, err := src.PluginModules(context.Background())
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Nil(t, mods[0].DependsOn)
	assert.Equal(t, []string{"A"}, names(mods[1].DependsOn))
}

func TestFilePluginSource(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.json")
	writeManifest(t, a, "modules:\n  - type: p.A\n")
	writeManifest(t, b, `{"modules":[{"type":"p.B","dependsOn":["p.A"]}]}`)

	mods, err := NewFilePluginSource(b, a).PluginModules(context.Background())
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal(t, "p.B", mods[0].Type.String())
	assert.Equal(t, "p.A", mods[1].Type.String())

	_, err = NewFilePluginSource(filepath.Join(dir, "nope.yaml")).PluginModules(context.Background())
	assert.Error(t, err)
}

func TestFolderPluginSource(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, filepath.Join(dir, "b.toml"), "[[modules]]\ntype = \"p.B\"\n")
	writeManifest(t, filepath.Join(dir, "a.yaml"), "modules:\n  - type: p.A\n")
	writeManifest(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeManifest(t, filepath.Join(dir, "nested", "c.yaml"), "modules:\n  - type: p.C\n")

	mods, err := NewFolderPluginSource(dir, false).PluginModules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p.A", "p.B"}, pluginNames(mods))

	mods, err = NewFolderPluginSource(dir, true).PluginModules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p.A", "p.B", "p.C"}, pluginNames(mods))

	_, err = NewFolderPluginSource(filepath.Join(dir, "missing"), false).PluginModules(context.Background())
	assert.Error(t, err)
}

func TestFolderPluginSource_InLoader(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, filepath.Join(dir, "plugin.yaml"), "modules:\n  - type: P\n    dependsOn: [M1]\n")

	g := newTestGraph().module("R", "M1").module("M1").constructorOnly("P")
	mods, err := g.loader().LoadModules(context.Background(), NamedType("R"), NewFolderPluginSource(dir, false))
	require.NoError(t, err)
	assert.Equal(t, []string{"M1", "P", "R"}, descriptorNames(mods))
}

func TestFolderWatcher_ReportsChanges(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, filepath.Join(dir, "a.yaml"), "modules:\n  - type: p.A\n")

	src := NewFolderPluginSource(dir, false)
	src.Debounce = 20 * time.Millisecond

	changes := make(chan []PluginModule, 4)
	fw, err := src.NewWatcher(func(mods []PluginModule, err error) {
		if err == nil {
			changes <- mods
		}
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Run(ctx) }()

	writeManifest(t, filepath.Join(dir, "b.yaml"), "modules:\n  - type: p.B\n")
	writeManifest(t, filepath.Join(dir, "ignored.txt"), "x")

	select {
	case mods := <-changes:
		assert.Equal(t, []string{"p.A", "p.B"}, pluginNames(mods))
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestFolderWatcher_RequiresCallback(t *testing.T) {
	_, err := NewFolderPluginSource(t.TempDir(), false).NewWatcher(nil, nil)
	assert.Error(t, err)

	_, err = NewFolderPluginSource(filepath.Join(t.TempDir(), "missing"), false).NewWatcher(func([]PluginModule, error) {}, nil)
	assert.Error(t, err)
}

func pluginNames(mods []PluginModule) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.Type.String()
	}
	return out
}
