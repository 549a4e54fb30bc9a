package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/debughttp"
	"github.com/GoCodeAlone/modgraph/metrics"
)

const chainManifest = `root: R
modules:
  - type: R
    dependsOn: [M1]
  - type: M1
    dependsOn: [M2]
  - type: M2
    dependsOn: []
`

const cycleManifest = `root: M1
modules:
  - type: M1
    dependsOn: [M2]
  - type: M2
    dependsOn: [M1]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	for _, sub := range []string{"order", "check", "dot", "plugins", "serve"} {
		assert.Contains(t, out, sub)
	}
	assert.Contains(t, PrintVersion(), "modgraph vdev")
}

func TestOrderCommand_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.yaml", chainManifest)
	out, err := execute(t, "order", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, "1. M2\n2. M1 (depends on: M2)\n3. R (depends on: M1)\n", out)
}

func TestOrderCommand_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.yaml", chainManifest)
	out, err := execute(t, "order", "-f", path, "-o", "json")
	require.NoError(t, err)

	var views []debughttp.ModuleView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 3)
	assert.Equal(t, "M2", views[0].Type)
	assert.True(t, views[2].Activated)
	assert.Contains(t, views[2].InstanceType, "placeholderModule")
}

func TestOrderCommand_RootFlagAndPluginFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "plugins"), 0o700))
	writeFile(t, filepath.Join(dir, "plugins"), "p.yaml", "modules:\n  - type: P\n    dependsOn: [M1]\n")
	path := writeFile(t, dir, "app.yaml", chainManifest+"pluginFolders: [plugins]\n")

	out, err := execute(t, "order", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, "1. M2\n2. M1 (depends on: M2)\n3. P (depends on: M1) [plugin]\n4. R (depends on: M1)\n", out)

	out, err = execute(t, "order", "-f", path, "--root", "M1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "1. M2\n2. M1"))
}

func TestOrderCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "order")
	assert.Error(t, err, "missing --file")

	_, err = execute(t, "order", "-f", writeFile(t, dir, "app.yaml", chainManifest), "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")

	_, err = execute(t, "order", "-f", writeFile(t, dir, "empty.yaml", "modules: []\n"))
	assert.ErrorContains(t, err, "no modules")
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "check", "-f", writeFile(t, dir, "app.yaml", chainManifest))
	require.NoError(t, err)
	assert.Equal(t, "ok: 3 modules, 2 edges\n", out)

	out, err = execute(t, "check", "-f", writeFile(t, dir, "cycle.yaml", cycleManifest))
	require.ErrorIs(t, err, modgraph.ErrCircularDependency)
	assert.Equal(t, "cycle: M1 -> M2 -> M1\n", out)
}

func TestDotCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.toml", `root = "R"

[[modules]]
type = "R"
depends_on = ["M1"]

[[modules]]
type = "M1"
depends_on = []
`)
	out, err := execute(t, "dot", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, "digraph modules {\n  rankdir=BT;\n  \"M1\";\n  \"R\";\n  \"R\" -> \"M1\";\n}\n", out)
}

func TestPluginsCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "modules:\n  - type: A\n    dependsOn: [B, C]\n  - type: B\n    dependsOn: []\n")
	writeFile(t, dir, "b.json", `{"modules":[{"type":"D"}]}`)

	out, err := execute(t, "plugins", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "A (depends on: B, C)\nB (no dependencies)\nD\n", out)

	_, err = execute(t, "plugins")
	assert.ErrorContains(t, err, "--dir is required")
}

func TestServeHandler(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.yaml", chainManifest)
	reg := prometheus.NewRegistry()
	app, err := newManifestApplication(manifestOptions{file: path}, modgraph.NewZapLogger(zap.NewNop()),
		modgraph.WithObserver(metrics.NewObserver(reg)))
	require.NoError(t, err)
	require.NoError(t, app.RunLifecycle(t.Context()))

	srv := httptest.NewServer(newServeHandler(app, reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	var summary debughttp.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	resp.Body.Close()
	assert.Equal(t, debughttp.Summary{Root: "R", State: "initialized", Modules: 3}, summary)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body.String(), "modgraph_")
}
