package modgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlManifest = `
root: app.Root
pluginFolders: [plugins]
modules:
  - type: app.Root
    dependsOn: [app.Data]
  - type: app.Data
    dependsOn: []
    packages: [example.com/data]
  - type: app.Metrics
`

func TestParseManifest_Formats(t *testing.T) {
	tomlManifest := `
root = "app.Root"
plugin_folders = ["plugins"]

[[modules]]
type = "app.Root"
depends_on = ["app.Data"]

[[modules]]
type = "app.Data"
depends_on = []
packages = ["example.com/data"]

[[modules]]
type = "app.Metrics"
`
	jsonManifest := `{
  "root": "app.Root",
  "pluginFolders": ["plugins"],
  "modules": [
    {"type": "app.Root", "dependsOn": ["app.Data"]},
    {"type": "app.Data", "dependsOn": [], "packages": ["example.com/data"]},
    {"type": "app.Metrics"}
  ]
}`
	for format, data := range map[ManifestFormat]string{
		ManifestYAML: yamlManifest,
		ManifestTOML: tomlManifest,
		ManifestJSON: jsonManifest,
	} {
		t.Run(string(format), func(t *testing.T) {
			m, err := ParseManifest([]byte(data), format)
			require.NoError(t, err)
			assert.Equal(t, "app.Root", m.RootType().String())
			assert.Equal(t, []string{"plugins"}, m.PluginFolders)
			require.Len(t, m.Modules, 3)

			mods := m.PluginModules()
			assert.Equal(t, []string{"app.Data"}, names(mods[0].DependsOn))
			assert.NotNil(t, mods[1].DependsOn, "an explicit empty list is a declaration")
			assert.Empty(t, mods[1].DependsOn)
			assert.Equal(t, []string{"example.com/data"}, mods[1].Packages)
			assert.Nil(t, mods[2].DependsOn, "a missing list defers to metadata")
		})
	}
}

func TestParseManifest_Invalid(t *testing.T) {
	_, err := ParseManifest([]byte("modules:\n  - type: ''\n"), ManifestYAML)
	assert.ErrorIs(t, err, ErrManifestEntry)

	_, err = ParseManifest([]byte("modules:\n  - type: a.A\n  - type: a.A\n"), ManifestYAML)
	assert.ErrorIs(t, err, ErrManifestEntry)

	_, err = ParseManifest([]byte("modules:\n  - type: a.A\n    dependsOn: ['']\n"), ManifestYAML)
	assert.ErrorIs(t, err, ErrManifestEntry)

	_, err = ParseManifest([]byte(`{"modules":[],"extra":true}`), ManifestJSON)
	assert.Error(t, err)

	_, err = ParseManifest([]byte("modules: [[["), ManifestYAML)
	assert.Error(t, err)

	_, err = ParseManifest(nil, ManifestFormat("xml"))
	assert.ErrorIs(t, err, ErrManifestFormat)
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlManifest), 0o600))

	m, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Len(t, m.Modules, 3)

	_, err = ReadManifest(filepath.Join(dir, "app.ini"))
	assert.ErrorIs(t, err, ErrManifestFormat)

	_, err = ReadManifest(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestManifest_MetadataProvider(t *testing.T) {
	m, err := ParseManifest([]byte(yamlManifest), ManifestYAML)
	require.NoError(t, err)
	p := m.MetadataProvider()

	deps, err := p.Dependencies(NamedType("app.Root"))
	require.NoError(t, err)
	assert.Equal(t, []string{"app.Data"}, names(deps))

	deps, err = p.Dependencies(NamedType("app.Metrics"))
	require.NoError(t, err)
	assert.Empty(t, deps)
	assert.Equal(t, []string{"example.com/data"}, p.Packages(NamedType("app.Data")))
}

func TestManifestFormatFor(t *testing.T) {
	for path, want := range map[string]ManifestFormat{
		"a.yaml": ManifestYAML, "b.YML": ManifestYAML, "c.toml": ManifestTOML, "d.json": ManifestJSON,
	} {
		got, ok := ManifestFormatFor(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}
	_, ok := ManifestFormatFor("README.md")
	assert.False(t, ok)
}
