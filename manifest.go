package modgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Manifest describes modules declaratively. It is the on-disk format read by
// FilePluginSource, FolderPluginSource and the modgraph command.
//
//	root: example.com/app.Root
//	modules:
//	  - type: example.com/app.Root
//	    dependsOn: [example.com/app.Data]
//	  - type: example.com/app.Data
type Manifest struct {
	Root          string           `yaml:"root,omitempty" toml:"root,omitempty" json:"root,omitempty"`
	Modules       []ManifestModule `yaml:"modules" toml:"modules" json:"modules"`
	PluginFolders []string         `yaml:"pluginFolders,omitempty" toml:"plugin_folders,omitempty" json:"pluginFolders,omitempty"`
}

// ManifestModule is one module entry. A missing dependsOn defers to the
// application's metadata provider; an empty list declares no dependencies.
type ManifestModule struct {
	Type      string   `yaml:"type" toml:"type" json:"type"`
	DependsOn []string `yaml:"dependsOn,omitempty" toml:"depends_on,omitempty" json:"dependsOn,omitempty"`
	Packages  []string `yaml:"packages,omitempty" toml:"packages,omitempty" json:"packages,omitempty"`
}

// ManifestFormat is the encoding of a manifest file.
type ManifestFormat string

const (
	ManifestYAML ManifestFormat = "yaml"
	ManifestTOML ManifestFormat = "toml"
	ManifestJSON ManifestFormat = "json"
)

// ManifestFormatFor returns the format implied by a file extension.
func ManifestFormatFor(path string) (ManifestFormat, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ManifestYAML, true
	case ".toml":
		return ManifestTOML, true
	case ".json":
		return ManifestJSON, true
	}
	return "", false
}

// ReadManifest reads and validates a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	format, ok := ManifestFormatFor(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrManifestFormat, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseManifest(data, format)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(data []byte, format ManifestFormat) (*Manifest, error) {
	var m Manifest
	switch format {
	case ManifestYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse YAML manifest: %w", err)
		}
	case ManifestTOML:
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, fmt.Errorf("failed to parse TOML manifest: %w", err)
		}
	case ManifestJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to parse JSON manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrManifestFormat, format)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every entry names a type once.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Modules))
	for i, mod := range m.Modules {
		if strings.TrimSpace(mod.Type) == "" {
			return fmt.Errorf("%w: module #%d has no type", ErrManifestEntry, i)
		}
		if seen[mod.Type] {
			return fmt.Errorf("%w: module %s listed twice", ErrManifestEntry, mod.Type)
		}
		seen[mod.Type] = true
		for _, dep := range mod.DependsOn {
			if strings.TrimSpace(dep) == "" {
				return fmt.Errorf("%w: module %s has an empty dependency", ErrManifestEntry, mod.Type)
			}
		}
	}
	return nil
}

// RootType returns the declared root module, or the zero type.
func (m *Manifest) RootType() ModuleType {
	return NamedType(m.Root)
}

// PluginModules converts the entries to plugin modules.
func (m *Manifest) PluginModules() []PluginModule {
	mods := make([]PluginModule, 0, len(m.Modules))
	for _, entry := range m.Modules {
		pm := PluginModule{Type: NamedType(entry.Type), Packages: entry.Packages}
		if entry.DependsOn != nil {
			pm.DependsOn = namedTypes(entry.DependsOn)
		}
		mods = append(mods, pm)
	}
	return mods
}

// MetadataProvider returns a provider declaring every entry. Entries without
// dependsOn declare no dependencies.
func (m *Manifest) MetadataProvider() *DeclaredMetadataProvider {
	p := NewDeclaredMetadataProvider()
	for _, entry := range m.Modules {
		t := NamedType(entry.Type)
		p.Declare(t, namedTypes(entry.DependsOn)...)
		if len(entry.Packages) > 0 {
			p.DeclarePackages(t, entry.Packages...)
		}
	}
	return p
}

func namedTypes(names []string) []ModuleType {
	types := make([]ModuleType, len(names))
	for i, n := range names {
		types[i] = NamedType(n)
	}
	return types
}
