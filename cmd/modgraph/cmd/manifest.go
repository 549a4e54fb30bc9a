package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modgraph"
)

// manifestOptions locate a manifest and the root module inside it.
type manifestOptions struct {
	file string
	root string
}

func (m *manifestOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&m.file, "file", "f", "", "Manifest file (yaml, toml or json)")
	cmd.Flags().StringVar(&m.root, "root", "", "Root module type (defaults to the manifest's root, then its first module)")
	_ = cmd.MarkFlagRequired("file")
}

// placeholderModule stands in for a module known only by name.
type placeholderModule struct {
	Type modgraph.ModuleType
}

func placeholderResolver() modgraph.InstanceResolver {
	return modgraph.ResolverFunc(func(_ context.Context, t modgraph.ModuleType) (modgraph.Module, error) {
		return &placeholderModule{Type: t}, nil
	})
}

// newManifestApplication builds an application from the manifest. Plugin
// folders are resolved relative to the manifest.
func newManifestApplication(m manifestOptions, logger modgraph.Logger, extra ...modgraph.Option) (*modgraph.Application, error) {
	manifest, err := modgraph.ReadManifest(m.file)
	if err != nil {
		return nil, err
	}

	root := modgraph.NamedType(m.root)
	if root.IsZero() {
		root = manifest.RootType()
	}
	if root.IsZero() && len(manifest.Modules) > 0 {
		root = modgraph.NamedType(manifest.Modules[0].Type)
	}
	if root.IsZero() {
		return nil, errors.New("manifest declares no modules and no --root was given")
	}

	opts := []modgraph.Option{
		modgraph.WithLogger(logger),
		modgraph.WithMetadataProvider(manifest.MetadataProvider()),
		modgraph.WithResolver(placeholderResolver()),
	}
	base := filepath.Dir(m.file)
	for _, dir := range manifest.PluginFolders {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(base, dir)
		}
		opts = append(opts, modgraph.WithPluginSources(modgraph.NewFolderPluginSource(dir, false)))
	}
	opts = append(opts, extra...)

	app, err := modgraph.NewApplication(root, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, nil
}
