package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modgraph"
)

// NewPluginsCommand creates the plugins command
func NewPluginsCommand(opts *globalOptions) *cobra.Command {
	var (
		dir       string
		recursive bool
		watch     bool
	)
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the modules contributed by a plugin folder",
		Long: `List every module declared by the manifests in a plugin folder. With
--watch, the list is printed again whenever a manifest changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				return errors.New("--dir is required")
			}
			source := modgraph.NewFolderPluginSource(dir, recursive)
			mods, err := source.PluginModules(cmd.Context())
			if err != nil {
				return err
			}
			writePlugins(cmd.OutOrStdout(), mods)
			if !watch {
				return nil
			}

			logger := opts.Logger()
			return source.Watch(cmd.Context(), func(mods []modgraph.PluginModule, err error) {
				if err != nil {
					logger.Error("Failed to read plugin folder", "dir", dir, "error", err)
					return
				}
				fmt.Fprintln(cmd.OutOrStdout(), "---")
				writePlugins(cmd.OutOrStdout(), mods)
			}, logger)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Plugin folder")
	cmd.Flags().BoolVar(&recursive, "recursive", false, "Include sub-folders")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and print changes")
	return cmd
}

func writePlugins(w io.Writer, mods []modgraph.PluginModule) {
	for _, m := range mods {
		switch {
		case m.DependsOn == nil:
			fmt.Fprintf(w, "%s\n", m.Type)
		case len(m.DependsOn) == 0:
			fmt.Fprintf(w, "%s (no dependencies)\n", m.Type)
		default:
			deps := make([]string, len(m.DependsOn))
			for i, d := range m.DependsOn {
				deps[i] = d.String()
			}
			fmt.Fprintf(w, "%s (depends on: %s)\n", m.Type, strings.Join(deps, ", "))
		}
	}
}
