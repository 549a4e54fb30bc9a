package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/debughttp"
)

// NewOrderCommand creates the order command
func NewOrderCommand(opts *globalOptions) *cobra.Command {
	var (
		m      manifestOptions
		output string
	)
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the load order of a manifest's modules",
		Long: `Load every module reachable from the root, plus plugins found in the
manifest's plugin folders, and print them in the order they are configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "text" && output != "json" {
				return fmt.Errorf("unknown output format %q", output)
			}
			app, err := newManifestApplication(m, opts.Logger())
			if err != nil {
				return err
			}
			if err := app.LoadModules(cmd.Context()); err != nil {
				return err
			}
			views := debughttp.Views(app.Modules())
			if output == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}
			writeOrder(cmd.OutOrStdout(), views)
			return nil
		},
	}
	m.addFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text or json")
	return cmd
}

func writeOrder(w io.Writer, views []debughttp.ModuleView) {
	for _, v := range views {
		line := fmt.Sprintf("%d. %s", v.Position+1, v.Type)
		if len(v.DependsOn) > 0 {
			line += " (depends on: " + strings.Join(v.DependsOn, ", ") + ")"
		}
		if v.Plugin {
			line += " [plugin]"
		}
		fmt.Fprintln(w, line)
	}
}

// NewCheckCommand creates the check command
func NewCheckCommand(opts *globalOptions) *cobra.Command {
	var m manifestOptions
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a manifest's dependency graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newManifestApplication(m, opts.Logger())
			if err != nil {
				return err
			}
			err = app.LoadModules(cmd.Context())
			var cycle *modgraph.CircularDependencyError
			switch {
			case errors.As(err, &cycle):
				path := make([]string, len(cycle.Path))
				for i, t := range cycle.Path {
					path[i] = t.String()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cycle: %s\n", strings.Join(path, " -> "))
				return err
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d modules, %d edges\n",
				len(app.Modules()), len(modgraph.DependencyEdges(app.Modules())))
			return nil
		},
	}
	m.addFlags(cmd)
	return cmd
}

// NewDotCommand creates the dot command
func NewDotCommand(opts *globalOptions) *cobra.Command {
	var m manifestOptions
	cmd := &cobra.Command{
		Use:   "dot",
		Short: "Print the dependency graph in Graphviz dot format",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newManifestApplication(m, opts.Logger())
			if err != nil {
				return err
			}
			if err := app.LoadModules(cmd.Context()); err != nil {
				return err
			}
			writeDot(cmd.OutOrStdout(), app.Modules())
			return nil
		},
	}
	m.addFlags(cmd)
	return cmd
}

func writeDot(w io.Writer, modules []*modgraph.ModuleDescriptor) {
	fmt.Fprintln(w, "digraph modules {")
	fmt.Fprintln(w, "  rankdir=BT;")
	for _, d := range modules {
		attrs := ""
		if d.IsPlugin() {
			attrs = " [style=dashed]"
		}
		fmt.Fprintf(w, "  %q%s;\n", d.Type().String(), attrs)
	}
	for _, e := range modgraph.DependencyEdges(modules) {
		fmt.Fprintf(w, "  %q -> %q;\n", e.From.String(), e.To.String())
	}
	fmt.Fprintln(w, "}")
}
