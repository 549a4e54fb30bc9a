package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GoCodeAlone/modgraph"
)

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// PrintVersion prints version information
func PrintVersion() string {
	return fmt.Sprintf("modgraph v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// globalOptions are shared by every subcommand.
type globalOptions struct {
	verbose bool
	logger  *modgraph.ZapLogger
}

// Logger builds the zap logger lazily so that --verbose is honoured.
func (o *globalOptions) Logger() *modgraph.ZapLogger {
	if o.logger != nil {
		return o.logger
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if o.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	o.logger = modgraph.NewZapLogger(l)
	return o.logger
}

// NewRootCommand creates the root command for the modgraph application
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "modgraph",
		Short: "modgraph - inspect and run module dependency graphs",
		Long: `modgraph reads module manifests, validates their dependency graph and
prints the order in which the modules are loaded.`,
		Version:       PrintVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewOrderCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewDotCommand(opts))
	cmd.AddCommand(NewPluginsCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}
