package modgraph

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/GoCodeAlone/modgraph/feeders"
)

// DefaultShutdownTimeout bounds Application.Shutdown when the caller's
// context has no deadline.
const DefaultShutdownTimeout = 30 * time.Second

// Config holds host policy for an application. It is usually loaded with
// LoadConfig and passed to WithConfig:
//
//	cfg, err := modgraph.LoadConfig(
//		feeders.NewYamlFeeder("app.yaml"),
//		feeders.NewEnvFeeder("MODGRAPH"),
//	)
//	if err != nil {
//		return err
//	}
//	app, err := modgraph.NewApplicationFor[App](modgraph.WithConfig(cfg))
type Config struct {
	// InitializationOrder is "dependency-first" (default) or "dependents-first".
	InitializationOrder string `yaml:"initializationOrder" toml:"initializationOrder" json:"initializationOrder" env:"INITIALIZATION_ORDER"`

	// HookTimeout bounds each lifecycle hook. Zero means no limit.
	HookTimeout time.Duration `yaml:"hookTimeout" toml:"hookTimeout" json:"hookTimeout" env:"HOOK_TIMEOUT"`

	// ShutdownTimeout bounds Application.Shutdown when the caller's context
	// has no deadline. Zero means no limit. Defaults to DefaultShutdownTimeout.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" toml:"shutdownTimeout" json:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`

	// PluginFolders are scanned for module manifests on every load. From the
	// environment they are a comma separated list.
	PluginFolders []string `yaml:"pluginFolders" toml:"pluginFolders" json:"pluginFolders" env:"PLUGIN_FOLDERS"`

	// PluginFolderRecursive includes manifests in sub-folders of every
	// plugin folder.
	PluginFolderRecursive bool `yaml:"pluginFolderRecursive" toml:"pluginFolderRecursive" json:"pluginFolderRecursive" env:"PLUGIN_FOLDER_RECURSIVE"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		InitializationOrder: DependencyFirst.String(),
		ShutdownTimeout:     DefaultShutdownTimeout,
	}
}

// LoadConfig starts from DefaultConfig and applies feeders in order.
func LoadConfig(fs ...feeders.Feeder) (Config, error) {
	cfg := DefaultConfig()
	for _, f := range fs {
		if err := f.Feed(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to feed config with %T: %w", f, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if _, err := ParseDirection(c.InitializationOrder); err != nil {
		return err
	}
	if c.HookTimeout < 0 {
		return fmt.Errorf("%w: hookTimeout must not be negative", ErrConfigInvalid)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdownTimeout must not be negative", ErrConfigInvalid)
	}
	return nil
}

// Direction returns the parsed InitializationOrder.
func (c Config) Direction() Direction {
	d, _ := ParseDirection(c.InitializationOrder)
	return d
}

// UnmarshalJSON reads durations as Go duration strings ("5s") or as
// nanosecond counts.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		HookTimeout     json.RawMessage `json:"hookTimeout"`
		ShutdownTimeout json.RawMessage `json:"shutdownTimeout"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var err error
	if c.HookTimeout, err = jsonDuration(aux.HookTimeout, c.HookTimeout); err != nil {
		return fmt.Errorf("hookTimeout: %w", err)
	}
	if c.ShutdownTimeout, err = jsonDuration(aux.ShutdownTimeout, c.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdownTimeout: %w", err)
	}
	return nil
}

func jsonDuration(raw json.RawMessage, current time.Duration) (time.Duration, error) {
	if len(raw) == 0 {
		return current, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return time.ParseDuration(s)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: invalid duration %s", ErrConfigInvalid, raw)
	}
	return time.Duration(n), nil
}
