package feeders

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// TomlFeeder reads a TOML file.
type TomlFeeder struct {
	Path     string
	Optional bool
}

// NewTomlFeeder creates a new TomlFeeder that reads from the specified TOML file
func NewTomlFeeder(filePath string) TomlFeeder {
	return TomlFeeder{Path: filePath}
}

// Feed implements Feeder.
func (t TomlFeeder) Feed(target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	data, err := readFile(t.Path, t.Optional)
	if err != nil || data == nil {
		return err
	}
	if _, err := toml.Decode(string(data), target); err != nil {
		return fmt.Errorf("failed to parse TOML %s: %w", t.Path, err)
	}
	return nil
}
