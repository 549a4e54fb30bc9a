package feeders

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONFeeder reads a JSON file. Unknown keys are rejected.
type JSONFeeder struct {
	Path     string
	Optional bool
}

// NewJSONFeeder creates a new JSONFeeder that reads from the specified JSON file
func NewJSONFeeder(filePath string) JSONFeeder {
	return JSONFeeder{Path: filePath}
}

// Feed implements Feeder.
func (j JSONFeeder) Feed(target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	data, err := readFile(j.Path, j.Optional)
	if err != nil || data == nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("failed to parse JSON %s: %w", j.Path, err)
	}
	return nil
}
