// Package feeders fills configuration structs from files and environment
// variables. Feeders run in order, so later feeders override earlier ones.
package feeders

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// Feeder populates target, which must be a pointer to a struct.
type Feeder interface {
	Feed(target any) error
}

var (
	ErrInvalidTarget     = errors.New("feeder target must be a non-nil pointer to a struct")
	ErrFileNotFound      = errors.New("configuration file not found")
	ErrEnvCannotConvert  = errors.New("cannot convert environment value")
	ErrEnvFieldCannotSet = errors.New("field cannot be set")
)

func checkTarget(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", ErrInvalidTarget, target)
	}
	return nil
}

// readFile returns the file's content. A missing file is reported with
// ErrFileNotFound unless optional is set, in which case nil data is returned.
func readFile(path string, optional bool) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
