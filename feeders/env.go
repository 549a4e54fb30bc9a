package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// EnvFeeder reads environment variables named by `env` struct tags. With a
// Prefix of "MODGRAPH", a field tagged `env:"HOOK_TIMEOUT"` is read from
// MODGRAPH_HOOK_TIMEOUT. Unset and empty variables leave the field alone.
type EnvFeeder struct {
	Prefix string

	// Lookup replaces os.LookupEnv, mostly for tests.
	Lookup func(key string) (string, bool)
}

// NewEnvFeeder creates a new EnvFeeder reading variables that start with prefix.
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix}
}

var durationType = reflect.TypeOf(time.Duration(0))

// Feed implements Feeder.
func (f EnvFeeder) Feed(target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	return f.fillStruct(reflect.ValueOf(target).Elem())
}

func (f EnvFeeder) fillStruct(rv reflect.Value) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)
		if !fieldType.IsExported() {
			continue
		}
		if field.Kind() == reflect.Struct && fieldType.Type != durationType {
			if err := f.fillStruct(field); err != nil {
				return err
			}
			continue
		}
		tag, ok := fieldType.Tag.Lookup("env")
		if !ok || tag == "-" {
			continue
		}
		value, ok := f.lookup(f.envName(tag))
		if !ok || value == "" {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
		}
	}
	return nil
}

func (f EnvFeeder) envName(tag string) string {
	name := strings.ToUpper(tag)
	if f.Prefix != "" {
		name = strings.ToUpper(strings.TrimSuffix(f.Prefix, "_")) + "_" + name
	}
	return name
}

func (f EnvFeeder) lookup(key string) (string, bool) {
	if f.Lookup != nil {
		return f.Lookup(key)
	}
	return os.LookupEnv(key)
}

// setFieldValue converts and sets a field value. Slices are read as comma
// separated lists.
func setFieldValue(field reflect.Value, strValue string) error {
	if !field.CanSet() {
		return ErrEnvFieldCannotSet
	}
	if field.Kind() == reflect.Slice {
		parts := strings.Split(strValue, ",")
		slice := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			elem, err := convert(part, field.Type().Elem())
			if err != nil {
				return err
			}
			slice = reflect.Append(slice, elem)
		}
		field.Set(slice)
		return nil
	}
	v, err := convert(strValue, field.Type())
	if err != nil {
		return err
	}
	field.Set(v)
	return nil
}

func convert(s string, t reflect.Type) (reflect.Value, error) {
	if t == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w %q to %v: %w", ErrEnvCannotConvert, s, t, err)
		}
		return reflect.ValueOf(d), nil
	}
	converted, err := cast.FromType(s, t)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w %q to %v: %w", ErrEnvCannotConvert, s, t, err)
	}
	return reflect.ValueOf(converted).Convert(t), nil
}
