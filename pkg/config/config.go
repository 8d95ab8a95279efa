// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load reads filename and decodes it into target, see Parse.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", filename, err)
	}
	if err := Parse(data, target); err != nil {
		return fmt.Errorf("config: %s: %w", filename, err)
	}
	return nil
}

// LoadOptional loads filename when it exists. A missing file leaves target
// untouched apart from validation, so defaults set by the caller apply.
func LoadOptional[T any](filename string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return validate(target)
	}
	return Load(filename, target)
}

// Parse expands ${VAR} references in data, decodes the YAML over target and
// runs its Validate method when it has one. Keys absent from data keep the
// values already in target.
func Parse[T any](data []byte, target *T) error {
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return validate(target)
}

func validate(target any) error {
	v, ok := target.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
