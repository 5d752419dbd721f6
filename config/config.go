package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReadYAMLFileAndUnmarshal decodes the yaml file into v.
func ReadYAMLFileAndUnmarshal(file string, v interface{}) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("error reading yaml config file: %w", err)
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		return fmt.Errorf("error decoding config from yaml: %w", err)
	}
	return nil
}

// MarshalYAMLAndWriteFile is the inverse of ReadYAMLFileAndUnmarshal.
func MarshalYAMLAndWriteFile(file string, v interface{}) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding config to yaml: %w", err)
	}
	if err := os.WriteFile(file, b, 0o644); err != nil {
		return fmt.Errorf("error writing yaml config file: %w", err)
	}
	return nil
}
