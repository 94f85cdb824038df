package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML overrides file and returns the merged Config.
// A missing path returns the defaults unchanged.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config load: %w", err)
	}

	var ov Overrides
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return Config{}, fmt.Errorf("config parse %s: %w", path, err)
	}

	return Build(ov), nil
}
