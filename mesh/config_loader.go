package mesh

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the configuration from a YAML file. Fields the file leaves
// out keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigOrDefault loads path if it exists and falls back to DefaultConfig otherwise
func LoadConfigOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// Validate checks thresholds and scanner entries
func (c *Config) Validate() error {
	reg := c.Registration
	if reg.Match.Corroboration < 2 {
		return fmt.Errorf("registration.corroboration must be at least 2, got %d", reg.Match.Corroboration)
	}
	if reg.Match.MinOverlap < 0 {
		return fmt.Errorf("registration.minOverlap must not be negative, got %d", reg.Match.MinOverlap)
	}
	if reg.MaxPasses < 0 {
		return fmt.Errorf("registration.maxPasses must not be negative, got %d", reg.MaxPasses)
	}
	if reg.Workers < 0 {
		return fmt.Errorf("registration.workers must not be negative, got %d", reg.Workers)
	}

	seen := make(map[int]bool, len(c.Scanners))
	for i, sc := range c.Scanners {
		if seen[sc.ID] {
			return fmt.Errorf("scanners[%d]: duplicate id %d", i, sc.ID)
		}
		seen[sc.ID] = true
		if sc.Color != "" {
			if _, ok := parseHexColor(sc.Color); !ok {
				return fmt.Errorf("scanners[%d]: invalid color %q", i, sc.Color)
			}
		}
	}

	if c.Render.Scale < 0 || c.Render.PointRadius < 0 || c.Render.Padding < 0 {
		return fmt.Errorf("render settings must not be negative")
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
