package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FromYAML parses a YAML document into a configuration. The document
// must be a mapping at the top level.
func FromYAML(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return &Config{root: normalizeMap(raw)}, nil
}

// LoadYAML reads and parses a YAML configuration file.
func LoadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	c, err := FromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// ToYAML serializes the configuration tree.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c.root)
	if err != nil {
		return nil, fmt.Errorf("config: encoding yaml: %w", err)
	}
	return data, nil
}

// normalizeMap rewrites decoded YAML maps so every section is a
// map[string]any regardless of key style in the document.
func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return normalizeMap(vv)
	case map[any]any:
		out := make(map[string]any, len(vv))
		for k, e := range vv {
			out[fmt.Sprint(k)] = normalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
