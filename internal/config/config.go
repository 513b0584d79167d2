// Package config decodes the pipeline's YAML configuration file. Loading
// and parsing config is CLI glue the pipeline core never touches; the core
// only ever sees the decoded Config value. The "tasks" mapping preserves
// insertion order, because that order is the pipeline order.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Workers holds the kind-default worker pool sizes.
type Workers struct {
	CPUWorkers int `yaml:"cpu_workers"`
	GPUWorkers int `yaml:"gpu_workers"`
	IOWorkers  int `yaml:"io_workers"`
}

// TaskConfig is one entry of the ordered "tasks" mapping.
type TaskConfig struct {
	ID     string
	Values map[string]any
}

// OrderedMap preserves the YAML mapping's key order, unlike a plain Go map.
// yaml.v3 hands UnmarshalYAML a *yaml.Node whose MappingNode.Content keeps
// keys and values interleaved in document order, which is what we walk.
type OrderedMap []TaskConfig

func (m *OrderedMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == 0 {
		*m = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("config: expected a mapping, got kind %v", node.Kind)
	}
	out := make(OrderedMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		var values map[string]any
		if err := valNode.Decode(&values); err != nil {
			return fmt.Errorf("config: decoding entry %q: %w", keyNode.Value, err)
		}
		out = append(out, TaskConfig{ID: keyNode.Value, Values: values})
	}
	*m = out
	return nil
}

// Config is the fully-decoded pipeline configuration.
type Config struct {
	LogLevel            string                    `yaml:"log_level"`
	Workers             Workers                   `yaml:"workers"`
	Input               map[string]map[string]any `yaml:"input"`
	Output              map[string]map[string]any `yaml:"output"`
	Tasks               OrderedMap                `yaml:"tasks"`
	Env                 map[string]any            `yaml:"env"`
	SuppressInvalidKeys bool                      `yaml:"suppress_invalid_keys"`
}

// Load reads and decodes a YAML config file, applying the kind-default
// worker counts (1) where the file omits them.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes raw YAML bytes into a Config, applying the same worker
// defaults as Load. Exposed separately so tests and other callers that
// already hold the YAML bytes can skip the filesystem.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Workers.CPUWorkers < 1 {
		cfg.Workers.CPUWorkers = 1
	}
	if cfg.Workers.GPUWorkers < 1 {
		cfg.Workers.GPUWorkers = 1
	}
	if cfg.Workers.IOWorkers < 1 {
		cfg.Workers.IOWorkers = 1
	}
}
