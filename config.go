package json2graph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents a json2graph YAML configuration file.
//
// Example:
//
//	addr: "localhost:6379"
//	graph: "inventory"
//	root_label: "Catalog"
//	cache_policy: "importer"
type Config struct {
	// Addr is the FalkorDB address as host:port.
	Addr string `yaml:"addr"`

	// Username for servers with ACL authentication enabled.
	Username string `yaml:"username,omitempty"`

	// Password for authenticated servers.
	Password string `yaml:"password,omitempty"`

	// Graph is the name of the graph statements are executed against.
	Graph string `yaml:"graph"`

	// RootLabel is the default root label for conversions.
	RootLabel string `yaml:"root_label,omitempty"`

	// CachePolicy is the node cache lifetime: "importer" (default) or
	// "convert".
	CachePolicy string `yaml:"cache_policy,omitempty"`
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	const op = "json2graph.LoadConfig"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newNotFoundError(op, fmt.Errorf("read config %s: %w", path, err))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, newConfigurationError(op, fmt.Errorf("%w: parse config %s: %v", ErrInvalidConfig, path, err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, newConfigurationError(op, err)
	}

	return &cfg, nil
}

// Validate checks the configuration for obviously bad values. Empty fields
// are allowed; the importer falls back to its defaults.
func (c *Config) Validate() error {
	if c.CachePolicy != "" {
		if _, err := parseCachePolicy(c.CachePolicy); err != nil {
			return err
		}
	}
	if c.Password != "" && c.Addr == "" {
		return fmt.Errorf("%w: password set without addr", ErrInvalidConfig)
	}
	return nil
}

// parseCachePolicy maps the config file spelling of a cache policy to its
// CachePolicy value.
func parseCachePolicy(s string) (CachePolicy, error) {
	switch s {
	case "importer":
		return CachePerImporter, nil
	case "convert":
		return CachePerConvert, nil
	default:
		return CachePerImporter, fmt.Errorf("%w: unknown cache_policy %q (want \"importer\" or \"convert\")", ErrInvalidConfig, s)
	}
}
