package config

import (
	"fmt"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Output formats accepted in the config file and by --output.
var Outputs = []string{"text", "json", "yaml", "table"}

// Adapter types.
var AdapterTypes = []string{"webhook", "redis"}

// Archive backends.
var ArchiveBackends = []string{"fs", "s3"}

// Config represents an amiresolve.yaml configuration file.
// All values are optional and act as defaults for amiresolve resolve flags.
// CLI flags always override config values.
type Config struct {
	Region            string        `yaml:"region"`
	Profile           string        `yaml:"profile"`
	Endpoint          string        `yaml:"endpoint"`
	Owners            []string      `yaml:"owners"`
	Concurrency       int           `yaml:"concurrency"`
	Output            string        `yaml:"output"`
	SuppressLogs      bool          `yaml:"suppress_logs"`
	IncludeDeprecated bool          `yaml:"include_deprecated"`
	Cache             CacheConfig   `yaml:"cache"`
	Archive           ArchiveConfig `yaml:"archive"`
	Adapter           AdapterConfig `yaml:"adapter"`
}

// CacheConfig holds result cache defaults.
type CacheConfig struct {
	Dir string   `yaml:"dir"`
	TTL Duration `yaml:"ttl"`
}

// ArchiveConfig holds archive defaults.
type ArchiveConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds notification adapter defaults.
type AdapterConfig struct {
	Type            string            `yaml:"type"`
	URL             string            `yaml:"url"`
	Channel         string            `yaml:"channel,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	Secret          string            `yaml:"secret,omitempty"`
	Timeout         Duration          `yaml:"timeout,omitempty"`
	Retries         *int              `yaml:"retries,omitempty"`
	LatestKeyPrefix string            `yaml:"latest_key_prefix,omitempty"`
	LatestTTL       Duration          `yaml:"latest_ttl,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks enumerated and numeric fields.
// Empty values are valid; they mean "use the flag default".
func (c *Config) Validate() error {
	if c.Output != "" && !slices.Contains(Outputs, c.Output) {
		return fmt.Errorf("output: unknown format %q", c.Output)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency: must be >= 0, got %d", c.Concurrency)
	}
	if c.Archive.Backend != "" && !slices.Contains(ArchiveBackends, c.Archive.Backend) {
		return fmt.Errorf("archive.backend: unknown backend %q", c.Archive.Backend)
	}
	if c.Adapter.Type != "" && !slices.Contains(AdapterTypes, c.Adapter.Type) {
		return fmt.Errorf("adapter.type: unknown adapter %q", c.Adapter.Type)
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		return fmt.Errorf("adapter.retries: must be >= 0, got %d", *c.Adapter.Retries)
	}
	return nil
}
