package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	amiconfig "github.com/justapithecus/amiresolve/cli/config"
)

// Precedence for every setting: explicit CLI flag, then config file value,
// then the flag's own default.

// loadConfig loads --config when given. Returns nil without a config file.
func loadConfig(c *cli.Context) (*amiconfig.Config, error) {
	path := c.String("config")
	if path == "" {
		return nil, nil
	}
	cfg, err := amiconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// configVal reads a field from cfg, returning the zero value when cfg is nil.
func configVal[T any](cfg *amiconfig.Config, get func(*amiconfig.Config) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}

func resolveString(c *cli.Context, name, fromConfig string) string {
	if c.IsSet(name) || fromConfig == "" {
		return c.String(name)
	}
	return fromConfig
}

func resolveInt(c *cli.Context, name string, fromConfig int) int {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Int(name)
	}
	return fromConfig
}

func resolveBool(c *cli.Context, name string, fromConfig bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return fromConfig || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, fromConfig time.Duration) time.Duration {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Duration(name)
	}
	return fromConfig
}

func resolveStringSlice(c *cli.Context, name string, fromConfig []string) []string {
	if c.IsSet(name) || len(fromConfig) == 0 {
		return c.StringSlice(name)
	}
	return fromConfig
}
