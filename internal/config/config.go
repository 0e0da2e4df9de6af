// Package config resolves the tool's configuration from an optional YAML
// file, environment variables, and command-line flags, in that order of
// increasing precedence. The resolved Config value is passed explicitly to
// every component; nothing reads configuration from globals.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked for when none is specified.
const DefaultFile = "trellis-reports.yml"

// Environment variables honored between file and flags.
const (
	EnvDomain = "TRELLIS_DOMAIN"
	EnvToken  = "TRELLIS_TOKEN"
)

// Config is the resolved tool configuration.
type Config struct {
	// Domain is the store's hostname, without scheme.
	Domain string `yaml:"domain"`

	// Token is the bearer token for the store.
	Token string `yaml:"token"`

	// Concurrency bounds simultaneous in-flight fetches during the
	// crawl. Zero means the default.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Output, when set, is the local file prefix reports are written
	// under instead of being uploaded.
	Output string `yaml:"output,omitempty"`
}

// Load reads the YAML config file at path and applies environment
// overrides. An empty path falls back to DefaultFile, which may be absent;
// an explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine; env and flags may cover everything.
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if v := os.Getenv(EnvDomain); v != "" {
		cfg.Domain = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Token = v
	}
	return cfg, nil
}

// Validate checks that the configuration is complete enough to connect.
func (c *Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("no domain configured (set domain in %s, %s, or --domain)", DefaultFile, EnvDomain)
	}
	if c.Token == "" {
		return fmt.Errorf("no token configured (set token in %s, %s, or --token)", DefaultFile, EnvToken)
	}
	return nil
}
