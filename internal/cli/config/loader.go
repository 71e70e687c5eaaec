package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".statehttpd", "cli.yaml")
}

// DefaultSessionPath returns where login stores the session cookie.
func DefaultSessionPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".statehttpd", "session")
}

// Load reads the CLI configuration. A missing file yields the defaults.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration with owner-only permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Merge overrides cfg with non-empty flag values. Keys match the yaml
// field names.
func Merge(cfg *CLIConfig, flags map[string]string) *CLIConfig {
	out := *cfg
	set := func(dst *string, key string) {
		if v, ok := flags[key]; ok && v != "" {
			*dst = v
		}
	}
	set(&out.Server, "server")
	set(&out.Username, "username")
	set(&out.Password, "password")
	set(&out.CAFile, "ca_file")
	set(&out.Output, "output")
	set(&out.SessionFile, "session_file")
	if flags["insecure"] == "true" {
		out.Insecure = true
	}
	if out.SessionFile == "" {
		out.SessionFile = DefaultSessionPath()
	}
	return &out
}
