// Package config loads the optional YAML server configuration: endpoint
// host overrides and the registry file location. Everything has a
// working default, the file only exists for self-hosted or test setups.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the server-side configuration document.
type Config struct {
	// AccountHost serves the profile endpoints.
	AccountHost string `yaml:"accountHost"`
	// ConsentHost serves the login consent page.
	ConsentHost string `yaml:"consentHost"`
	// PollHost serves the token exchange poll endpoint.
	PollHost string `yaml:"pollHost"`
	// RegistryPath is where the account registry JSON lives.
	RegistryPath string `yaml:"registryPath"`
}

func defaults() Config {
	return Config{
		AccountHost: "https://cursor.com",
		ConsentHost: "https://cursor.com",
		PollHost:    "https://api2.cursor.sh",
	}
}

// Load reads the first config file found and fills in defaults for
// anything unset. No file at all is fine and yields pure defaults.
func Load() (Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return Config{}, err
	}
	cfg := defaults()
	if path == "" {
		cfg.RegistryPath = defaultRegistryPath()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := defaults()
	if strings.TrimSpace(c.AccountHost) == "" {
		c.AccountHost = d.AccountHost
	}
	if strings.TrimSpace(c.ConsentHost) == "" {
		c.ConsentHost = d.ConsentHost
	}
	if strings.TrimSpace(c.PollHost) == "" {
		c.PollHost = d.PollHost
	}
	if strings.TrimSpace(c.RegistryPath) == "" {
		c.RegistryPath = defaultRegistryPath()
	}
}

func resolveConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("SWITCHBOARD_CONFIG_FILE")); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	candidates := []string{
		"config/switchboard.yaml",
		"./config/switchboard.yaml",
		"/etc/switchboard/switchboard.yaml",
	}
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		candidates = append(candidates,
			filepath.Join(homeDir, ".config", "switchboard", "switchboard.yaml"),
			filepath.Join(homeDir, ".switchboard", "switchboard.yaml"),
		)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

func defaultRegistryPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "accounts.json"
	}
	return filepath.Join(homeDir, ".config", "switchboard", "accounts.json")
}
