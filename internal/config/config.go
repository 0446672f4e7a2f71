// Package config provides YAML-based configuration loading for crewclock.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "2m".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level crewclock configuration, loaded from config.yaml.
type Config struct {
	Worker    string          `yaml:"worker"`
	Device    string          `yaml:"device"`
	DBPath    string          `yaml:"db_path"`
	Remote    RemoteConfig    `yaml:"remote"`
	Sync      SyncConfig      `yaml:"sync"`
	Notify    NotifyConfig    `yaml:"notify"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// RemoteConfig selects and configures the remote backend adapter.
type RemoteConfig struct {
	Mode      string        `yaml:"mode"` // "api" or "central"
	Endpoint  string        `yaml:"endpoint"`
	Token     string        `yaml:"token"`
	TokenFile string        `yaml:"token_file"`
	Central   CentralConfig `yaml:"central"`
}

// CentralConfig holds connection settings for the central MySQL server,
// used when the device syncs directly over the depot network.
type CentralConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// SyncConfig controls the background sweep.
type SyncConfig struct {
	Interval Duration `yaml:"interval"`
	Timeout  Duration `yaml:"timeout"`
	Schedule string   `yaml:"schedule"` // optional 5-field cron for full sweeps
}

// NotifyConfig configures supervisor notification channels. All are optional.
type NotifyConfig struct {
	Command string        `yaml:"command"` // shell command template
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack bot credentials for supervisor notifications.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordConfig holds Discord bot credentials for supervisor notifications.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DashboardConfig configures the local read-model server.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultDir returns the per-user crewclock directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crewclock"
	}
	return filepath.Join(home, ".crewclock")
}

// CredentialsPath is where `cwc login` stores the remote API token.
func CredentialsPath() string {
	return filepath.Join(DefaultDir(), "credentials")
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(DefaultDir(), "crewclock.db")
	}
	if c.Remote.Mode == "" {
		c.Remote.Mode = "api"
	}
	if c.Remote.TokenFile == "" {
		c.Remote.TokenFile = CredentialsPath()
	}
	if c.Remote.Central.Host == "" {
		c.Remote.Central.Host = "127.0.0.1"
	}
	if c.Remote.Central.Port == 0 {
		c.Remote.Central.Port = 3306
	}
	if c.Remote.Central.Database == "" {
		c.Remote.Central.Database = "crewclock"
	}
	if c.Remote.Central.User == "" {
		c.Remote.Central.User = "crewclock"
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = Duration(2 * time.Minute)
	}
	if c.Sync.Timeout == 0 {
		c.Sync.Timeout = Duration(10 * time.Second)
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8787
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Worker == "" {
		errs = append(errs, "worker is required")
	}
	switch c.Remote.Mode {
	case "api":
		if c.Remote.Endpoint == "" {
			errs = append(errs, "remote.endpoint is required in api mode")
		}
	case "central":
	default:
		errs = append(errs, fmt.Sprintf("remote.mode %q is not one of api, central", c.Remote.Mode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// APIToken returns the remote API token, preferring the inline value and
// falling back to the token file written by `cwc login`.
func (c *Config) APIToken() (string, error) {
	if c.Remote.Token != "" {
		return c.Remote.Token, nil
	}
	data, err := os.ReadFile(c.Remote.TokenFile)
	if err != nil {
		return "", fmt.Errorf("config: read token file %s: %w", c.Remote.TokenFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}
