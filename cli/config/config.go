// Package config handles CLI configuration loading and management.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/petal-labs/oai/core"
)

// Config represents the CLI configuration file.
//
//	default_model: gpt-4o-mini
//	timeout: 30s
//	max_retries: 3
//	context:
//	  - role: system
//	    content: Answer briefly.
type Config struct {
	DefaultModel string        `yaml:"default_model"`
	BaseURL      string        `yaml:"base_url,omitempty"`
	Organization string        `yaml:"organization,omitempty"`
	Project      string        `yaml:"project,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	// MaxRetries is nil when unset so that 0 can disable retries.
	MaxRetries *int   `yaml:"max_retries,omitempty"`
	Proxy      string `yaml:"proxy,omitempty"`
	LogLevel   string `yaml:"log_level,omitempty"`

	// Context entries are loaded into every client the CLI builds.
	Context []core.ContextEntry `yaml:"context,omitempty"`
}

// DefaultConfigPath returns the default configuration file path for the current platform.
//   - macOS/Linux: ~/.oai/config.yaml
//   - Windows: %USERPROFILE%\.oai\config.yaml
func DefaultConfigPath() string {
	var homeDir string
	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}
	if homeDir == "" {
		return "config.yaml"
	}
	return filepath.Join(homeDir, ".oai", "config.yaml")
}

// LoadConfig loads configuration from the specified path.
// A missing file yields an empty config; a file that exists but cannot be
// read, parsed or validated is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields that are parsed lazily.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if _, err := c.ProxyURL(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// ProxyURL parses Proxy. It returns nil when no proxy is configured.
func (c *Config) ProxyURL() (*url.URL, error) {
	if c.Proxy == "" {
		return nil, nil
	}
	u, err := url.Parse(c.Proxy)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy %q", c.Proxy)
	}
	return u, nil
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}
