package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gradbook-dev/gradbook/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "gradbook.json"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultVerifyTimeout bounds one password verification round trip.
	DefaultVerifyTimeout = 10 * time.Second
)

// Config represents the complete gradbook.json configuration.
type Config struct {
	// Name is the deployment name, used only for logging.
	Name string `json:"name,omitempty"`

	// Host is the listen host.
	Host string `json:"host,omitempty"`

	// Port is the listen port.
	Port int `json:"port,omitempty"`

	// Verify configures the password verification backend.
	Verify VerifyConfig `json:"verify,omitempty"`

	// SeedFile is an optional JSON file of graduations loaded at startup.
	SeedFile string `json:"seedFile,omitempty"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// VerifyConfig configures the password verification backend.
type VerifyConfig struct {
	// Endpoint is the verification service URL. Empty means the built-in
	// handler mounted on this server.
	Endpoint string `json:"endpoint,omitempty"`

	// TimeoutSeconds bounds one verification round trip.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`
}

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		Name: "gradbook",
		Host: DefaultHost,
		Port: DefaultPort,
	}
}

// Load reads configuration from the specified directory. It looks for
// gradbook.json there; a missing file yields defaults rather than an
// error, so a bare checkout runs without one.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := New()
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, errors.New(errors.CategoryConfig, "failed to read "+ConfigFileName).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CategoryConfig, ConfigFileName+" is not valid JSON").Wrap(err)
	}
	cfg.configPath = path
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "gradbook"
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
}

// applyEnv applies GRADBOOK_* environment overrides on top of the file.
func (c *Config) applyEnv() {
	if host := os.Getenv("GRADBOOK_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv("GRADBOOK_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
	if ep := os.Getenv("GRADBOOK_VERIFY_ENDPOINT"); ep != "" {
		c.Verify.Endpoint = ep
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.Newf(errors.CategoryConfig, "port %d out of range", c.Port)
	}
	if c.Verify.TimeoutSeconds < 0 {
		return errors.Newf(errors.CategoryConfig, "verify timeout %ds is negative", c.Verify.TimeoutSeconds)
	}
	return nil
}

// Path returns the path the config was loaded from, or empty when
// defaults were used.
func (c *Config) Path() string {
	return c.configPath
}

// Address returns the host:port listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// VerifyTimeout returns the configured verification bound.
func (c *Config) VerifyTimeout() time.Duration {
	if c.Verify.TimeoutSeconds > 0 {
		return time.Duration(c.Verify.TimeoutSeconds) * time.Second
	}
	return DefaultVerifyTimeout
}
