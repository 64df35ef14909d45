// Package config loads the instrumentor configuration from YAML files.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	coreerrors "instrumentor/internal/core/errors"
	corelog "instrumentor/internal/core/log"
	"instrumentor/internal/store"
)

// Config is the root configuration.
type Config struct {
	Namespace string         `yaml:"namespace" json:"namespace"` // store keyspace for this application
	Mode      string         `yaml:"mode" json:"mode"`           // eager/buffered
	Storage   StorageConfig  `yaml:"storage" json:"storage"`
	Log       corelog.Config `yaml:"log" json:"log"`
	HTTP      HTTPConfig     `yaml:"http" json:"http"`
}

// StorageConfig selects and configures the backing store.
type StorageConfig struct {
	Type  string            `yaml:"type" json:"type"` // redis/memory
	Redis store.RedisConfig `yaml:"redis" json:"redis"`
}

// HTTPConfig configures the exposition endpoint.
type HTTPConfig struct {
	ListenAddr   string        `yaml:"listen_addr" json:"listen_addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Namespace: "instrumentor",
		Mode:      "eager",
		Storage: StorageConfig{
			Type: "redis",
			Redis: store.RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Log: corelog.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		HTTP: HTTPConfig{
			ListenAddr:   ":9901",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, cfg.Validate()
			}
			return nil, coreerrors.Wrapf(err, coreerrors.CodeConfigError, "failed to read config file %q", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, coreerrors.Wrapf(err, coreerrors.CodeConfigError, "failed to parse YAML file %q", path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return coreerrors.New(coreerrors.CodeConfigError, "namespace must not be empty")
	}
	switch c.Mode {
	case "eager", "buffered":
	default:
		return coreerrors.Newf(coreerrors.CodeConfigError, "mode must be eager or buffered, got %q", c.Mode)
	}
	switch c.Storage.Type {
	case "redis", "memory":
	default:
		return coreerrors.Newf(coreerrors.CodeConfigError, "storage type must be redis or memory, got %q", c.Storage.Type)
	}
	if c.Storage.Type == "redis" && c.Storage.Redis.Addr == "" {
		return coreerrors.New(coreerrors.CodeConfigError, "storage.redis.addr must not be empty")
	}
	return nil
}
