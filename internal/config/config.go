// Package config loads the optional server-tuning file described in the
// ambient stack: everything in it is optional, and CLI-supplied values
// always win over what it contains.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level shape of the optional YAML tuning file.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig tunes the listener and per-connection deadlines. Fields
// the file does not set keep their value from Defaults; a zero timeout
// means no deadline.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// MaxConnections is parsed but not enforced: the server accepts
	// every connection regardless of this value.
	MaxConnections int           `yaml:"max_connections"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

// Defaults returns the configuration used when no file is loaded and no
// CLI port is given.
func Defaults() *Config {
	return &Config{Server: ServerConfig{
		Host:           "0.0.0.0",
		Port:           6379,
		MaxConnections: 10000,
		ReadTimeout:    0,
		WriteTimeout:   0,
		IdleTimeout:    0,
	}}
}

// Load reads and parses the YAML file at path over Defaults(), so any
// field the file does not set keeps its built-in default (a field the
// file sets explicitly to zero stays zero). A missing file is not an
// error: Load
// returns Defaults() unchanged so the server can run with zero
// configuration, per the CLI contract.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}
