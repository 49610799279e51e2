package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration at
// $XDG_CONFIG_HOME/freebudsctl/config.yaml.
type Config struct {
	Devices      []DeviceConfig `yaml:"devices"`
	PollInterval int            `yaml:"poll_interval_sec"`
}

type DeviceConfig struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name"`
}

const defaultPollIntervalSec = 30

var macRe = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

func configPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "freebudsctl", "config.yaml")
}

func loadConfig() (Config, error) {
	data, err := os.ReadFile(configPath())
	if err != nil {
		if os.IsNotExist(err) {
			// No config is fine; the device comes from the command line.
			return Config{PollInterval: defaultPollIntervalSec}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := parseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", configPath(), err)
	}
	return cfg, nil
}

func parseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollIntervalSec
	}
	return cfg, nil
}

func (c Config) validate() error {
	for i, d := range c.Devices {
		if !macRe.MatchString(d.Address) {
			return fmt.Errorf("device %d: invalid address %q", i, d.Address)
		}
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval_sec must not be negative")
	}
	return nil
}

func (c Config) pollInterval() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// resolveDevice picks a device address. If addr is non-empty, it is returned
// directly. Otherwise, the first device from the config is used.
func resolveDevice(cfg Config, addr string) (string, error) {
	if addr != "" {
		return addr, nil
	}
	if len(cfg.Devices) == 0 {
		return "", fmt.Errorf("no device specified and config is empty")
	}
	return cfg.Devices[0].Address, nil
}
