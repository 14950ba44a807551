// Package config loads benchmark settings from YAML files and applies
// defaults for anything left unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that config files can spell as "30s" or as
// a bare number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the top-level configuration for a benchmark run.
type Config struct {
	Target   string   `yaml:"target"`
	Report   string   `yaml:"report"`
	Settings Settings `yaml:"settings"`
}

type Settings struct {
	EngineType    string   `yaml:"engine_type"` // "sync" or "uring"
	NoDirect      bool     `yaml:"no_direct"`   // disable uncached I/O
	PhaseDuration Duration `yaml:"phase_duration"`
	SeqBlockSize  int      `yaml:"seq_block_size"`
	RandBlockSize int      `yaml:"rand_block_size"`
	ScratchBytes  int64    `yaml:"scratch_bytes"`
	FailureWindow int      `yaml:"failure_window"`
	MinFreeBytes  uint64   `yaml:"min_free_bytes"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Settings.EngineType == "" {
		c.Settings.EngineType = "sync"
	}
	if c.Settings.PhaseDuration == 0 {
		c.Settings.PhaseDuration = Duration(30 * time.Second)
	}
}

// Load reads a YAML config file and fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
