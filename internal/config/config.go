package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ringoptics/internal/optics"
)

const (
	DefaultRefpts     = "end"
	DefaultScanFrom   = -0.01
	DefaultScanTo     = 0.01
	DefaultScanSteps  = 11
	DefaultScanWorker = 4
)

type Config struct {
	Lattice      string          `yaml:"lattice"`
	Delta        float64         `yaml:"delta"`
	Refpts       string          `yaml:"refpts"`
	Chromaticity bool            `yaml:"chromaticity"`
	Settings     optics.Settings `yaml:"settings"`
	Scan         ScanConfig      `yaml:"scan"`
}

type ScanConfig struct {
	From    float64 `yaml:"from"`
	To      float64 `yaml:"to"`
	Steps   int     `yaml:"steps"`
	Workers int     `yaml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		Lattice:  "fodo",
		Refpts:   DefaultRefpts,
		Settings: optics.DefaultSettings(),
		Scan: ScanConfig{
			From:    DefaultScanFrom,
			To:      DefaultScanTo,
			Steps:   DefaultScanSteps,
			Workers: DefaultScanWorker,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if c.Scan.Steps < 1 {
		return fmt.Errorf("scan steps=%d: %w", c.Scan.Steps, optics.ErrInvalidStep)
	}
	if c.Scan.Workers < 1 {
		c.Scan.Workers = 1
	}
	return nil
}
