// Package config loads the adaptermap configuration: the shared bot core
// sections plus database, intake and HTTP settings.
package config

import (
	"fmt"

	coreconfig "github.com/m3rciful/adaptermap/core/config"
	coredatabase "github.com/m3rciful/adaptermap/core/database"
	"github.com/m3rciful/adaptermap/core/telegram/state"
	"github.com/m3rciful/adaptermap/internal/adaptermap/web"
	"github.com/m3rciful/adaptermap/internal/intake"
)

// IntakeConfig tunes the dialogue and its session reaper.
type IntakeConfig struct {
	state.ReaperConfig `yaml:",inline"`
	intake.Config      `yaml:",inline"`
}

// Config is the full adaptermap configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Intake   IntakeConfig        `yaml:"intake"`
	HTTP     web.Config          `yaml:"http"`
}

// CoreConfig exposes the embedded core section to the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, overlays the environment and normalizes the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	in := &c.Intake
	if in.Interval < 0 || in.IdleTimeout < 0 || in.FloodIdleTimeout < 0 || in.InsertTimeout < 0 {
		return fmt.Errorf("intake durations must be >= 0")
	}
	if in.FloodThreshold < 0 {
		return fmt.Errorf("intake.flood_threshold must be >= 0")
	}
	def := state.DefaultReaperConfig()
	if in.Interval == 0 {
		in.Interval = def.Interval
	}
	if in.IdleTimeout == 0 {
		in.IdleTimeout = def.IdleTimeout
	}
	if in.FloodIdleTimeout == 0 {
		in.FloodIdleTimeout = def.FloodIdleTimeout
	}
	if in.FloodThreshold == 0 {
		in.FloodThreshold = def.FloodThreshold
	}
	if in.FloodIdleTimeout > in.IdleTimeout {
		return fmt.Errorf("intake.flood_idle_timeout must not exceed intake.idle_timeout")
	}
	if in.InsertTimeout == 0 {
		in.InsertTimeout = intake.DefaultInsertTimeout
	}

	if c.HTTP.Enabled && c.HTTP.Listen == "" {
		c.HTTP.Listen = web.DefaultListen
	}
	return nil
}
