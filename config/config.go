// Package config reads sandbox settings from SPELLCORE_* environment
// variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nathoo/spellcore/engine/physics"
	"github.com/nathoo/spellcore/engine/rules"
)

// Config holds every tunable of a sandbox session.
type Config struct {
	Content  string  `env:"SPELLCORE_CONTENT" envDefault:"content/arena"`
	Seed     int64   `env:"SPELLCORE_SEED" envDefault:"1"`
	Tick     float64 `env:"SPELLCORE_TICK" envDefault:"0.1"`
	LogLevel string  `env:"SPELLCORE_LOG_LEVEL" envDefault:"warn"`

	Gravity       []float64 `env:"SPELLCORE_GRAVITY" envDefault:"0,0,-9.81" envSeparator:","`
	AirResistance float64   `env:"SPELLCORE_AIR_RESISTANCE" envDefault:"0.01"`
	TimeStep      float64   `env:"SPELLCORE_TIME_STEP" envDefault:"0"`
	Restitution   float64   `env:"SPELLCORE_RESTITUTION" envDefault:"0.8"`

	LegendaryThreshold float64 `env:"SPELLCORE_LEGENDARY_THRESHOLD" envDefault:"0.25"`
	CounterspellRange  float64 `env:"SPELLCORE_COUNTERSPELL_RANGE" envDefault:"300"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case len(c.Gravity) != 3:
		return fmt.Errorf("SPELLCORE_GRAVITY needs 3 components, got %d", len(c.Gravity))
	case c.Tick <= 0:
		return fmt.Errorf("SPELLCORE_TICK must be positive, got %g", c.Tick)
	case c.TimeStep < 0:
		return fmt.Errorf("SPELLCORE_TIME_STEP must not be negative, got %g", c.TimeStep)
	case c.Restitution < 0 || c.Restitution > 1:
		return fmt.Errorf("SPELLCORE_RESTITUTION must be within 0-1, got %g", c.Restitution)
	case c.LegendaryThreshold < 0 || c.LegendaryThreshold > 1:
		return fmt.Errorf("SPELLCORE_LEGENDARY_THRESHOLD must be within 0-1, got %g", c.LegendaryThreshold)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("SPELLCORE_LOG_LEVEL: %w", err)
	}
	return nil
}

// Physics returns the world configuration.
func (c Config) Physics() physics.Config {
	var g mgl64.Vec3
	copy(g[:], c.Gravity)
	return physics.Config{
		Gravity:       g,
		AirResistance: c.AirResistance,
		TimeStep:      c.TimeStep,
		Restitution:   physics.Restitution(c.Restitution),
	}
}

// Rules applies the rule tunables on top of base, which usually carries a
// catalog's surge table.
func (c Config) Rules(base rules.Config) rules.Config {
	base.LegendaryThreshold = c.LegendaryThreshold
	base.CounterspellRange = c.CounterspellRange
	return base
}

// Logger builds a development logger at the configured level, writing to
// stderr.
func (c Config) Logger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("SPELLCORE_LOG_LEVEL: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
