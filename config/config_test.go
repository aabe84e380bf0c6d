package config

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/nathoo/spellcore/engine/physics"
	"github.com/nathoo/spellcore/engine/rules"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Content != "content/arena" || cfg.Seed != 1 || cfg.Tick != 0.1 {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	p := cfg.Physics()
	if p.Gravity != (mgl64.Vec3{0, 0, -9.81}) {
		t.Errorf("gravity = %v", p.Gravity)
	}
	if *p.Restitution != 0.8 || p.AirResistance != 0.01 || p.TimeStep != 0 {
		t.Errorf("physics = %+v", p)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SPELLCORE_SEED", "42")
	t.Setenv("SPELLCORE_GRAVITY", "0,0,0")
	t.Setenv("SPELLCORE_TIME_STEP", "0.02")
	t.Setenv("SPELLCORE_LEGENDARY_THRESHOLD", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 42 {
		t.Errorf("seed = %d", cfg.Seed)
	}
	if p := cfg.Physics(); p.Gravity != (mgl64.Vec3{}) || p.TimeStep != 0.02 {
		t.Errorf("physics = %+v", p)
	}

	r := cfg.Rules(rules.DefaultConfig())
	if r.LegendaryThreshold != 0.5 || r.CounterspellRange != 300 {
		t.Errorf("rules = %+v", r)
	}
	if len(r.SurgeTable) != len(rules.DefaultConfig().SurgeTable) {
		t.Error("Rules should keep the base surge table")
	}
}

func TestLoad_InelasticRestitution(t *testing.T) {
	t.Setenv("SPELLCORE_RESTITUTION", "0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	w := physics.NewWorld(cfg.Physics(), nil)
	if r := *w.Config().Restitution; r != 0 {
		t.Errorf("restitution 0 should reach the world, got %g", r)
	}
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("SPELLCORE_SEED", "not-a-number")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"SPELLCORE_GRAVITY", "0,-9.81", "needs 3 components"},
		{"SPELLCORE_TICK", "0", "SPELLCORE_TICK must be positive"},
		{"SPELLCORE_RESTITUTION", "1.5", "SPELLCORE_RESTITUTION"},
		{"SPELLCORE_LOG_LEVEL", "chatty", "SPELLCORE_LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q error, got %v", tt.want, err)
			}
		})
	}
}

func TestLogger_Level(t *testing.T) {
	cfg := Config{LogLevel: "error"}
	logger, err := cfg.Logger()
	if err != nil {
		t.Fatalf("Logger: %v", err)
	}
	if logger.Core().Enabled(-1) {
		t.Error("debug should be disabled at error level")
	}
}
