package scaling

import (
	"testing"

	"github.com/nathoo/spellcore/types"
)

func fireball() *types.Spell {
	return &types.Spell{
		ID:    "fireball",
		Level: 3,
		Effects: []types.Effect{
			types.DamageEffect{
				EffectBase: types.EffectBase{Area: &types.Area{Shape: types.ShapeSphere, Radius: 20}},
				Dice:       "8d6",
				Type:       "fire",
			},
		},
		Scaling: &types.Scaling{Dice: "1d6"},
	}
}

func TestCompute_BaseLevelEmpty(t *testing.T) {
	tbl, err := New(nil).Compute(fireball(), 3, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl) != 0 {
		t.Errorf("casting at base level should not scale, got %v", tbl)
	}
}

func TestCompute_UpcastConcatenatesDice(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{4, "8d6+1d6"},
		{5, "8d6+2d6"},
		{9, "8d6+6d6"},
	}
	for _, tt := range tests {
		tbl, err := New(nil).Compute(fireball(), tt.level, 17)
		if err != nil {
			t.Fatalf("level %d: %v", tt.level, err)
		}
		if got := tbl[0].Dice; got != tt.want {
			t.Errorf("level %d: got %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestCompute_TemplateUntouched(t *testing.T) {
	s := fireball()
	if _, err := New(nil).Compute(s, 6, 11); err != nil {
		t.Fatal(err)
	}
	if d := s.Effects[0].(types.DamageEffect).Dice; d != "8d6" {
		t.Errorf("template mutated: %q", d)
	}
}

func TestCompute_BelowMinimumLevel(t *testing.T) {
	_, err := New(nil).Compute(fireball(), 2, 5)
	if err == nil {
		t.Fatal("expected error casting below minimum level")
	}
	if !types.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}

func TestCompute_AboveNinth(t *testing.T) {
	if _, err := New(nil).Compute(fireball(), 10, 20); !types.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestCantripTier(t *testing.T) {
	tests := []struct{ level, want int }{
		{1, 0}, {4, 0}, {5, 1}, {10, 1}, {11, 2}, {16, 2}, {17, 3}, {20, 3},
	}
	for _, tt := range tests {
		if got := CantripTier(tt.level); got != tt.want {
			t.Errorf("CantripTier(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestCompute_CantripUsesCasterLevel(t *testing.T) {
	bolt := &types.Spell{
		ID:      "fire_bolt",
		Level:   0,
		Effects: []types.Effect{types.DamageEffect{Dice: "1d10", Type: "fire"}},
		Scaling: &types.Scaling{Dice: "1d10"},
	}
	tbl, err := New(nil).Compute(bolt, 0, 11)
	if err != nil {
		t.Fatal(err)
	}
	if got := tbl[0].Dice; got != "1d10+2d10" {
		t.Errorf("got %q, want 1d10+2d10", got)
	}
}

func TestCompute_MagicMissileExtraDarts(t *testing.T) {
	mm := &types.Spell{
		ID:      "magic_missile",
		Level:   1,
		Effects: []types.Effect{types.DamageEffect{Dice: "1d4+1", Type: "force", Instances: 3}},
	}
	tbl, err := New(nil).Compute(mm, 3, 5)
	if err != nil {
		t.Fatal(err)
	}
	if got := tbl[0].Instances; got != 5 {
		t.Errorf("expected 5 darts at level 3, got %d", got)
	}
}

func TestCompute_TargetsAndRadius(t *testing.T) {
	hold := &types.Spell{
		ID:    "hold_person",
		Level: 2,
		Effects: []types.Effect{
			types.ConditionEffect{EffectBase: types.EffectBase{MaxTargets: 1}, Condition: "paralyzed"},
			types.DamageEffect{EffectBase: types.EffectBase{Area: &types.Area{Shape: types.ShapeSphere, Radius: 10}}, Dice: "1d6"},
		},
		Scaling: &types.Scaling{Targets: 1, Radius: 5},
	}
	tbl, err := New(nil).Compute(hold, 4, 7)
	if err != nil {
		t.Fatal(err)
	}
	if tbl[0].Targets != 3 {
		t.Errorf("expected 3 targets, got %d", tbl[0].Targets)
	}
	if tbl[1].Radius != 20 {
		t.Errorf("expected radius 20, got %f", tbl[1].Radius)
	}
}

func TestCompute_CustomSpecial(t *testing.T) {
	called := 0
	e := New(map[string]Special{
		"fireball": func(_ *types.Spell, bonus int, t Table) {
			called = bonus
			o := t[0]
			o.Radius = 99
			t[0] = o
		},
	})
	tbl, err := e.Compute(fireball(), 5, 9)
	if err != nil {
		t.Fatal(err)
	}
	if called != 2 {
		t.Errorf("special called with bonus %d, want 2", called)
	}
	if tbl[0].Radius != 99 || tbl[0].Dice != "8d6+2d6" {
		t.Errorf("special should refine the computed table, got %+v", tbl[0])
	}
}

func TestCompute_BadScalingDice(t *testing.T) {
	s := fireball()
	s.Scaling = &types.Scaling{Dice: "1dx"}
	if _, err := New(nil).Compute(s, 4, 5); !types.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}
