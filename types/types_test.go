package types

import (
	"fmt"
	"testing"
)

func TestSet_NilIsEmpty(t *testing.T) {
	var s Set
	if s.Has("fire") {
		t.Error("nil set should not contain anything")
	}
}

func TestNewSet(t *testing.T) {
	s := NewSet("fire", "cold")
	if !s.Has("fire") || !s.Has("cold") {
		t.Errorf("expected fire and cold in set, got %v", s)
	}
	if s.Has("acid") {
		t.Error("acid should not be in set")
	}
}

func TestEffectKinds(t *testing.T) {
	effects := []Effect{
		DamageEffect{}, HealingEffect{}, ConditionEffect{}, MovementEffect{},
		GeometryEffect{}, SummonEffect{}, TimeEffect{}, InformationEffect{},
		TransformationEffect{},
	}
	seen := map[EffectKind]bool{}
	for _, e := range effects {
		if seen[e.Kind()] {
			t.Errorf("duplicate kind %q", e.Kind())
		}
		seen[e.Kind()] = true
	}
	if len(seen) != 9 {
		t.Errorf("expected 9 kinds, got %d", len(seen))
	}
}

func TestCommon_ReturnsBase(t *testing.T) {
	save := &SaveSpec{Ability: Dexterity, OnSuccess: SaveHalf}
	var e Effect = DamageEffect{EffectBase: EffectBase{Save: save}, Dice: "8d6"}
	if e.Common().Save != save {
		t.Error("Common() should expose the embedded save spec")
	}
}

func TestConfigurationError_Wrapped(t *testing.T) {
	err := fmt.Errorf("loading: %w", Configf("scale", "level %d below minimum %d", 1, 3))
	if !IsConfigurationError(err) {
		t.Fatal("expected wrapped ConfigurationError to be detected")
	}
	want := "loading: configuration error: scale: level 1 below minimum 3"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if IsConfigurationError(fmt.Errorf("plain")) {
		t.Error("plain error should not be a ConfigurationError")
	}
}

func TestEntityClone_Independent(t *testing.T) {
	e := &Entity{
		ID:          "wizard",
		Conditions:  NewSet("prone"),
		SpellSlots:  map[int]int{1: 2},
		Resistances: NewSet("fire"),
	}
	c := e.Clone()
	c.Conditions["stunned"] = true
	c.SpellSlots[1] = 0
	c.Immunities["cold"] = true

	if e.Conditions.Has("stunned") || e.SpellSlots[1] != 2 || e.Immunities.Has("cold") {
		t.Errorf("clone shares state with the original: %+v", e)
	}
	if !c.Resistances.Has("fire") {
		t.Error("clone should keep resistances")
	}
}

func TestEntityClone_KeepsNilSlots(t *testing.T) {
	c := (&Entity{ID: "imp"}).Clone()
	if c.SpellSlots != nil {
		t.Error("an innate caster should stay without a slot table")
	}
}

func TestSet_Sorted(t *testing.T) {
	s := Set{"poisoned": true, "blinded": true, "prone": false}
	got := s.Sorted()
	if len(got) != 2 || got[0] != "blinded" || got[1] != "poisoned" {
		t.Errorf("got %v", got)
	}
}
