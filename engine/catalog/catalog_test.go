package catalog

import (
	"testing"

	"github.com/nathoo/spellcore/engine/rules"
	"github.com/nathoo/spellcore/types"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := New()
	spells := []*types.Spell{
		{ID: "fireball", Level: 3, Classes: []string{"wizard", "sorcerer"}},
		{ID: "cure_wounds", Level: 1, Classes: []string{"cleric"}},
		{ID: "fire_bolt", Level: 0, Classes: []string{"wizard"}},
		{ID: "magic_missile", Level: 1, Classes: []string{"wizard"}},
	}
	for _, s := range spells {
		if err := c.AddSpell(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.AddCreature(&types.Entity{ID: "goblin", HP: types.HitPoints{Current: 7, Max: 7}}); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestAddSpell_Duplicate(t *testing.T) {
	c := testCatalog(t)
	err := c.AddSpell(&types.Spell{ID: "fireball"})
	if !types.IsConfigurationError(err) {
		t.Errorf("duplicate spell should be a ConfigurationError, got %v", err)
	}
	if err := c.AddSpell(&types.Spell{}); !types.IsConfigurationError(err) {
		t.Errorf("spell without id should be rejected, got %v", err)
	}
}

func TestAddCreature_Duplicate(t *testing.T) {
	c := testCatalog(t)
	if err := c.AddCreature(&types.Entity{ID: "goblin"}); !types.IsConfigurationError(err) {
		t.Errorf("duplicate creature should be a ConfigurationError, got %v", err)
	}
}

func TestSpellIDs_Sorted(t *testing.T) {
	got := testCatalog(t).SpellIDs()
	want := []string{"cure_wounds", "fire_bolt", "fireball", "magic_missile"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SpellIDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSpellsFor_ByLevel(t *testing.T) {
	got := testCatalog(t).SpellsFor("wizard")
	want := []string{"fire_bolt", "magic_missile", "fireball"}
	if len(got) != len(want) {
		t.Fatalf("expected %d wizard spells, got %d", len(want), len(got))
	}
	for i, s := range got {
		if s.ID != want[i] {
			t.Errorf("SpellsFor[%d] = %q, want %q", i, s.ID, want[i])
		}
	}
}

func TestScene_ClonesCreatures(t *testing.T) {
	c := testCatalog(t)
	env := c.Scene()
	env.Entities["goblin"].HP.Current = 0

	if c.Creatures["goblin"].HP.Current != 7 {
		t.Error("scene damage leaked into the catalog template")
	}
	if again := c.Scene(); again.Entities["goblin"].HP.Current != 7 {
		t.Error("a new scene should start from the template")
	}
}

func TestRuleConfig_Surges(t *testing.T) {
	c := New()
	if got := len(c.RuleConfig().SurgeTable); got != len(rules.DefaultConfig().SurgeTable) {
		t.Errorf("empty catalog should keep the default surge table, got %d rows", got)
	}
	c.Surges = []rules.Surge{{Min: 1, Max: 100, Effect: "everything is fine"}}
	cfg := c.RuleConfig()
	if len(cfg.SurgeTable) != 1 || cfg.SurgeTable[0].Effect != "everything is fine" {
		t.Errorf("catalog surges should replace the table, got %+v", cfg.SurgeTable)
	}
}
