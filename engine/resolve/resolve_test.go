package resolve

import (
	"testing"

	"github.com/nathoo/spellcore/engine/catalog"
	"github.com/nathoo/spellcore/types"
)

func testCatalog() *catalog.Catalog {
	c := catalog.New()
	c.Spells["magic_missile"] = &types.Spell{ID: "magic_missile", Name: "Magic Missile", Level: 1}
	c.Spells["fireball"] = &types.Spell{ID: "fireball", Name: "Fireball", Level: 3}
	c.Spells["fire_bolt"] = &types.Spell{ID: "fire_bolt", Name: "Fire Bolt"}
	c.Spells["fire_shield"] = &types.Spell{ID: "fire_shield", Name: "Fire Shield", Level: 4}
	c.Spells["delayed_blast_fireball"] = &types.Spell{ID: "delayed_blast_fireball", Name: "Delayed Blast Fireball", Level: 7}
	return c
}

func testEnv() *types.Environment {
	return &types.Environment{Entities: map[string]*types.Entity{
		"goblin_1":   {ID: "goblin_1", Name: "Goblin Scout"},
		"goblin_2":   {ID: "goblin_2", Name: "Goblin Archer"},
		"ogre":       {ID: "ogre", Name: "Ogre"},
		"hill_giant": {ID: "hill_giant", Name: "Hill Giant"},
	}}
}

func TestSpell_ExactID(t *testing.T) {
	s, err := Spell(testCatalog(), "fire_bolt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID != "fire_bolt" {
		t.Errorf("expected fire_bolt, got %q", s.ID)
	}
}

func TestSpell_ByName_CaseInsensitive(t *testing.T) {
	for _, name := range []string{"Magic Missile", "magic missile", "missile", "MAGIC_MISSILE"} {
		s, err := Spell(testCatalog(), name)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", name, err)
			continue
		}
		if s.ID != "magic_missile" {
			t.Errorf("%q: expected magic_missile, got %q", name, s.ID)
		}
	}
}

func TestSpell_WholeNameBeatsPartial(t *testing.T) {
	// "fireball" is also a word of "Delayed Blast Fireball".
	s, err := Spell(testCatalog(), "Fireball")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID != "fireball" {
		t.Errorf("expected fireball, got %q", s.ID)
	}
}

func TestSpell_Ambiguity(t *testing.T) {
	_, err := Spell(testCatalog(), "fire")
	ae, ok := err.(*AmbiguityError)
	if !ok {
		t.Fatalf("expected AmbiguityError, got %T: %v", err, err)
	}
	want := []string{"fire_bolt", "fire_shield"}
	if len(ae.Candidates) != 2 || ae.Candidates[0] != want[0] || ae.Candidates[1] != want[1] {
		t.Errorf("candidates = %v, want %v", ae.Candidates, want)
	}
}

func TestSpell_NotFound(t *testing.T) {
	_, err := Spell(testCatalog(), "wish")
	nf, ok := err.(*NotFoundError)
	if !ok {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
	if nf.Kind != "spell" || nf.Name != "wish" {
		t.Errorf("unexpected error fields: %+v", nf)
	}
}

func TestTargets_Mixed(t *testing.T) {
	ids, err := Targets(testEnv(), []string{"ogre", "hill giant", "scout", "Ogre"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"ogre", "hill_giant", "goblin_1", "ogre"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Targets[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestTargets_Ambiguity(t *testing.T) {
	_, err := Targets(testEnv(), []string{"goblin"})
	ae, ok := err.(*AmbiguityError)
	if !ok {
		t.Fatalf("expected AmbiguityError, got %T: %v", err, err)
	}
	if len(ae.Candidates) != 2 || ae.Candidates[0] != "goblin_1" {
		t.Errorf("candidates should be sorted, got %v", ae.Candidates)
	}
	if ae.Error() != "which goblin? (goblin_1, goblin_2)" {
		t.Errorf("unexpected message %q", ae.Error())
	}
}

func TestTargets_NotFound(t *testing.T) {
	_, err := Targets(testEnv(), []string{"ogre", "dragon"})
	nf, ok := err.(*NotFoundError)
	if !ok {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
	if nf.Name != "dragon" {
		t.Errorf("expected name 'dragon', got %q", nf.Name)
	}
	if nf.Error() != `you don't see "dragon" here` {
		t.Errorf("unexpected message %q", nf.Error())
	}
}

func TestTargets_Empty(t *testing.T) {
	ids, err := Targets(testEnv(), nil)
	if err != nil || len(ids) != 0 {
		t.Errorf("no names should resolve to nothing, got %v, %v", ids, err)
	}
}
