// Package catalog holds the immutable content a session runs against: the
// spell templates, the scene's creatures and the wild magic surge table.
// Engines receive a catalog explicitly; there are no package-level spell maps.
package catalog

import (
	"sort"

	"github.com/nathoo/spellcore/engine/rules"
	"github.com/nathoo/spellcore/types"
)

// Catalog is loaded once and never mutated by casts.
type Catalog struct {
	Title  string
	Spells map[string]*types.Spell

	// Creatures are entity templates. Scene clones them, so a session's
	// damage never reaches the catalog.
	Creatures map[string]*types.Entity
	Caster    string // id of the creature the sandbox casts as

	Obstacles       []types.Obstacle
	AntimagicFields []types.Field
	Surges          []rules.Surge
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		Spells:    map[string]*types.Spell{},
		Creatures: map[string]*types.Entity{},
	}
}

// AddSpell registers a spell template. Ids are unique.
func (c *Catalog) AddSpell(s *types.Spell) error {
	if s == nil || s.ID == "" {
		return types.Configf("catalog", "spell without an id")
	}
	if _, dup := c.Spells[s.ID]; dup {
		return types.Configf("catalog", "duplicate spell %q", s.ID)
	}
	c.Spells[s.ID] = s
	return nil
}

// AddCreature registers an entity template. Ids are unique across creatures.
func (c *Catalog) AddCreature(e *types.Entity) error {
	if e == nil || e.ID == "" {
		return types.Configf("catalog", "creature without an id")
	}
	if _, dup := c.Creatures[e.ID]; dup {
		return types.Configf("catalog", "duplicate creature %q", e.ID)
	}
	c.Creatures[e.ID] = e
	return nil
}

// Spell returns a spell template by id.
func (c *Catalog) Spell(id string) (*types.Spell, bool) {
	s, ok := c.Spells[id]
	return s, ok
}

// SpellIDs returns every spell id in ascending order.
func (c *Catalog) SpellIDs() []string {
	ids := make([]string, 0, len(c.Spells))
	for id := range c.Spells {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SpellsFor returns the spells on a class list, ordered by level then id.
func (c *Catalog) SpellsFor(class string) []*types.Spell {
	var out []*types.Spell
	for _, id := range c.SpellIDs() {
		s := c.Spells[id]
		for _, cl := range s.Classes {
			if cl == class {
				out = append(out, s)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// Scene builds a fresh environment from the catalog: every creature is
// cloned, scenery slices are copied.
func (c *Catalog) Scene() *types.Environment {
	env := &types.Environment{
		Entities:        make(map[string]*types.Entity, len(c.Creatures)),
		Obstacles:       append([]types.Obstacle(nil), c.Obstacles...),
		AntimagicFields: append([]types.Field(nil), c.AntimagicFields...),
		Lighting:        "bright",
	}
	for id, e := range c.Creatures {
		env.Entities[id] = e.Clone()
	}
	return env
}

// RuleConfig returns the standard rule tuning with the catalog's surge
// table, when it has one.
func (c *Catalog) RuleConfig() rules.Config {
	cfg := rules.DefaultConfig()
	if len(c.Surges) > 0 {
		cfg.SurgeTable = append([]rules.Surge(nil), c.Surges...)
	}
	return cfg
}
