// Package types defines the shared data structures for the SpellCore engine.
// This package contains type definitions and the small amount of behaviour
// needed to make them usable as values (set helpers, sealed effect variants,
// error formatting). Rules live in the engine packages.
package types

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Ability is a saving-throw ability score.
type Ability string

const (
	Strength     Ability = "str"
	Dexterity    Ability = "dex"
	Constitution Ability = "con"
	Intelligence Ability = "int"
	Wisdom       Ability = "wis"
	Charisma     Ability = "cha"
)

// DamageType tags damage for resistance/immunity/vulnerability lookup.
type DamageType string

// Set is a string set used for conditions and damage-type affinities.
type Set map[string]bool

// Has reports whether v is a member. Nil sets are empty.
func (s Set) Has(v string) bool {
	return s[v]
}

// NewSet builds a set from values.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = true
	}
	return s
}

// Clone copies the set. The copy of a nil set is empty, not nil.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k, v := range s {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// HitPoints holds current and maximum hit points.
type HitPoints struct {
	Current int
	Max     int
}

// Entity is a game entity referenced by a cast. It is owned by the host and
// mutated in place by the effect executor.
type Entity struct {
	ID           string
	Name         string
	Position     mgl64.Vec3
	HP           HitPoints
	ArmorClass   int
	SavingThrows map[Ability]int

	Conditions          Set
	ConditionImmunities Set
	Resistances         Set
	Immunities          Set
	Vulnerabilities     Set

	Speed  float64
	Form   string // current transformation, "" for natural form
	TempHP int

	// Caster state.
	Level            int
	SpellcastingMod  int
	ProficiencyBonus int
	SpellSlots       map[int]int
	Concentration    string // spell id, "" when not concentrating

	// Rule hooks.
	LegendaryResistances int
	MagicResistance      bool
	WildMagic            bool
	ReadyCounterspell    int // slot level of a readied counterspell, 0 for none
	CounterspellMod      int
}

// SaveBonus returns the entity's saving-throw bonus for an ability.
func (e *Entity) SaveBonus(a Ability) int {
	return e.SavingThrows[a]
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	c := *e
	if e.SavingThrows != nil {
		c.SavingThrows = make(map[Ability]int, len(e.SavingThrows))
		for k, v := range e.SavingThrows {
			c.SavingThrows[k] = v
		}
	}
	// A nil slot table means the entity casts without tracked slots.
	if e.SpellSlots != nil {
		c.SpellSlots = make(map[int]int, len(e.SpellSlots))
		for k, v := range e.SpellSlots {
			c.SpellSlots[k] = v
		}
	}
	c.Conditions = e.Conditions.Clone()
	c.ConditionImmunities = e.ConditionImmunities.Clone()
	c.Resistances = e.Resistances.Clone()
	c.Immunities = e.Immunities.Clone()
	c.Vulnerabilities = e.Vulnerabilities.Clone()
	return &c
}

// Obstacle is static scenery blocking line of sight, as an axis-aligned box.
type Obstacle struct {
	ID  string
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// Field is a spherical region, such as an antimagic field.
type Field struct {
	ID     string
	Center mgl64.Vec3
	Radius float64
}

// Environment is the world a cast happens in.
type Environment struct {
	Entities        map[string]*Entity
	Obstacles       []Obstacle
	AntimagicFields []Field
	Lighting        string
	Gravity         mgl64.Vec3
}

// DiceFunc rolls count dice with the given number of sides.
type DiceFunc func(sides, count int) []int

// ExecutionContext is the per-cast state threaded through rules and effects.
type ExecutionContext struct {
	Spell     *Spell
	Caster    *Entity
	Targets   []*Entity
	Env       *Environment
	Dice      DiceFunc
	SlotLevel int
	Origin    mgl64.Vec3 // point of origin for area effects

	// Metadata carries rule modifications across a single cast.
	Metadata map[string]any

	// Scaled holds per-effect overrides computed for this cast.
	Scaled map[int]Override

	// Modifications accumulates every mutation made during the cast, in order.
	Modifications []Modification
}

// Override is a scaled replacement for an effect's parameters. Zero fields
// keep the template value.
type Override struct {
	Dice      string
	Instances int
	Targets   int // replaces EffectBase.MaxTargets
	Radius    float64
}

// Modification records a single property change made to an entity.
type Modification struct {
	EntityID string
	Property string
	OldValue any
	NewValue any
}

// Trigger is a rule trigger raised while an effect resolved, such as a
// broken concentration or a wild magic surge.
type Trigger struct {
	RuleID string
	Data   map[string]any
}

// EffectResult is the uniform per-effect report of a cast.
type EffectResult struct {
	EffectIndex   int
	Kind          EffectKind
	Success       bool
	Targets       []string
	Modifications []Modification
	Triggers      []Trigger
	Notes         []string
}
