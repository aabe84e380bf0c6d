// Package scaling computes level-adjusted effect parameters for upcast spells
// and caster-level cantrips. Spell templates are never mutated: the result is
// an override table keyed by effect index.
package scaling

import (
	"github.com/nathoo/spellcore/engine/dice"
	"github.com/nathoo/spellcore/types"
)

// MaxSpellLevel is the highest slot level.
const MaxSpellLevel = 9

// CantripTiers are the caster levels at which cantrips gain a tier.
var CantripTiers = []int{5, 11, 17}

// Table maps an effect index to its overridden parameters.
type Table map[int]types.Override

// Special adjusts a computed table for one spell. bonus is the number of
// bonus levels (or cantrip tiers) of the cast.
type Special func(spell *types.Spell, bonus int, t Table)

// Engine computes scaling tables. The special table is keyed by spell id.
type Engine struct {
	special map[string]Special
}

// New creates an engine with the given special-case table. A nil table
// uses DefaultSpecial.
func New(special map[string]Special) *Engine {
	if special == nil {
		special = DefaultSpecial()
	}
	return &Engine{special: special}
}

// CantripTier returns how many cantrip tiers a caster of level has reached.
func CantripTier(level int) int {
	n := 0
	for _, t := range CantripTiers {
		if level >= t {
			n++
		}
	}
	return n
}

// BonusLevels returns the number of scaling steps for a cast. castLevel 0
// casts at the spell's own level.
func BonusLevels(spell *types.Spell, castLevel, casterLevel int) (int, error) {
	if spell.Level == 0 {
		return CantripTier(casterLevel), nil
	}
	if castLevel == 0 {
		castLevel = spell.Level
	}
	if castLevel < spell.Level {
		return 0, types.Configf("scaling", "%s is level %d, cannot be cast at level %d", spell.ID, spell.Level, castLevel)
	}
	if castLevel > MaxSpellLevel {
		return 0, types.Configf("scaling", "cast level %d exceeds %d", castLevel, MaxSpellLevel)
	}
	return castLevel - spell.Level, nil
}

// Compute returns the override table for casting spell at castLevel by a
// caster of casterLevel. An unscaled cast yields an empty table.
func (e *Engine) Compute(spell *types.Spell, castLevel, casterLevel int) (Table, error) {
	if spell == nil {
		return nil, types.Configf("scaling", "nil spell")
	}
	bonus, err := BonusLevels(spell, castLevel, casterLevel)
	if err != nil {
		return nil, err
	}
	t := Table{}
	if bonus == 0 {
		return t, nil
	}

	if sc := spell.Scaling; sc != nil {
		for i, eff := range spell.Effects {
			o, changed, err := scaleEffect(eff, sc, bonus)
			if err != nil {
				return nil, err
			}
			if changed {
				t[i] = o
			}
		}
	}

	if fn, ok := e.special[spell.ID]; ok {
		fn(spell, bonus, t)
	}
	return t, nil
}

func scaleEffect(eff types.Effect, sc *types.Scaling, bonus int) (types.Override, bool, error) {
	var o types.Override
	changed := false

	base, instances := "", 0
	switch v := eff.(type) {
	case types.DamageEffect:
		base, instances = v.Dice, v.Instances
	case types.HealingEffect:
		base = v.Dice
	}
	if sc.Dice != "" && base != "" {
		d, err := dice.Scale(base, sc.Dice, bonus)
		if err != nil {
			return o, false, types.Configf("scaling", "dice %q + %q: %v", base, sc.Dice, err)
		}
		o.Dice = d
		changed = true
	}
	if sc.Instances > 0 && eff.Kind() == types.KindDamage {
		if instances < 1 {
			instances = 1
		}
		o.Instances = instances + sc.Instances*bonus
		changed = true
	}

	common := eff.Common()
	if sc.Targets > 0 && common.MaxTargets > 0 {
		o.Targets = common.MaxTargets + sc.Targets*bonus
		changed = true
	}
	if sc.Radius > 0 && common.Area != nil {
		o.Radius = common.Area.Radius + sc.Radius*float64(bonus)
		changed = true
	}
	return o, changed, nil
}

// DefaultSpecial returns the built-in special cases: spells whose extra
// projectiles or targets do not follow a plain per-level increment.
func DefaultSpecial() map[string]Special {
	return map[string]Special{
		// One extra dart per slot level above first.
		"magic_missile": extraInstances(1),
		// One extra ray per slot level above second.
		"scorching_ray": extraInstances(1),
		// Eldritch blast adds a beam per cantrip tier instead of dice.
		"eldritch_blast": func(spell *types.Spell, bonus int, t Table) {
			for i, eff := range spell.Effects {
				if d, ok := eff.(types.DamageEffect); ok {
					o := t[i]
					o.Dice = d.Dice
					o.Instances = max(d.Instances, 1) + bonus
					t[i] = o
				}
			}
		},
	}
}

func extraInstances(per int) Special {
	return func(spell *types.Spell, bonus int, t Table) {
		for i, eff := range spell.Effects {
			d, ok := eff.(types.DamageEffect)
			if !ok {
				continue
			}
			if spell.Scaling != nil && spell.Scaling.Instances > 0 {
				continue // already scaled from the spell's own increments
			}
			o := t[i]
			o.Instances = max(d.Instances, 1) + per*bonus
			t[i] = o
		}
	}
}
