package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/spellcore/engine/bridge"
	"github.com/nathoo/spellcore/engine/catalog"
	"github.com/nathoo/spellcore/engine/dice"
	"github.com/nathoo/spellcore/engine/scaling"
	"github.com/nathoo/spellcore/types"
)

// ValidationError collects every authoring defect found in a load. It
// unwraps to a ConfigurationError so callers can test it with errors.As.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) Unwrap() error {
	return &types.ConfigurationError{Op: "loader", Reason: strings.Join(e.Errors, "; ")}
}

func (e *ValidationError) add(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

var validAbilities = map[types.Ability]bool{
	types.Strength: true, types.Dexterity: true, types.Constitution: true,
	types.Intelligence: true, types.Wisdom: true, types.Charisma: true,
}

var validOutcomes = map[types.SaveOutcome]bool{
	types.SaveHalf: true, types.SaveNone: true, types.SaveNegate: true,
}

var validShapes = map[types.Shape]bool{
	types.ShapeSphere: true, types.ShapeCube: true, types.ShapeCone: true, types.ShapeLine: true,
}

var validModes = map[types.MoveMode]bool{
	types.MovePush: true, types.MovePull: true, types.MoveTeleport: true,
}

// validate checks the compiled catalog for consistency.
func validate(cat *catalog.Catalog) error {
	ve := &ValidationError{}

	if cat.Caster != "" {
		if _, ok := cat.Creatures[cat.Caster]; !ok {
			ve.add("caster %q is not a defined creature", cat.Caster)
		}
	}

	for _, id := range cat.SpellIDs() {
		validateSpell(cat.Spells[id], ve)
	}

	ids := make([]string, 0, len(cat.Creatures))
	for id := range cat.Creatures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := cat.Creatures[id]
		if c.HP.Current < 0 || c.HP.Max < c.HP.Current {
			ve.add("creature %q has invalid hp %d/%d", id, c.HP.Current, c.HP.Max)
		}
		for a := range c.SavingThrows {
			if !validAbilities[a] {
				ve.add("creature %q has a save bonus for unknown ability %q", id, a)
			}
		}
	}

	for _, f := range cat.AntimagicFields {
		if f.Radius <= 0 {
			ve.add("antimagic field %q needs a positive radius", f.ID)
		}
	}

	for i, s := range cat.Surges {
		if s.Min < 1 || s.Max > 100 || s.Min > s.Max {
			ve.add("surge %d covers %d-%d, want a range within 1-100", i+1, s.Min, s.Max)
		}
		if s.Effect == "" {
			ve.add("surge %d has no effect text", i+1)
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateSpell(s *types.Spell, ve *ValidationError) {
	if s.Level < 0 || s.Level > scaling.MaxSpellLevel {
		ve.add("spell %q has level %d, want 0-%d", s.ID, s.Level, scaling.MaxSpellLevel)
	}
	if len(s.Effects) == 0 {
		ve.add("spell %q has no effects", s.ID)
	}
	if s.Scaling != nil {
		checkDice(ve, s.ID+" scaling", s.Scaling.Dice)
	}

	for i, eff := range s.Effects {
		where := fmt.Sprintf("spell %q effect %d", s.ID, i+1)
		base := eff.Common()

		switch e := eff.(type) {
		case types.DamageEffect:
			if e.Dice == "" && e.Bonus == 0 && !e.AddModifier {
				ve.add("%s: damage needs dice or a bonus", where)
			}
			checkDice(ve, where, e.Dice)
		case types.HealingEffect:
			checkDice(ve, where, e.Dice)
		case types.ConditionEffect:
			if e.Condition == "" {
				ve.add("%s: condition needs a name", where)
			}
		case types.MovementEffect:
			if !validModes[e.Mode] {
				ve.add("%s: unknown movement mode %q", where, e.Mode)
			}
		case types.SummonEffect:
			if e.Creature == "" {
				ve.add("%s: summon needs a creature", where)
			}
		}

		if sv := base.Save; sv != nil {
			if !validAbilities[sv.Ability] {
				ve.add("%s: unknown save ability %q", where, sv.Ability)
			}
			if !validOutcomes[sv.OnSuccess] {
				ve.add("%s: unknown save outcome %q", where, sv.OnSuccess)
			}
		}
		if ar := base.Area; ar != nil && !validShapes[ar.Shape] {
			ve.add("%s: unknown area shape %q", where, ar.Shape)
		}
		if base.Physics != nil {
			// Positions come from the cast; only the parameters are checked here.
			if _, err := bridge.FromEffect(eff, &types.ExecutionContext{}); err != nil {
				ve.add("%s: %v", where, err)
			}
		}
	}
}

func checkDice(ve *ValidationError, where, expr string) {
	if _, err := dice.Parse(expr); err != nil {
		ve.add("%s: %v", where, err)
	}
}
