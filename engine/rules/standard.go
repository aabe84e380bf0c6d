package rules

import (
	"sort"

	"github.com/nathoo/spellcore/engine/dice"
	"github.com/nathoo/spellcore/engine/geometry"
	"github.com/nathoo/spellcore/types"
)

// Rule ids and priorities of the standard rule set.
const (
	IDAntimagic          = "antimagic_field"
	IDCounterspell       = "counterspell"
	IDConcentrationCheck = "concentration_check"
	IDConcentrationTrack = "concentration_track"
	IDSpellSlot          = "spell_slot"
	IDLegendary          = "legendary_resistance"
	IDMagicResistance    = "magic_resistance"
	IDCover              = "cover"
	IDWildMagic          = "wild_magic"

	PriorityAntimagic          = 1000
	PriorityCounterspell       = 900
	PriorityConcentrationCheck = 800
	PriorityConcentrationTrack = 750
	PrioritySpellSlot          = 700
	PriorityLegendary          = 600
	PriorityMagicResistance    = 500
	PriorityCover              = 400
	PriorityWildMagic          = 100
)

// Metadata keys written by the standard rules. Per-target keys are suffixed
// with ":" and the entity id.
const (
	KeyAdvantage      = "advantage:"
	KeySaveOverride   = "save_override:"
	KeyCoverBonus     = "cover:"
	KeyCoverFull      = "cover_full:"
	KeyReplaced       = "concentration_replaced"
	KeySlotConsumed   = "slot_consumed"
	KeySlotsRemaining = "slots_remaining"
	KeyContested      = "counterspell_contested"

	// KeyDryRun marks a validation-only evaluation. Rules read it to avoid
	// spending resources such as a readied reaction, and never roll dice.
	KeyDryRun = "dry_run"
)

// Surge is one row of a wild magic surge table, matched on a d100 roll.
type Surge struct {
	Min, Max int
	Effect   string
}

// Config holds the tunable data behind the standard rules.
type Config struct {
	CounterspellRange  float64
	LegendaryThreshold float64 // fraction of current HP a failed save must threaten
	SurgeTable         []Surge
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		CounterspellRange:  300,
		LegendaryThreshold: 0.25,
		SurgeTable: []Surge{
			{Min: 1, Max: 20, Effect: "caster glows with dim light for one minute"},
			{Min: 21, Max: 40, Effect: "caster teleports up to 60 feet to a visible space"},
			{Min: 41, Max: 60, Effect: "caster regains 2d10 hit points"},
			{Min: 61, Max: 80, Effect: "a fireball centred on the caster detonates"},
			{Min: 81, Max: 100, Effect: "caster turns blue for one day"},
		},
	}
}

// Standard returns the standard interaction rules.
func Standard(cfg Config) []Rule {
	return []Rule{
		antimagicRule(),
		counterspellRule(cfg),
		concentrationCheckRule(),
		concentrationTrackRule(),
		spellSlotRule(),
		legendaryRule(cfg),
		magicResistanceRule(),
		coverRule(),
		wildMagicRule(cfg),
	}
}

// CastLevel returns the level a cast is made at: the slot level when set,
// otherwise the spell's own level.
func CastLevel(ctx *types.ExecutionContext) int {
	if ctx.SlotLevel > 0 {
		return ctx.SlotLevel
	}
	if ctx.Spell != nil {
		return ctx.Spell.Level
	}
	return 0
}

func antimagicRule() Rule {
	return Rule{
		ID:       IDAntimagic,
		Event:    PreCast,
		Priority: PriorityAntimagic,
		Condition: func(ctx *types.ExecutionContext, _ *Subject) bool {
			if ctx.Caster == nil || ctx.Env == nil {
				return false
			}
			for _, f := range ctx.Env.AntimagicFields {
				if geometry.InSphere(f.Center, f.Radius, ctx.Caster.Position) {
					return true
				}
			}
			return false
		},
		Action: func(*types.ExecutionContext, *Subject) Result {
			return Result{Type: Prevent, Reason: "caster is inside an antimagic field"}
		},
	}
}

// CounterspellSucceeds decides a counterspell. A counterspell cast at or
// above the target spell's level succeeds without a roll; otherwise the
// check is d20 + mod against 10 + spell level.
func CounterspellSucceeds(counterLevel, spellLevel, mod int, fn types.DiceFunc) (bool, int) {
	if counterLevel >= spellLevel {
		return true, 0
	}
	roll := dice.D20(fn)
	return roll+mod >= 10+spellLevel, roll
}

func counterspeller(ctx *types.ExecutionContext, rng float64) *types.Entity {
	if ctx.Caster == nil || ctx.Env == nil {
		return nil
	}
	var ids []string
	for id, e := range ctx.Env.Entities {
		if id == ctx.Caster.ID || e.ReadyCounterspell <= 0 {
			continue
		}
		if geometry.Distance(e.Position, ctx.Caster.Position) <= rng {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	return ctx.Env.Entities[ids[0]]
}

func counterspellRule(cfg Config) Rule {
	return Rule{
		ID:       IDCounterspell,
		Event:    PreCast,
		Priority: PriorityCounterspell,
		Condition: func(ctx *types.ExecutionContext, _ *Subject) bool {
			return counterspeller(ctx, cfg.CounterspellRange) != nil
		},
		Action: func(ctx *types.ExecutionContext, _ *Subject) Result {
			cs := counterspeller(ctx, cfg.CounterspellRange)
			level := cs.ReadyCounterspell
			dry, _ := ctx.Metadata[KeyDryRun].(bool)
			if dry {
				if level >= CastLevel(ctx) {
					data := map[string]any{"counterspeller": cs.ID, "counterspell_level": level}
					return Result{Type: Prevent, Data: data, Reason: "counterspelled by " + cs.ID}
				}
				// A lower-level counterspell is a contest; report it unrolled.
				return Result{Type: Modify, Data: map[string]any{KeyContested: cs.ID}, Continue: true}
			}
			cs.ReadyCounterspell = 0 // reaction spent

			ok, roll := CounterspellSucceeds(level, CastLevel(ctx), cs.CounterspellMod, ctx.Dice)
			data := map[string]any{"counterspeller": cs.ID, "counterspell_level": level, "roll": roll}
			if ok {
				return Result{Type: Prevent, Data: data, Reason: "counterspelled by " + cs.ID}
			}
			return Result{Type: Log, Data: data, Continue: true}
		},
	}
}

// ConcentrationDC returns the constitution save DC after taking damage.
func ConcentrationDC(damage int) int {
	dc := damage / 2
	if dc < 10 {
		return 10
	}
	return dc
}

func concentrationCheckRule() Rule {
	return Rule{
		ID:       IDConcentrationCheck,
		Event:    Damage,
		Priority: PriorityConcentrationCheck,
		Condition: func(_ *types.ExecutionContext, s *Subject) bool {
			return s != nil && s.Target != nil && s.Target.Concentration != "" && s.Amount > 0
		},
		Action: func(ctx *types.ExecutionContext, s *Subject) Result {
			dc := ConcentrationDC(s.Amount)
			roll := dice.D20(ctx.Dice)
			total := roll + s.Target.SaveBonus(types.Constitution)
			data := map[string]any{"target": s.Target.ID, "dc": dc, "roll": total}
			if total >= dc {
				return Result{Type: Log, Data: data, Continue: true}
			}
			data["spell"] = s.Target.Concentration
			s.Target.Concentration = ""
			return Result{Type: Trigger, Data: data, Continue: true, Reason: "concentration broken"}
		},
	}
}

func concentrationTrackRule() Rule {
	return Rule{
		ID:       IDConcentrationTrack,
		Event:    PostCast,
		Priority: PriorityConcentrationTrack,
		Condition: func(ctx *types.ExecutionContext, _ *Subject) bool {
			return ctx.Caster != nil && ctx.Spell != nil && ctx.Spell.Concentration
		},
		Action: func(ctx *types.ExecutionContext, _ *Subject) Result {
			prev := ctx.Caster.Concentration
			ctx.Caster.Concentration = ctx.Spell.ID
			if prev == "" || prev == ctx.Spell.ID {
				return Result{Type: Log, Continue: true}
			}
			return Result{Type: Modify, Data: map[string]any{KeyReplaced: prev}, Continue: true}
		},
	}
}

func spellSlotRule() Rule {
	return Rule{
		ID:       IDSpellSlot,
		Event:    PostCast,
		Priority: PrioritySpellSlot,
		Condition: func(ctx *types.ExecutionContext, _ *Subject) bool {
			// Casters without a slot table cast innately.
			return ctx.Caster != nil && ctx.Caster.SpellSlots != nil &&
				ctx.Spell != nil && ctx.Spell.Level > 0 && !ctx.Spell.Ritual
		},
		Action: func(ctx *types.ExecutionContext, _ *Subject) Result {
			level := CastLevel(ctx)
			if ctx.Caster.SpellSlots[level] > 0 {
				ctx.Caster.SpellSlots[level]--
			}
			return Result{
				Type:     Modify,
				Data:     map[string]any{KeySlotConsumed: level, KeySlotsRemaining: ctx.Caster.SpellSlots[level]},
				Continue: true,
			}
		},
	}
}

func legendaryRule(cfg Config) Rule {
	return Rule{
		ID:       IDLegendary,
		Event:    SaveFailed,
		Priority: PriorityLegendary,
		Condition: func(_ *types.ExecutionContext, s *Subject) bool {
			if s == nil || s.Target == nil || s.Target.LegendaryResistances <= 0 {
				return false
			}
			return float64(s.Amount) >= cfg.LegendaryThreshold*float64(s.Target.HP.Current)
		},
		Action: func(_ *types.ExecutionContext, s *Subject) Result {
			s.Target.LegendaryResistances--
			return Result{
				Type:     Modify,
				Data:     map[string]any{KeySaveOverride + s.Target.ID: true},
				Continue: true,
			}
		},
	}
}

func magicResistanceRule() Rule {
	return Rule{
		ID:       IDMagicResistance,
		Event:    SavingThrow,
		Priority: PriorityMagicResistance,
		Condition: func(_ *types.ExecutionContext, s *Subject) bool {
			return s != nil && s.Target != nil && s.Target.MagicResistance
		},
		Action: func(_ *types.ExecutionContext, s *Subject) Result {
			return Result{
				Type:     Modify,
				Data:     map[string]any{KeyAdvantage + s.Target.ID: true},
				Continue: true,
			}
		},
	}
}

// CoverLevel maps the number of obstacles between two points to a cover
// grade and its AC/save bonus.
func CoverLevel(obstacles int) (name string, bonus int, full bool) {
	switch {
	case obstacles <= 0:
		return "none", 0, false
	case obstacles == 1:
		return "half", 2, false
	case obstacles == 2:
		return "three-quarters", 5, false
	default:
		return "full", 0, true
	}
}

// ObstaclesBetween counts environment obstacles crossed by the segment a-b.
func ObstaclesBetween(env *types.Environment, a, b *types.Entity) int {
	n := 0
	for _, o := range env.Obstacles {
		if geometry.SegmentIntersectsAABB(a.Position, b.Position, o.Min, o.Max) {
			n++
		}
	}
	return n
}

func coverRule() Rule {
	return Rule{
		ID:       IDCover,
		Event:    PreCast,
		Priority: PriorityCover,
		Condition: func(ctx *types.ExecutionContext, _ *Subject) bool {
			return ctx.Caster != nil && ctx.Env != nil && len(ctx.Env.Obstacles) > 0 && len(ctx.Targets) > 0
		},
		Action: func(ctx *types.ExecutionContext, _ *Subject) Result {
			data := map[string]any{}
			for _, t := range ctx.Targets {
				_, bonus, full := CoverLevel(ObstaclesBetween(ctx.Env, ctx.Caster, t))
				if full {
					data[KeyCoverFull+t.ID] = true
				} else if bonus > 0 {
					data[KeyCoverBonus+t.ID] = bonus
				}
			}
			return Result{Type: Modify, Data: data, Continue: true}
		},
	}
}

// LookupSurge finds the surge table row for a d100 roll.
func LookupSurge(table []Surge, roll int) (Surge, bool) {
	for _, s := range table {
		if roll >= s.Min && roll <= s.Max {
			return s, true
		}
	}
	return Surge{}, false
}

func wildMagicRule(cfg Config) Rule {
	return Rule{
		ID:       IDWildMagic,
		Event:    PostCast,
		Priority: PriorityWildMagic,
		Condition: func(ctx *types.ExecutionContext, _ *Subject) bool {
			return ctx.Caster != nil && ctx.Caster.WildMagic && ctx.Spell != nil && ctx.Spell.Level > 0
		},
		Action: func(ctx *types.ExecutionContext, _ *Subject) Result {
			roll := dice.D20(ctx.Dice)
			if roll != 1 {
				return Result{Type: Log, Data: map[string]any{"roll": roll}, Continue: true}
			}
			surgeRoll := ctx.Dice(100, 1)[0]
			data := map[string]any{"roll": roll, "surge_roll": surgeRoll}
			if s, ok := LookupSurge(cfg.SurgeTable, surgeRoll); ok {
				data["surge"] = s.Effect
			}
			return Result{Type: Trigger, Data: data, Continue: true, Reason: "wild magic surge"}
		},
	}
}
