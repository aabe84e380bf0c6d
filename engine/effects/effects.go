// Package effects executes a spell's ordered effect list against an execution
// context. Every mutation is recorded and folded into the context so later
// effects of the same cast observe earlier ones.
package effects

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/nathoo/spellcore/engine/dice"
	"github.com/nathoo/spellcore/engine/geometry"
	"github.com/nathoo/spellcore/engine/rules"
	"github.com/nathoo/spellcore/types"
)

// Modification property names.
const (
	PropHP         = "hp"
	PropTempHP     = "temp_hp"
	PropPosition   = "position"
	PropForm       = "form"
	PropCondition  = "condition:" // suffixed with the condition name
	PropObstacle   = "obstacle"
	PropSummoned   = "summoned"
	PropTimeRounds = "time_rounds"
)

// EnvID is the entity id used when recording changes to the environment.
const EnvID = "env"

// Executor runs effects. It evaluates the lifecycle rules for each mutation.
type Executor struct {
	// Fixed reports entities the host holds in place. Movement effects
	// leave them where they are. Nil fixes nothing.
	Fixed func(id string) bool

	rules  *rules.Engine
	logger *zap.Logger
}

// New creates an executor. A nil rule engine evaluates no rules.
func New(r *rules.Engine, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if r == nil {
		r = rules.NewEngine(logger)
	}
	return &Executor{rules: r, logger: logger}
}

// Execute runs the effects at indices, in order. A nil indices slice runs
// every effect of the spell.
func (x *Executor) Execute(ctx *types.ExecutionContext, indices []int) ([]types.EffectResult, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if indices == nil {
		indices = make([]int, len(ctx.Spell.Effects))
		for i := range indices {
			indices[i] = i
		}
	}

	results := make([]types.EffectResult, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(ctx.Spell.Effects) {
			return results, types.Configf("execute", "%s has no effect %d", ctx.Spell.ID, i)
		}
		res, err := x.run(ctx, i, x.selectTargets(ctx, i))
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ApplyTo runs a single effect against explicit targets, bypassing area
// selection. Projectile collisions use it to deliver their payload.
func (x *Executor) ApplyTo(ctx *types.ExecutionContext, index int, targets []*types.Entity) (types.EffectResult, error) {
	if err := checkContext(ctx); err != nil {
		return types.EffectResult{}, err
	}
	if index < 0 || index >= len(ctx.Spell.Effects) {
		return types.EffectResult{}, types.Configf("apply", "%s has no effect %d", ctx.Spell.ID, index)
	}
	return x.run(ctx, index, x.limit(ctx, index, targets))
}

func checkContext(ctx *types.ExecutionContext) error {
	switch {
	case ctx == nil:
		return types.Configf("execute", "nil execution context")
	case ctx.Spell == nil:
		return types.Configf("execute", "execution context has no spell")
	case ctx.Caster == nil:
		return types.Configf("execute", "execution context has no caster")
	case ctx.Dice == nil:
		return types.Configf("execute", "execution context has no dice source")
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return nil
}

// run resolves one effect against its targets.
func (x *Executor) run(ctx *types.ExecutionContext, index int, targets []*types.Entity) (types.EffectResult, error) {
	eff := ctx.Spell.Effects[index]
	r := &resolution{
		x:   x,
		ctx: ctx,
		eff: eff,
		ovr: ctx.Scaled[index],
		res: types.EffectResult{EffectIndex: index, Kind: eff.Kind()},
	}

	var err error
	switch v := eff.(type) {
	case types.DamageEffect:
		err = r.damage(v, targets)
	case types.HealingEffect:
		err = r.healing(v, targets)
	case types.ConditionEffect:
		r.condition(v, targets)
	case types.MovementEffect:
		r.movement(v, targets)
	case types.GeometryEffect:
		r.geometry(v)
	case types.SummonEffect:
		r.summon(v)
	case types.TimeEffect:
		r.time(v)
	case types.InformationEffect:
		r.information(v, targets)
	case types.TransformationEffect:
		r.transformation(v, targets)
	default:
		err = types.Configf("execute", "unknown effect kind %q", eff.Kind())
	}
	if err != nil {
		return r.res, err
	}

	x.logger.Debug("effect resolved",
		zap.String("spell", ctx.Spell.ID),
		zap.Int("effect", index),
		zap.String("kind", string(eff.Kind())),
		zap.Bool("success", r.res.Success),
		zap.Int("modifications", len(r.res.Modifications)),
	)
	return r.res, nil
}

// selectTargets picks the targets of effect i: entities inside its area when
// it has one, the context's targets otherwise. Filters and target limits
// apply to both.
func (x *Executor) selectTargets(ctx *types.ExecutionContext, i int) []*types.Entity {
	common := ctx.Spell.Effects[i].Common()
	candidates := ctx.Targets
	if common.Area != nil && ctx.Env != nil {
		area := *common.Area
		if r := ctx.Scaled[i].Radius; r > 0 {
			area.Radius = r
		}
		origin, dir := areaAnchor(ctx, area)
		candidates = geometry.EntitiesInArea(ctx.Env, area, origin, dir)
	}
	return x.limit(ctx, i, candidates)
}

func (x *Executor) limit(ctx *types.ExecutionContext, i int, candidates []*types.Entity) []*types.Entity {
	common := ctx.Spell.Effects[i].Common()
	n := common.MaxTargets
	if t := ctx.Scaled[i].Targets; t > 0 {
		n = t
	}

	var out []*types.Entity
	for _, t := range candidates {
		if t == nil {
			continue
		}
		if common.Filter != nil && !common.Filter(ctx, t) {
			continue
		}
		if full, _ := ctx.Metadata[rules.KeyCoverFull+t.ID].(bool); full {
			continue
		}
		out = append(out, t)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

// areaAnchor returns where an area is anchored. Cones and lines start at the
// caster and point at the cast origin (or the first target); spheres and
// cubes are centred on the cast origin.
func areaAnchor(ctx *types.ExecutionContext, area types.Area) (origin, dir mgl64.Vec3) {
	switch area.Shape {
	case types.ShapeCone, types.ShapeLine:
		origin = ctx.Caster.Position
		dir = ctx.Origin.Sub(origin)
		if geometry.Magnitude(dir) < geometry.Epsilon && len(ctx.Targets) > 0 {
			dir = ctx.Targets[0].Position.Sub(origin)
		}
		if geometry.Magnitude(dir) < geometry.Epsilon {
			dir = mgl64.Vec3{1, 0, 0}
		}
		return origin, dir
	default:
		return ctx.Origin, mgl64.Vec3{}
	}
}

// SaveDC returns the DC for a save: the save's own DC, else the spell's
// fixed DC, else 8 + proficiency + spellcasting modifier.
func SaveDC(ctx *types.ExecutionContext, s *types.SaveSpec) int {
	if s != nil && s.DC > 0 {
		return s.DC
	}
	if ctx.Spell != nil && ctx.Spell.SaveDC > 0 {
		return ctx.Spell.SaveDC
	}
	return 8 + ctx.Caster.ProficiencyBonus + ctx.Caster.SpellcastingMod
}

// Precedence applies damage-type affinities to an amount: immunity zeroes
// it, else resistance halves it (floor), else vulnerability doubles it.
func Precedence(target *types.Entity, dt types.DamageType, amount int) int {
	if amount < 0 {
		amount = 0
	}
	switch t := string(dt); {
	case target.Immunities.Has(t):
		return 0
	case target.Resistances.Has(t):
		return amount / 2
	case target.Vulnerabilities.Has(t):
		return amount * 2
	default:
		return amount
	}
}

// AdjustForSave applies a successful save's policy. skip reports that the
// target is unaffected and gets no record.
func AdjustForSave(amount int, outcome types.SaveOutcome, saved bool) (adjusted int, skip bool) {
	if !saved {
		return amount, false
	}
	switch outcome {
	case types.SaveHalf:
		return amount / 2, false
	case types.SaveNone:
		return 0, false
	default:
		return 0, true
	}
}

// resolution accumulates the result of one effect.
type resolution struct {
	x   *Executor
	ctx *types.ExecutionContext
	eff types.Effect
	ovr types.Override
	res types.EffectResult
}

func (r *resolution) record(m types.Modification) {
	r.res.Modifications = append(r.res.Modifications, m)
	r.ctx.Modifications = append(r.ctx.Modifications, m)
}

// unrecord drops the last n records from both the result and the context.
func (r *resolution) unrecord(n int) {
	r.res.Modifications = r.res.Modifications[:len(r.res.Modifications)-n]
	r.ctx.Modifications = r.ctx.Modifications[:len(r.ctx.Modifications)-n]
}

func (r *resolution) hit(t *types.Entity) {
	for _, id := range r.res.Targets {
		if id == t.ID {
			return
		}
	}
	r.res.Targets = append(r.res.Targets, t.ID)
	r.res.Success = true
}

func (r *resolution) note(format string, args ...any) {
	r.res.Notes = append(r.res.Notes, fmt.Sprintf(format, args...))
}

// evaluate runs the rules for event and folds triggers into the result.
func (r *resolution) evaluate(event rules.Event, s *rules.Subject) rules.Outcome {
	out := r.x.rules.Evaluate(event, r.ctx, s)
	for _, t := range out.Triggers {
		r.res.Triggers = append(r.res.Triggers, types.Trigger{RuleID: t.RuleID, Data: t.Result.Data})
		if t.Result.Reason != "" {
			r.note("%s: %s", t.Result.Reason, s.Target.ID)
		}
	}
	return out
}

// save rolls the effect's saving throw for target. amount is the damage the
// failed save would let through, used by legendary resistance.
func (r *resolution) save(t *types.Entity, amount int) bool {
	spec := r.eff.Common().Save
	if spec == nil {
		return false
	}
	dc := SaveDC(r.ctx, spec)
	subject := &rules.Subject{Target: t, Amount: amount, Ability: spec.Ability, DC: dc}

	r.evaluate(rules.SavingThrow, subject)
	roll := dice.D20(r.ctx.Dice)
	if popBool(r.ctx.Metadata, rules.KeyAdvantage+t.ID) {
		if second := dice.D20(r.ctx.Dice); second > roll {
			roll = second
		}
	}

	total := roll + t.SaveBonus(spec.Ability)
	if spec.Ability == types.Dexterity {
		if bonus, ok := r.ctx.Metadata[rules.KeyCoverBonus+t.ID].(int); ok {
			total += bonus
		}
	}
	if total >= dc {
		return true
	}

	r.evaluate(rules.SaveFailed, subject)
	if popBool(r.ctx.Metadata, rules.KeySaveOverride+t.ID) {
		r.note("%s uses legendary resistance", t.ID)
		return true
	}
	return false
}

func popBool(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	delete(m, key)
	return v
}
