// Package engine provides the spell orchestrator that wires validation,
// scaling, effect execution and the physics bridge into a single cast, and
// advances the simulation when the host ticks it.
package engine

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/nathoo/spellcore/engine/bridge"
	"github.com/nathoo/spellcore/engine/catalog"
	"github.com/nathoo/spellcore/engine/dice"
	"github.com/nathoo/spellcore/engine/effects"
	"github.com/nathoo/spellcore/engine/events"
	"github.com/nathoo/spellcore/engine/geometry"
	"github.com/nathoo/spellcore/engine/physics"
	"github.com/nathoo/spellcore/engine/rules"
	"github.com/nathoo/spellcore/engine/scaling"
	"github.com/nathoo/spellcore/types"
)

// DefaultTick is the simulated seconds one sandbox "tick" advances.
const DefaultTick = 0.1

// Engine holds the injected collaborators of a session. Nothing is global;
// two engines never share state.
type Engine struct {
	Catalog   *catalog.Catalog
	Env       *types.Environment
	RNG       *dice.RNG // nil when Options.Dice was injected
	Dice      types.DiceFunc
	World     *physics.World
	Bridge    *bridge.Bridge
	Rules     *rules.Engine
	Scaling   *scaling.Engine
	Effects   *effects.Executor
	Observers *events.List
	Tick      float64

	logger *zap.Logger
	// events emitted during the running Step, nil outside of one
	log      []events.Event
	stepping bool
}

// Options configure New. Zero fields select defaults.
type Options struct {
	Catalog *catalog.Catalog
	Env     *types.Environment // defaults to a fresh Catalog.Scene()
	Seed    int64
	Dice    types.DiceFunc  // overrides the seeded RNG
	Physics *physics.Config // defaults to physics.DefaultConfig()
	Rules   []rules.Rule    // defaults to rules.Standard(Catalog.RuleConfig())
	Special map[string]scaling.Special
	Tick    float64
	Logger  *zap.Logger
}

// New creates an engine from options.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.New()
	}
	cfg := physics.DefaultConfig()
	if opts.Physics != nil {
		cfg = *opts.Physics
	}
	env := opts.Env
	if env == nil {
		env = cat.Scene()
		env.Gravity = cfg.Gravity
	}
	rs := opts.Rules
	if rs == nil {
		rs = rules.Standard(cat.RuleConfig())
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultTick
	}

	e := &Engine{
		Catalog:   cat,
		Env:       env,
		Dice:      opts.Dice,
		World:     physics.NewWorld(cfg, logger),
		Rules:     rules.NewEngine(logger, rs...),
		Scaling:   scaling.New(opts.Special),
		Observers: &events.List{},
		Tick:      tick,
		logger:    logger,
	}
	if e.Dice == nil {
		e.RNG = dice.NewRNG(opts.Seed)
		e.Dice = e.RNG.Func()
	}
	e.Bridge = bridge.New(e.World, logger)
	e.Effects = effects.New(e.Rules, logger)
	e.Effects.Fixed = e.fixed
	return e
}

// fixed reports whether the world holds a static body for the entity.
func (e *Engine) fixed(id string) bool {
	b, ok := e.World.Body(id)
	return ok && b.Static
}

// Validation is the outcome of ValidateSpellCast.
type Validation struct {
	Valid         bool
	Reasons       []string
	Modifications map[string]any
}

// CastResult is the outcome of ExecuteSpell. Game-state failures leave
// Success false with Reasons; they are not errors.
type CastResult struct {
	Spell         string
	Success       bool
	Reasons       []string
	Results       []types.EffectResult
	Modifications []types.Modification
	Triggers      []types.Trigger
	Cancelled     []string // physics effects ended by lost concentration
}

// PhysicsEffect describes an effect registered with the bridge.
type PhysicsEffect struct {
	ID          string
	Archetype   types.Archetype
	EffectIndex int
	Bodies      []string
}

// PhysicsCastResult is the outcome of CastSpellWithPhysics.
type PhysicsCastResult struct {
	CastResult
	Physics []PhysicsEffect
}

// Impact is a projectile payload delivered during a tick.
type Impact struct {
	EffectID string
	Target   string
	Result   *types.EffectResult // nil when the projectile struck scenery
}

// TickReport is what one UpdatePhysics call did.
type TickReport struct {
	Time       float64
	Collisions int
	Impacts    []Impact
	Expired    []string
	Skipped    []string
	Cancelled  []string
	Triggers   []types.Trigger
}

// Context builds an execution context for a cast against the engine's
// environment and dice.
func (e *Engine) Context(caster *types.Entity, targets []*types.Entity, origin mgl64.Vec3) *types.ExecutionContext {
	return &types.ExecutionContext{
		Caster:   caster,
		Targets:  targets,
		Env:      e.Env,
		Dice:     e.Dice,
		Origin:   origin,
		Metadata: map[string]any{},
	}
}

// prepare binds spell and slot level to ctx, fills defaults and computes the
// cast's scaling table. Every error it returns is a ConfigurationError.
func (e *Engine) prepare(spell *types.Spell, ctx *types.ExecutionContext, slotLevel int) error {
	switch {
	case spell == nil:
		return types.Configf("cast", "nil spell")
	case ctx == nil:
		return types.Configf("cast", "nil execution context")
	case ctx.Caster == nil:
		return types.Configf("cast", "%s cast without a caster", spell.ID)
	}
	ctx.Spell = spell
	ctx.SlotLevel = slotLevel
	if ctx.Dice == nil {
		ctx.Dice = e.Dice
	}
	if ctx.Env == nil {
		ctx.Env = e.Env
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	// Self spells target the caster.
	if spell.Range == 0 && len(ctx.Targets) == 0 {
		ctx.Targets = []*types.Entity{ctx.Caster}
	}

	table, err := e.Scaling.Compute(spell, slotLevel, ctx.Caster.Level)
	if err != nil {
		return err
	}
	ctx.Scaled = table
	return nil
}

// check runs the game-state preconditions of a cast.
func check(ctx *types.ExecutionContext) []string {
	var reasons []string
	spell, caster := ctx.Spell, ctx.Caster

	if caster.HP.Max > 0 && caster.HP.Current <= 0 {
		reasons = append(reasons, caster.ID+" is unconscious")
	}
	if spell.Level > 0 && !spell.Ritual && caster.SpellSlots != nil {
		level := rules.CastLevel(ctx)
		if caster.SpellSlots[level] <= 0 {
			reasons = append(reasons, fmt.Sprintf("no level %d spell slots remaining", level))
		}
	}
	if spell.Range > 0 {
		for _, t := range ctx.Targets {
			if d := geometry.Distance(caster.Position, t.Position); d > spell.Range {
				reasons = append(reasons, fmt.Sprintf("%s is out of range (%.0f > %.0f)", t.ID, d, spell.Range))
			}
		}
		if len(ctx.Targets) == 0 && needsTargets(spell) {
			reasons = append(reasons, "no valid targets")
		}
	}
	return reasons
}

// needsTargets reports whether some effect of a ranged spell acts on
// explicit targets rather than an area or the battlefield.
func needsTargets(spell *types.Spell) bool {
	for _, eff := range spell.Effects {
		if eff.Common().Area != nil {
			continue
		}
		switch eff.(type) {
		case types.GeometryEffect, types.SummonEffect, types.TimeEffect:
			continue
		}
		if p := eff.Common().Physics; p != nil && p.Archetype == types.ArchTeleport {
			continue
		}
		return true
	}
	return false
}

// validate runs the preconditions, then the pre-cast rules. A dry run
// leaves reactions unspent.
func (e *Engine) validate(ctx *types.ExecutionContext, dry bool) Validation {
	if reasons := check(ctx); len(reasons) > 0 {
		return Validation{Reasons: reasons}
	}
	if dry {
		ctx.Metadata[rules.KeyDryRun] = true
		defer delete(ctx.Metadata, rules.KeyDryRun)
	}
	out := e.Rules.Evaluate(rules.PreCast, ctx, nil)
	return Validation{
		Valid:         !out.Prevented,
		Reasons:       out.Reasons,
		Modifications: out.Modifications,
	}
}

// ValidateSpellCast reports whether caster could cast spell at targets in
// env, without casting it. A nil env uses the engine's environment.
func (e *Engine) ValidateSpellCast(spell *types.Spell, caster *types.Entity, targets []*types.Entity, env *types.Environment) Validation {
	if spell == nil || caster == nil {
		return Validation{Reasons: []string{"nothing to cast"}}
	}
	ctx := e.Context(caster, targets, mgl64.Vec3{})
	if env != nil {
		ctx.Env = env
	}
	if err := e.prepare(spell, ctx, 0); err != nil {
		return Validation{Reasons: []string{err.Error()}}
	}
	return e.validate(ctx, true)
}

// ExecuteSpell validates, scales and resolves every effect of spell
// directly, without physics. Only ConfigurationErrors are returned as
// errors.
func (e *Engine) ExecuteSpell(spell *types.Spell, ctx *types.ExecutionContext, slotLevel int) (CastResult, error) {
	// 1. Bind the cast and compute scaling.
	if err := e.prepare(spell, ctx, slotLevel); err != nil {
		return CastResult{}, err
	}
	res := CastResult{Spell: spell.ID}

	// 2. Preconditions and pre-cast rules.
	if v := e.validate(ctx, false); !v.Valid {
		res.Reasons = v.Reasons
		e.prevented(ctx, res.Reasons)
		return res, nil
	}

	// 3. Effects, in order.
	results, err := e.Effects.Execute(ctx, nil)
	if err != nil {
		return res, err
	}
	res.Results = results

	// 4. Post-cast bookkeeping.
	e.finish(ctx, &res, nil)
	return res, nil
}

// bridgeOwned reports whether the bridge alone resolves an effect: projectiles
// deliver their payload on impact, barriers raise segments instead of an
// obstacle, teleports move their subject once line of sight is confirmed.
func bridgeOwned(eff types.Effect) bool {
	p := eff.Common().Physics
	if p == nil {
		return false
	}
	switch p.Archetype {
	case types.ArchProjectile, types.ArchBarrier, types.ArchTeleport:
		return true
	}
	return false
}

// CastSpellWithPhysics runs the full pipeline: validation, scaling, direct
// effects, then physics registration for every effect carrying a physics
// spec. position is the cast's point of origin.
func (e *Engine) CastSpellWithPhysics(spell *types.Spell, caster *types.Entity, targets []*types.Entity, level int, position mgl64.Vec3) (PhysicsCastResult, error) {
	ctx := e.Context(caster, targets, position)

	// 1. Bind the cast and compute scaling.
	if err := e.prepare(spell, ctx, level); err != nil {
		return PhysicsCastResult{}, err
	}
	res := PhysicsCastResult{CastResult: CastResult{Spell: spell.ID}}

	// 2. Split effects between direct resolution and the bridge, and
	// convert every physics spec so an authoring defect fails before
	// anything changes.
	direct := make([]int, 0, len(spell.Effects))
	var spatial []int
	archs := map[int]bridge.Archetype{}
	for i, eff := range spell.Effects {
		if !bridgeOwned(eff) {
			direct = append(direct, i)
		}
		if eff.Common().Physics == nil {
			continue
		}
		arch, err := bridge.FromEffect(eff, ctx)
		if err != nil {
			return res, err
		}
		spatial = append(spatial, i)
		archs[i] = arch
	}

	// 3. Preconditions and pre-cast rules.
	if v := e.validate(ctx, false); !v.Valid {
		res.Reasons = v.Reasons
		e.prevented(ctx, res.Reasons)
		return res, nil
	}

	// 4. Direct effects.
	results, err := e.Effects.Execute(ctx, direct)
	if err != nil {
		return res, err
	}
	res.Results = results

	// 5. Physics registration.
	var evs []events.Event
	for _, i := range spatial {
		eff, arch := spell.Effects[i], archs[i]
		before := positions(ctx)
		a, err := e.Bridge.Register(arch, ctx, i)
		if errors.Is(err, bridge.ErrLineOfSight) || errors.Is(err, bridge.ErrStaticSubject) {
			res.Results = append(res.Results, types.EffectResult{
				EffectIndex: i,
				Kind:        eff.Kind(),
				Notes:       []string{err.Error()},
			})
			continue
		}
		if err != nil {
			return res, err
		}
		res.Physics = append(res.Physics, PhysicsEffect{
			ID:          a.ID,
			Archetype:   arch.Kind(),
			EffectIndex: i,
			Bodies:      append([]string(nil), a.Bodies...),
		})
		if bridgeOwned(eff) {
			if r, ok := ownedResult(ctx, a, before); ok {
				res.Results = append(res.Results, r)
			}
		}
		evs = append(evs, events.Event{
			Type: events.EffectRegistered,
			Time: e.World.Time(),
			Data: map[string]any{"id": a.ID, "archetype": string(arch.Kind()), "spell": spell.ID},
		})
	}

	// 6. Post-cast bookkeeping.
	e.finish(ctx, &res.CastResult, evs)
	return res, nil
}

// positions captures where the cast's entities stand.
func positions(ctx *types.ExecutionContext) map[string]mgl64.Vec3 {
	out := map[string]mgl64.Vec3{ctx.Caster.ID: ctx.Caster.Position}
	for _, t := range ctx.Targets {
		out[t.ID] = t.Position
	}
	return out
}

// ownedResult reports what a bridge-owned effect did at registration.
// Projectiles report on impact instead.
func ownedResult(ctx *types.ExecutionContext, a *bridge.Active, before map[string]mgl64.Vec3) (types.EffectResult, bool) {
	r := types.EffectResult{EffectIndex: a.Index, Kind: ctx.Spell.Effects[a.Index].Kind(), Success: true}
	switch arch := a.Archetype.(type) {
	case bridge.Teleportation:
		for _, id := range a.Targets() {
			m := types.Modification{EntityID: id, Property: effects.PropPosition, OldValue: before[id], NewValue: arch.Destination}
			r.Targets = append(r.Targets, id)
			r.Modifications = append(r.Modifications, m)
			ctx.Modifications = append(ctx.Modifications, m)
		}
	case bridge.Barrier:
		r.Notes = append(r.Notes, fmt.Sprintf("wall of %d segments", len(a.Bodies)))
	default:
		return r, false
	}
	return r, true
}

// finish evaluates the post-cast rules and settles their consequences.
func (e *Engine) finish(ctx *types.ExecutionContext, res *CastResult, evs []events.Event) {
	post := e.Rules.Evaluate(rules.PostCast, ctx, nil)

	for _, r := range res.Results {
		res.Triggers = append(res.Triggers, r.Triggers...)
	}
	for _, t := range post.Triggers {
		res.Triggers = append(res.Triggers, types.Trigger{RuleID: t.RuleID, Data: t.Result.Data})
	}

	// A new concentration spell ends the previous one.
	if prev, ok := post.Modifications[rules.KeyReplaced].(string); ok {
		ids := e.Bridge.CancelSource(ctx.Caster.ID, prev)
		res.Cancelled = append(res.Cancelled, ids...)
		evs = append(evs, events.Event{
			Type: events.ConcentrationLost,
			Time: e.World.Time(),
			Data: map[string]any{"target": ctx.Caster.ID, "spell": prev, "cancelled": ids},
		})
	}
	cancelled, more := e.settle(res.Triggers)
	res.Cancelled = append(res.Cancelled, cancelled...)
	evs = append(evs, more...)

	res.Success = true
	res.Modifications = ctx.Modifications
	evs = append(evs, events.Event{
		Type: events.CastResolved,
		Time: e.World.Time(),
		Data: map[string]any{"spell": ctx.Spell.ID, "caster": ctx.Caster.ID, "modifications": len(ctx.Modifications)},
	})
	e.emit(evs)

	e.logger.Debug("spell cast",
		zap.String("spell", ctx.Spell.ID),
		zap.String("caster", ctx.Caster.ID),
		zap.Int("slot", ctx.SlotLevel),
		zap.Int("results", len(res.Results)),
		zap.Int("modifications", len(ctx.Modifications)),
	)
}

func (e *Engine) prevented(ctx *types.ExecutionContext, reasons []string) {
	e.logger.Debug("spell prevented",
		zap.String("spell", ctx.Spell.ID),
		zap.String("caster", ctx.Caster.ID),
		zap.Strings("reasons", reasons),
	)
	e.emit([]events.Event{{
		Type: events.CastPrevented,
		Time: e.World.Time(),
		Data: map[string]any{"spell": ctx.Spell.ID, "caster": ctx.Caster.ID, "reasons": reasons},
	}})
}

// settle applies rule triggers that reach outside the effect pipeline:
// broken concentration cancels the spell's physics effects.
func (e *Engine) settle(triggers []types.Trigger) ([]string, []events.Event) {
	var cancelled []string
	var evs []events.Event
	now := e.World.Time()
	for _, t := range triggers {
		switch t.RuleID {
		case rules.IDConcentrationCheck:
			target, _ := t.Data["target"].(string)
			spell, _ := t.Data["spell"].(string)
			ids := e.Bridge.CancelSource(target, spell)
			cancelled = append(cancelled, ids...)
			evs = append(evs, events.Event{
				Type: events.ConcentrationLost,
				Time: now,
				Data: map[string]any{"target": target, "spell": spell, "cancelled": ids},
			})
		case rules.IDWildMagic:
			evs = append(evs, events.Event{Type: events.WildSurge, Time: now, Data: t.Data})
		}
	}
	return cancelled, evs
}

// UpdatePhysics advances the simulation by dt: the bridge steps the world,
// projectile impacts deliver their payload to the entity struck, and
// expired effects are evicted.
func (e *Engine) UpdatePhysics(dt float64) TickReport {
	r := e.Bridge.Update(dt)
	rep := TickReport{
		Time:       e.World.Time(),
		Collisions: len(r.Collisions),
		Expired:    r.Expired,
		Skipped:    r.Skipped,
	}
	var evs []events.Event

	for _, hit := range r.Hits {
		a := hit.Active
		imp := Impact{EffectID: a.ID, Target: hit.Body.ID}
		if t, ok := a.Ctx.Env.Entities[hit.Body.ID]; ok && t == hit.Body.Entity {
			res, err := e.Effects.ApplyTo(a.Ctx, a.Index, []*types.Entity{t})
			if err != nil {
				e.logger.Error("projectile payload failed",
					zap.String("id", a.ID),
					zap.String("target", t.ID),
					zap.Error(err),
				)
			} else {
				imp.Result = &res
				rep.Triggers = append(rep.Triggers, res.Triggers...)
			}
		}
		rep.Impacts = append(rep.Impacts, imp)
		evs = append(evs, events.Event{
			Type: events.ProjectileHit,
			Time: rep.Time,
			Data: map[string]any{"id": a.ID, "target": hit.Body.ID, "delivered": imp.Result != nil},
		})
	}

	cancelled, more := e.settle(rep.Triggers)
	rep.Cancelled = cancelled
	evs = append(evs, more...)

	for _, id := range rep.Expired {
		evs = append(evs, events.Event{Type: events.EffectExpired, Time: rep.Time, Data: map[string]any{"id": id}})
	}
	for _, id := range rep.Skipped {
		evs = append(evs, events.Event{Type: events.EffectSkipped, Time: rep.Time, Data: map[string]any{"id": id}})
	}
	e.emit(evs)
	return rep
}

// emit records events for the current step and hands them to the observers.
func (e *Engine) emit(evs []events.Event) {
	if e.stepping {
		e.log = append(e.log, evs...)
	}
	e.Observers.Dispatch(evs)
}

// Dispel cancels a registered physics effect. It reports whether the
// effect existed.
func (e *Engine) Dispel(id string) bool {
	if !e.Bridge.Cancel(id) {
		return false
	}
	e.emit([]events.Event{{
		Type: events.EffectCancelled,
		Time: e.World.Time(),
		Data: map[string]any{"id": id},
	}})
	return true
}
