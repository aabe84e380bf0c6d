package effects

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/nathoo/spellcore/engine/dice"
	"github.com/nathoo/spellcore/engine/geometry"
	"github.com/nathoo/spellcore/engine/rules"
	"github.com/nathoo/spellcore/types"
)

func (r *resolution) expr(base string) (dice.Expr, error) {
	s := base
	if r.ovr.Dice != "" {
		s = r.ovr.Dice
	}
	e, err := dice.Parse(s)
	if err != nil {
		return dice.Expr{}, types.Configf("execute", "%s effect %d: %v", r.ctx.Spell.ID, r.res.EffectIndex, err)
	}
	return e, nil
}

func (r *resolution) amount(e dice.Expr, fn types.AmountFunc, bonus int, addMod bool) int {
	var n int
	if fn != nil {
		n = fn(r.ctx)
	} else {
		n, _ = e.Roll(r.ctx.Dice)
	}
	n += bonus
	if addMod {
		n += r.ctx.Caster.SpellcastingMod
	}
	if n < 0 {
		n = 0
	}
	return n
}

func (r *resolution) rollInstances(e dice.Expr, v types.DamageEffect, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = r.amount(e, v.Amount, v.Bonus, v.AddModifier)
	}
	return out
}

// damage rolls once per effect for area effects and once per target
// otherwise. Each instance is rolled and recorded independently.
func (r *resolution) damage(v types.DamageEffect, targets []*types.Entity) error {
	e, err := r.expr(v.Dice)
	if err != nil {
		return err
	}
	instances := v.Instances
	if r.ovr.Instances > 0 {
		instances = r.ovr.Instances
	}
	if instances < 1 {
		instances = 1
	}

	var shared []int
	if v.Area != nil {
		shared = r.rollInstances(e, v, instances)
	}

	for _, t := range targets {
		amounts := shared
		if amounts == nil {
			amounts = r.rollInstances(e, v, instances)
		}

		total := 0
		for _, a := range amounts {
			total += a
		}
		saved := r.save(t, Precedence(t, v.Type, total))
		var outcome types.SaveOutcome
		if v.Save != nil {
			outcome = v.Save.OnSuccess
		}
		if _, skip := AdjustForSave(total, outcome, saved); skip {
			r.note("%s saves, unaffected", t.ID)
			continue
		}

		for _, raw := range amounts {
			adjusted, _ := AdjustForSave(raw, outcome, saved)
			r.applyDamage(t, Precedence(t, v.Type, adjusted))
		}
	}
	return nil
}

func (r *resolution) applyDamage(t *types.Entity, amount int) {
	n := 0
	remaining := amount
	oldTemp := t.TempHP
	if t.TempHP > 0 && remaining > 0 {
		absorbed := min(t.TempHP, remaining)
		t.TempHP -= absorbed
		remaining -= absorbed
		r.record(types.Modification{EntityID: t.ID, Property: PropTempHP, OldValue: oldTemp, NewValue: t.TempHP})
		n++
	}

	old := t.HP.Current
	t.HP.Current = clampHP(old-remaining, t.HP.Max)
	r.record(types.Modification{EntityID: t.ID, Property: PropHP, OldValue: old, NewValue: t.HP.Current})
	n++

	out := r.evaluate(rules.Damage, &rules.Subject{Target: t, Amount: amount})
	if out.Prevented {
		t.TempHP = oldTemp
		t.HP.Current = old
		r.unrecord(n)
		r.note("damage to %s prevented: %s", t.ID, strings.Join(out.Reasons, ", "))
		return
	}
	r.hit(t)
}

func clampHP(hp, maxHP int) int {
	if hp < 0 {
		return 0
	}
	if hp > maxHP {
		return maxHP
	}
	return hp
}

func (r *resolution) healing(v types.HealingEffect, targets []*types.Entity) error {
	e, err := r.expr(v.Dice)
	if err != nil {
		return err
	}
	shared := -1
	if v.Area != nil {
		shared = r.amount(e, v.Amount, v.Bonus, v.AddModifier)
	}

	for _, t := range targets {
		amount := shared
		if amount < 0 {
			amount = r.amount(e, v.Amount, v.Bonus, v.AddModifier)
		}
		if v.Save != nil {
			saved := r.save(t, 0)
			var skip bool
			if amount, skip = AdjustForSave(amount, v.Save.OnSuccess, saved); skip {
				r.note("%s saves, unaffected", t.ID)
				continue
			}
		}

		old := t.HP.Current
		t.HP.Current = clampHP(old+amount, t.HP.Max)
		r.record(types.Modification{EntityID: t.ID, Property: PropHP, OldValue: old, NewValue: t.HP.Current})

		out := r.evaluate(rules.Healing, &rules.Subject{Target: t, Amount: amount})
		if out.Prevented {
			t.HP.Current = old
			r.unrecord(1)
			r.note("healing of %s prevented: %s", t.ID, strings.Join(out.Reasons, ", "))
			continue
		}
		r.hit(t)
	}
	return nil
}

// condition applies a named condition. Any successful save resists it.
func (r *resolution) condition(v types.ConditionEffect, targets []*types.Entity) {
	prop := PropCondition + v.Condition
	for _, t := range targets {
		if t.ConditionImmunities.Has(v.Condition) {
			r.note("%s is immune to %s", t.ID, v.Condition)
			continue
		}
		if r.save(t, 0) {
			r.note("%s resists %s", t.ID, v.Condition)
			continue
		}

		if t.Conditions == nil {
			t.Conditions = types.Set{}
		}
		had := t.Conditions.Has(v.Condition)
		t.Conditions[v.Condition] = true
		r.record(types.Modification{EntityID: t.ID, Property: prop, OldValue: had, NewValue: true})

		out := r.evaluate(rules.Condition, &rules.Subject{Target: t})
		if out.Prevented {
			if !had {
				delete(t.Conditions, v.Condition)
			}
			r.unrecord(1)
			r.note("%s on %s prevented: %s", v.Condition, t.ID, strings.Join(out.Reasons, ", "))
			continue
		}
		r.hit(t)
	}
	if v.Rounds > 0 && r.res.Success {
		r.note("%s lasts %d rounds", v.Condition, v.Rounds)
	}
}

// movement pushes targets away from the caster, pulls them toward it, or
// teleports them to the cast origin.
func (r *resolution) movement(v types.MovementEffect, targets []*types.Entity) {
	for _, t := range targets {
		if r.x.Fixed != nil && r.x.Fixed(t.ID) {
			r.note("%s is fixed in place, unmoved", t.ID)
			continue
		}
		dist := v.Distance
		if v.Save != nil && r.save(t, 0) {
			switch v.Save.OnSuccess {
			case types.SaveHalf:
				dist /= 2
			case types.SaveNone:
				dist = 0
			default:
				r.note("%s saves, unmoved", t.ID)
				continue
			}
		}

		old := t.Position
		var next mgl64.Vec3
		switch v.Mode {
		case types.MoveTeleport:
			next = r.ctx.Origin
		case types.MovePull:
			to := r.ctx.Caster.Position.Sub(old)
			dist = min(dist, geometry.Magnitude(to))
			next = old.Add(geometry.Scale(geometry.Normalize(to), dist))
		default:
			away := geometry.Normalize(old.Sub(r.ctx.Caster.Position))
			next = old.Add(geometry.Scale(away, dist))
		}
		if next == old {
			continue
		}

		t.Position = next
		r.record(types.Modification{EntityID: t.ID, Property: PropPosition, OldValue: old, NewValue: next})
		out := r.evaluate(rules.Movement, &rules.Subject{Target: t})
		if out.Prevented {
			t.Position = old
			r.unrecord(1)
			r.note("movement of %s prevented: %s", t.ID, strings.Join(out.Reasons, ", "))
			continue
		}
		r.hit(t)
	}
}

// geometry adds a line-of-sight obstacle at the cast origin, sized from the
// effect's area.
func (r *resolution) geometry(v types.GeometryEffect) {
	env := r.ctx.Env
	if env == nil {
		r.note("no environment for %s", v.Feature)
		return
	}
	half := 0.5
	if a := v.Area; a != nil {
		half = max(half, a.Radius, a.Size/2, a.Width/2)
	}
	ext := mgl64.Vec3{half, half, half}
	id := fmt.Sprintf("%s:%s:%d", r.ctx.Spell.ID, v.Feature, len(env.Obstacles))
	env.Obstacles = append(env.Obstacles, types.Obstacle{
		ID:  id,
		Min: r.ctx.Origin.Sub(ext),
		Max: r.ctx.Origin.Add(ext),
	})
	r.record(types.Modification{EntityID: EnvID, Property: PropObstacle, OldValue: nil, NewValue: id})
	r.res.Success = true
}

func (r *resolution) summon(v types.SummonEffect) {
	env := r.ctx.Env
	if env == nil {
		r.note("no environment to summon %s into", v.Creature)
		return
	}
	if env.Entities == nil {
		env.Entities = map[string]*types.Entity{}
	}
	hp := max(v.HP, 1)
	for i := 0; i < max(v.Count, 1); i++ {
		id := nextID(env, v.Creature)
		e := &types.Entity{
			ID:       id,
			Name:     v.Creature,
			Position: r.ctx.Origin,
			HP:       types.HitPoints{Current: hp, Max: hp},
		}
		env.Entities[id] = e
		r.record(types.Modification{EntityID: id, Property: PropSummoned, OldValue: nil, NewValue: v.Creature})
		r.hit(e)
	}
}

func nextID(env *types.Environment, base string) string {
	for n := 1; ; n++ {
		id := fmt.Sprintf("%s_%d", base, n)
		if _, taken := env.Entities[id]; !taken {
			return id
		}
	}
}

// time records a change to the flow of rounds on the caster.
func (r *resolution) time(v types.TimeEffect) {
	c := r.ctx.Caster
	old, _ := r.ctx.Metadata[PropTimeRounds].(int)
	r.ctx.Metadata[PropTimeRounds] = v.Rounds
	r.record(types.Modification{EntityID: c.ID, Property: PropTimeRounds, OldValue: old, NewValue: v.Rounds})
	r.hit(c)
}

func (r *resolution) information(v types.InformationEffect, targets []*types.Entity) {
	for _, t := range targets {
		switch v.Reveal {
		case "hp":
			r.note("%s: %d/%d hp", t.ID, t.HP.Current, t.HP.Max)
		case "conditions":
			r.note("%s conditions: %s", t.ID, setString(t.Conditions))
		case "resistances":
			r.note("%s resists: %s; immune: %s; vulnerable: %s", t.ID,
				setString(t.Resistances), setString(t.Immunities), setString(t.Vulnerabilities))
		default:
			r.note("%s: ac %d", t.ID, t.ArmorClass)
		}
		r.hit(t)
	}
}

func setString(s types.Set) string {
	keys := s.Sorted()
	if len(keys) == 0 {
		return "none"
	}
	return strings.Join(keys, ", ")
}

// transformation changes a target's form and grants temporary hit points.
// Temporary hit points never stack; the higher value wins.
func (r *resolution) transformation(v types.TransformationEffect, targets []*types.Entity) {
	for _, t := range targets {
		if r.save(t, 0) {
			r.note("%s resists transformation", t.ID)
			continue
		}
		old := t.Form
		t.Form = v.Form
		r.record(types.Modification{EntityID: t.ID, Property: PropForm, OldValue: old, NewValue: v.Form})
		if v.TempHP > t.TempHP {
			oldTemp := t.TempHP
			t.TempHP = v.TempHP
			r.record(types.Modification{EntityID: t.ID, Property: PropTempHP, OldValue: oldTemp, NewValue: v.TempHP})
		}
		r.hit(t)
	}
}
