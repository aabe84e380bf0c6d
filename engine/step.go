package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/nathoo/spellcore/engine/events"
	"github.com/nathoo/spellcore/engine/parser"
	"github.com/nathoo/spellcore/engine/resolve"
	"github.com/nathoo/spellcore/types"
)

// Result is what one sandbox command produced.
type Result struct {
	Output []string
	Events []events.Event
}

// Caster returns the entity the sandbox casts as, or nil when the catalog
// names none.
func (e *Engine) Caster() *types.Entity {
	return e.Env.Entities[e.Catalog.Caster]
}

// Step processes one sandbox command and returns the result.
func (e *Engine) Step(input string) Result {
	e.stepping = true
	e.log = nil
	defer func() { e.stepping = false }()

	var result Result

	// 1. Parse input.
	cmd := parser.Parse(input)
	if cmd.Verb == "" {
		result.Output = append(result.Output, "What do you want to do?")
		return result
	}
	if cmd.Err != "" {
		result.Output = append(result.Output, cmd.Err+".")
		return result
	}

	// 2. Dispatch on the verb.
	switch cmd.Verb {
	case "cast":
		result.Output = e.stepCast(cmd)
	case "tick":
		result.Output = e.stepTick(cmd.Count)
	case "status":
		result.Output = e.describeStatus()
	case "spells":
		result.Output = e.describeSpells()
	case "dispel":
		result.Output = e.stepDispel(cmd.Object)
	default:
		result.Output = append(result.Output, fmt.Sprintf("I don't know how to %q.", cmd.Verb))
	}

	// 3. Hand back what the observers saw.
	result.Events = e.log
	e.log = nil
	return result
}

func (e *Engine) stepCast(cmd parser.Command) []string {
	caster := e.Caster()
	if caster == nil {
		return []string{"There is no caster in this scene."}
	}
	if cmd.Object == "" {
		return []string{"Cast what?"}
	}
	spell, err := resolve.Spell(e.Catalog, cmd.Object)
	if err != nil {
		return []string{err.Error()}
	}
	ids, err := resolve.Targets(e.Env, cmd.Targets)
	if err != nil {
		return []string{err.Error()}
	}
	targets := make([]*types.Entity, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, e.Env.Entities[id])
	}

	// Point of origin: explicit point, else the first target, else the caster.
	origin := caster.Position
	switch {
	case cmd.Point != nil:
		origin = *cmd.Point
	case len(targets) > 0:
		origin = targets[0].Position
	}

	res, err := e.CastSpellWithPhysics(spell, caster, targets, cmd.Level, origin)
	if err != nil {
		return []string{fmt.Sprintf("Cannot cast %s: %v", spellName(spell), err)}
	}
	if !res.Success {
		return []string{fmt.Sprintf("%s fails: %s.", spellName(spell), strings.Join(res.Reasons, "; "))}
	}

	out := []string{fmt.Sprintf("You cast %s.", spellName(spell))}
	for _, r := range res.Results {
		out = append(out, describeResult(r)...)
	}
	for _, p := range res.Physics {
		out = append(out, fmt.Sprintf("  %s: %s active", p.ID, p.Archetype))
	}
	for _, id := range res.Cancelled {
		out = append(out, fmt.Sprintf("  %s ends", id))
	}
	for _, t := range res.Triggers {
		if msg, ok := t.Data["surge"].(string); ok {
			out = append(out, "  Wild magic: "+msg)
		}
	}
	return out
}

func (e *Engine) stepTick(n int) []string {
	var out []string
	for i := 0; i < n; i++ {
		rep := e.UpdatePhysics(e.Tick)
		for _, imp := range rep.Impacts {
			if imp.Result == nil {
				out = append(out, fmt.Sprintf("%s strikes %s", imp.EffectID, imp.Target))
				continue
			}
			out = append(out, fmt.Sprintf("%s hits %s", imp.EffectID, imp.Target))
			out = append(out, describeResult(*imp.Result)...)
		}
		for _, id := range rep.Expired {
			out = append(out, id+" expires")
		}
		for _, id := range rep.Skipped {
			out = append(out, id+" fizzles")
		}
		for _, id := range rep.Cancelled {
			out = append(out, id+" ends")
		}
	}
	return append(out, fmt.Sprintf("t = %.1fs", e.World.Time()))
}

func (e *Engine) stepDispel(id string) []string {
	if id == "" {
		return []string{"Dispel what?"}
	}
	if !e.Dispel(id) {
		return []string{fmt.Sprintf("No active effect %q.", id)}
	}
	return []string{id + " is dispelled."}
}

// describeStatus lists the scene: every entity in id order, then the
// active physics effects.
func (e *Engine) describeStatus() []string {
	out := []string{fmt.Sprintf("t = %.1fs", e.World.Time())}

	ids := make([]string, 0, len(e.Env.Entities))
	for id := range e.Env.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out = append(out, describeEntity(e.Env.Entities[id]))
	}

	active := e.Bridge.Active()
	if len(active) == 0 {
		return append(out, "No active effects.")
	}
	out = append(out, "Active effects:")
	for _, a := range active {
		out = append(out, fmt.Sprintf("  %s (%s, %s)", a.ID, a.Archetype.Kind(), a.SpellID()))
	}
	return out
}

func describeEntity(ent *types.Entity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: HP %d/%d", ent.ID, ent.HP.Current, ent.HP.Max)
	if ent.TempHP > 0 {
		fmt.Fprintf(&b, " (+%d)", ent.TempHP)
	}
	fmt.Fprintf(&b, " at %s", formatVec(ent.Position))
	if conds := ent.Conditions.Sorted(); len(conds) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(conds, ", "))
	}
	if ent.Form != "" {
		fmt.Fprintf(&b, " as %s", ent.Form)
	}
	if ent.Concentration != "" {
		fmt.Fprintf(&b, " concentrating on %s", ent.Concentration)
	}
	if len(ent.SpellSlots) > 0 {
		fmt.Fprintf(&b, " slots %s", FormatSlots(ent.SpellSlots))
	}
	return b.String()
}

// FormatSlots renders a slot table as "1:4 2:3 3:2", lowest level first.
func FormatSlots(slots map[int]int) string {
	levels := make([]int, 0, len(slots))
	for lv := range slots {
		levels = append(levels, lv)
	}
	sort.Ints(levels)
	parts := make([]string, 0, len(levels))
	for _, lv := range levels {
		parts = append(parts, fmt.Sprintf("%d:%d", lv, slots[lv]))
	}
	return strings.Join(parts, " ")
}

func (e *Engine) describeSpells() []string {
	ids := e.Catalog.SpellIDs()
	if len(ids) == 0 {
		return []string{"The spellbook is empty."}
	}
	spells := make([]*types.Spell, 0, len(ids))
	for _, id := range ids {
		spells = append(spells, e.Catalog.Spells[id])
	}
	sort.SliceStable(spells, func(i, j int) bool { return spells[i].Level < spells[j].Level })

	out := make([]string, 0, len(spells))
	for _, s := range spells {
		level := "cantrip"
		if s.Level > 0 {
			level = fmt.Sprintf("level %d", s.Level)
		}
		line := fmt.Sprintf("  %s (%s", s.ID, level)
		if s.School != "" {
			line += " " + s.School
		}
		line += ")"
		if s.Name != "" {
			line += " " + s.Name
		}
		out = append(out, line)
	}
	return out
}

func describeResult(r types.EffectResult) []string {
	var out []string
	for _, m := range r.Modifications {
		out = append(out, fmt.Sprintf("  %s %s: %s -> %s", m.EntityID, m.Property, formatValue(m.OldValue), formatValue(m.NewValue)))
	}
	for _, n := range r.Notes {
		out = append(out, "  "+n)
	}
	if len(out) == 0 && !r.Success {
		out = append(out, fmt.Sprintf("  %s has no effect", r.Kind))
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case mgl64.Vec3:
		return formatVec(x)
	}
	return fmt.Sprint(v)
}

func formatVec(v mgl64.Vec3) string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", v[0], v[1], v[2])
}

func spellName(s *types.Spell) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}
