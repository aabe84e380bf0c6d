// Package loader loads Lua spell and scene content into a catalog at load
// time. The Lua VM is discarded after loading: zero Lua at runtime.
package loader

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/spellcore/engine/catalog"
	"github.com/nathoo/spellcore/engine/rules"
	"github.com/nathoo/spellcore/types"
)

// Effect table kinds.
const (
	kindDamage         = "damage"
	kindHealing        = "healing"
	kindCondition      = "condition"
	kindMovement       = "movement"
	kindTeleport       = "teleport"
	kindGeometry       = "geometry"
	kindSummon         = "summon"
	kindTime           = "time"
	kindInformation    = "information"
	kindTransformation = "transformation"
)

// compile converts collected Lua tables into a catalog.
func compile(coll *collector) (*catalog.Catalog, error) {
	cat := catalog.New()
	if coll.scene != nil {
		cat.Title = getString(coll.scene, "title")
	}

	for _, raw := range coll.spells {
		spell, err := compileSpell(raw.id, raw.table)
		if err != nil {
			return nil, err
		}
		if err := cat.AddSpell(spell); err != nil {
			return nil, err
		}
	}

	for _, raw := range coll.creatures {
		if err := cat.AddCreature(compileCreature(raw.id, raw.table)); err != nil {
			return nil, err
		}
	}
	cat.Caster = coll.caster

	for _, raw := range coll.obstacles {
		cat.Obstacles = append(cat.Obstacles, types.Obstacle{
			ID:  raw.id,
			Min: getVec(raw.table, "min"),
			Max: getVec(raw.table, "max"),
		})
	}
	for _, raw := range coll.antimagic {
		cat.AntimagicFields = append(cat.AntimagicFields, types.Field{
			ID:     raw.id,
			Center: getVec(raw.table, "center"),
			Radius: getNumber(raw.table, "radius"),
		})
	}
	for _, tbl := range coll.surges {
		cat.Surges = append(cat.Surges, rules.Surge{
			Min:    getInt(tbl, "min"),
			Max:    getInt(tbl, "max"),
			Effect: getString(tbl, "effect"),
		})
	}
	return cat, nil
}

func compileSpell(id string, tbl *lua.LTable) (*types.Spell, error) {
	s := &types.Spell{
		ID:            id,
		Name:          getString(tbl, "name"),
		Level:         getInt(tbl, "level"),
		School:        getString(tbl, "school"),
		Classes:       stringList(getTable(tbl, "classes")),
		Components:    compileComponents(tbl),
		Range:         getNumber(tbl, "range"),
		Concentration: getBool(tbl, "concentration", false),
		Ritual:        getBool(tbl, "ritual", false),
		SaveDC:        getInt(tbl, "dc"),
	}

	if effs := getTable(tbl, "effects"); effs != nil {
		for i := 1; i <= effs.MaxN(); i++ {
			et, ok := effs.RawGetInt(i).(*lua.LTable)
			if !ok {
				return nil, types.Configf("loader", "spell %q effect %d is not a table", id, i)
			}
			eff, err := compileEffect(et)
			if err != nil {
				return nil, fmt.Errorf("spell %q effect %d: %w", id, i, err)
			}
			s.Effects = append(s.Effects, eff)
		}
	}

	if sc := getTable(tbl, "scaling"); sc != nil {
		s.Scaling = &types.Scaling{
			Dice:      getString(sc, "dice"),
			Instances: getInt(sc, "instances"),
			Targets:   getInt(sc, "targets"),
			Radius:    getNumber(sc, "radius"),
		}
	}
	return s, nil
}

// compileComponents reads components = {"V", "S", "M"} and material = "...".
func compileComponents(tbl *lua.LTable) types.Components {
	var c types.Components
	for _, v := range stringList(getTable(tbl, "components")) {
		switch v {
		case "V", "v":
			c.Verbal = true
		case "S", "s":
			c.Somatic = true
		case "M", "m":
			c.Material = getString(tbl, "material")
			if c.Material == "" {
				c.Material = "material component"
			}
		}
	}
	return c
}

func compileEffect(tbl *lua.LTable) (types.Effect, error) {
	base := compileBase(tbl)

	switch kind := getString(tbl, "kind"); kind {
	case kindDamage:
		return types.DamageEffect{
			EffectBase:  base,
			Dice:        getString(tbl, "dice"),
			Bonus:       getInt(tbl, "bonus"),
			Type:        types.DamageType(getString(tbl, "type")),
			Instances:   getInt(tbl, "instances"),
			AddModifier: getBool(tbl, "modifier", false),
		}, nil
	case kindHealing:
		return types.HealingEffect{
			EffectBase:  base,
			Dice:        getString(tbl, "dice"),
			Bonus:       getInt(tbl, "bonus"),
			AddModifier: getBool(tbl, "modifier", false),
		}, nil
	case kindCondition:
		return types.ConditionEffect{
			EffectBase: base,
			Condition:  getString(tbl, "condition"),
			Rounds:     getInt(tbl, "rounds"),
		}, nil
	case kindMovement:
		mode := types.MoveMode(getString(tbl, "mode"))
		if mode == "" {
			mode = types.MovePush
		}
		return types.MovementEffect{EffectBase: base, Mode: mode, Distance: getNumber(tbl, "distance")}, nil
	case kindTeleport:
		return types.MovementEffect{EffectBase: base, Mode: types.MoveTeleport, Distance: getNumber(tbl, "distance")}, nil
	case kindGeometry:
		return types.GeometryEffect{EffectBase: base, Feature: getString(tbl, "feature")}, nil
	case kindSummon:
		return types.SummonEffect{
			EffectBase: base,
			Creature:   getString(tbl, "creature"),
			Count:      getInt(tbl, "count"),
			HP:         getInt(tbl, "hp"),
		}, nil
	case kindTime:
		return types.TimeEffect{EffectBase: base, Rounds: getInt(tbl, "rounds")}, nil
	case kindInformation:
		return types.InformationEffect{EffectBase: base, Reveal: getString(tbl, "reveal")}, nil
	case kindTransformation:
		return types.TransformationEffect{
			EffectBase: base,
			Form:       getString(tbl, "form"),
			TempHP:     getInt(tbl, "temp_hp"),
		}, nil
	case "":
		return nil, types.Configf("loader", "effect without a kind")
	default:
		return nil, types.Configf("loader", "unknown effect kind %q", kind)
	}
}

// compileBase reads the fields every effect shares.
func compileBase(tbl *lua.LTable) types.EffectBase {
	base := types.EffectBase{MaxTargets: getInt(tbl, "targets")}

	if sv := getTable(tbl, "save"); sv != nil {
		base.Save = &types.SaveSpec{
			Ability:   types.Ability(getString(sv, "ability")),
			DC:        getInt(sv, "dc"),
			OnSuccess: types.SaveOutcome(getString(sv, "on_success")),
		}
	}

	if ar := getTable(tbl, "area"); ar != nil {
		base.Area = &types.Area{
			Shape:     types.Shape(getString(ar, "shape")),
			Radius:    getNumber(ar, "radius"),
			Size:      getNumber(ar, "size"),
			Length:    getNumber(ar, "length"),
			Angle:     getNumber(ar, "angle"),
			Width:     getNumber(ar, "width"),
			Direction: getVec(ar, "direction"),
		}
	}

	if ph := getTable(tbl, "physics"); ph != nil {
		arch := types.Archetype(getString(ph, "archetype"))
		spec := &types.PhysicsSpec{
			Archetype:  arch,
			MinSpeed:   getNumber(ph, "speed"),
			Mass:       getNumber(ph, "mass"),
			Size:       getNumber(ph, "size"),
			Strength:   getNumber(ph, "strength"),
			Radius:     getNumber(ph, "radius"),
			Magnitude:  getNumber(ph, "magnitude"),
			Continuous: getBool(ph, "continuous", false),
			Length:     getNumber(ph, "length"),
			Thickness:  getNumber(ph, "thickness"),
			Height:     getNumber(ph, "height"),
			Multiplier: getNumber(ph, "multiplier"),
			Duration:   getNumber(ph, "duration"),
		}
		// Blinks need sight of the destination unless told otherwise.
		spec.RequireLineOfSight = getBool(ph, "line_of_sight", arch == types.ArchTeleport)
		if getTable(ph, "to") != nil {
			to := getVec(ph, "to")
			spec.Destination = &to
		}
		base.Physics = spec
	}
	return base
}

func compileCreature(id string, tbl *lua.LTable) *types.Entity {
	hp := getInt(tbl, "hp")
	maxHP := getInt(tbl, "max_hp")
	if maxHP == 0 {
		maxHP = hp
	}
	e := &types.Entity{
		ID:                   id,
		Name:                 getString(tbl, "name"),
		Position:             getVec(tbl, "position"),
		HP:                   types.HitPoints{Current: hp, Max: maxHP},
		ArmorClass:           getInt(tbl, "ac"),
		Conditions:           stringSet(getTable(tbl, "conditions")),
		ConditionImmunities:  stringSet(getTable(tbl, "condition_immune")),
		Resistances:          stringSet(getTable(tbl, "resist")),
		Immunities:           stringSet(getTable(tbl, "immune")),
		Vulnerabilities:      stringSet(getTable(tbl, "vulnerable")),
		Speed:                getNumber(tbl, "speed"),
		TempHP:               getInt(tbl, "temp_hp"),
		Level:                getInt(tbl, "level"),
		SpellcastingMod:      getInt(tbl, "spellcasting"),
		ProficiencyBonus:     getInt(tbl, "proficiency"),
		LegendaryResistances: getInt(tbl, "legendary"),
		MagicResistance:      getBool(tbl, "magic_resistance", false),
		WildMagic:            getBool(tbl, "wild_magic", false),
		ReadyCounterspell:    getInt(tbl, "counterspell"),
		CounterspellMod:      getInt(tbl, "counterspell_mod"),
	}

	if saves := getTable(tbl, "saves"); saves != nil {
		e.SavingThrows = map[types.Ability]int{}
		saves.ForEach(func(k, v lua.LValue) {
			ks, ok1 := k.(lua.LString)
			n, ok2 := v.(lua.LNumber)
			if ok1 && ok2 {
				e.SavingThrows[types.Ability(ks)] = int(n)
			}
		})
	}

	// slots = { [1] = 4, [2] = 3 }; absent means untracked.
	if slots := getTable(tbl, "slots"); slots != nil {
		e.SpellSlots = map[int]int{}
		slots.ForEach(func(k, v lua.LValue) {
			kn, ok1 := k.(lua.LNumber)
			n, ok2 := v.(lua.LNumber)
			if ok1 && ok2 {
				e.SpellSlots[int(kn)] = int(n)
			}
		})
	}
	return e
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getVec reads {x, y, z}; missing components are zero.
func getVec(tbl *lua.LTable, key string) mgl64.Vec3 {
	var v mgl64.Vec3
	t := getTable(tbl, key)
	if t == nil {
		return v
	}
	for i := 0; i < 3; i++ {
		if n, ok := t.RawGetInt(i + 1).(lua.LNumber); ok {
			v[i] = float64(n)
		}
	}
	return v
}

// stringList converts an array table of strings, skipping anything else.
func stringList(tbl *lua.LTable) []string {
	if tbl == nil {
		return nil
	}
	var out []string
	for i := 1; i <= tbl.MaxN(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

func stringSet(tbl *lua.LTable) types.Set {
	return types.NewSet(stringList(tbl)...)
}
