package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// Effect constructors and the kind each one tags its table with.
var effectKinds = map[string]string{
	"Damage":    kindDamage,
	"Heal":      kindHealing,
	"Condition": kindCondition,
	"Move":      kindMovement,
	"Teleport":  kindTeleport,
	"Wall":      kindGeometry,
	"Summon":    kindSummon,
	"Time":      kindTime,
	"Reveal":    kindInformation,
	"Transform": kindTransformation,
}

// Physics constructors and the archetype each one tags its table with.
var physicsArchetypes = map[string]string{
	"Projectile": "projectile",
	"Explosion":  "area_field",
	"Push":       "force",
	"Blink":      "teleport",
	"Barrier":    "barrier",
	"Slow":       "movement_modifier",
	"Entangle":   "constraint",
}

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerEffectHelpers(L)
	registerShapeHelpers(L)
}

// curried returns a Lua function for the `Name "id" { ... }` form: it takes
// the id and returns a function that takes the definition table.
func curried(L *lua.LState, add func(id string, tbl *lua.LTable)) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			add(id, L.CheckTable(1))
			return 0
		}))
		return 1
	})
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Scene { title = "..." }
	L.SetGlobal("Scene", L.NewFunction(func(L *lua.LState) int {
		coll.scene = L.CheckTable(1)
		return 0
	}))

	// Spell "id" { ... }
	L.SetGlobal("Spell", curried(L, func(id string, tbl *lua.LTable) {
		coll.spells = append(coll.spells, rawDef{id: id, table: tbl})
	}))

	// Creature "id" { ... }
	L.SetGlobal("Creature", curried(L, func(id string, tbl *lua.LTable) {
		coll.creatures = append(coll.creatures, rawDef{id: id, table: tbl})
	}))

	// Caster "id" { ... } is a creature the sandbox casts as.
	L.SetGlobal("Caster", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		if coll.caster != "" && coll.caster != id {
			L.RaiseError("caster already defined as %q", coll.caster)
		}
		coll.caster = id
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.creatures = append(coll.creatures, rawDef{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// Obstacle "id" { min = {x, y, z}, max = {x, y, z} }
	L.SetGlobal("Obstacle", curried(L, func(id string, tbl *lua.LTable) {
		coll.obstacles = append(coll.obstacles, rawDef{id: id, table: tbl})
	}))

	// Antimagic "id" { center = {x, y, z}, radius = r }
	L.SetGlobal("Antimagic", curried(L, func(id string, tbl *lua.LTable) {
		coll.antimagic = append(coll.antimagic, rawDef{id: id, table: tbl})
	}))

	// Surge { min = 1, max = 2, effect = "..." }
	L.SetGlobal("Surge", L.NewFunction(func(L *lua.LState) int {
		coll.surges = append(coll.surges, L.CheckTable(1))
		return 0
	}))
}

// tagger returns a constructor that stamps field=value on its table and
// passes it through.
func tagger(L *lua.LState, field, value string) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		tbl.RawSetString(field, lua.LString(value))
		L.Push(tbl)
		return 1
	})
}

func registerEffectHelpers(L *lua.LState) {
	for name, kind := range effectKinds {
		L.SetGlobal(name, tagger(L, "kind", kind))
	}
	for name, arch := range physicsArchetypes {
		L.SetGlobal(name, tagger(L, "archetype", arch))
	}

	// Save("dex", "half"[, dc])
	L.SetGlobal("Save", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("ability", lua.LString(L.CheckString(1)))
		tbl.RawSetString("on_success", lua.LString(L.OptString(2, "none")))
		tbl.RawSetString("dc", L.OptNumber(3, 0))
		L.Push(tbl)
		return 1
	}))
}

func registerShapeHelpers(L *lua.LState) {
	// Sphere(radius)
	L.SetGlobal("Sphere", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("shape", lua.LString("sphere"))
		tbl.RawSetString("radius", L.CheckNumber(1))
		L.Push(tbl)
		return 1
	}))

	// Cube(size)
	L.SetGlobal("Cube", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("shape", lua.LString("cube"))
		tbl.RawSetString("size", L.CheckNumber(1))
		L.Push(tbl)
		return 1
	}))

	// Cone(length, angle[, direction])
	L.SetGlobal("Cone", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("shape", lua.LString("cone"))
		tbl.RawSetString("length", L.CheckNumber(1))
		tbl.RawSetString("angle", L.CheckNumber(2))
		if dir, ok := L.Get(3).(*lua.LTable); ok {
			tbl.RawSetString("direction", dir)
		}
		L.Push(tbl)
		return 1
	}))

	// Line(length, width[, direction])
	L.SetGlobal("Line", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("shape", lua.LString("line"))
		tbl.RawSetString("length", L.CheckNumber(1))
		tbl.RawSetString("width", L.CheckNumber(2))
		if dir, ok := L.Get(3).(*lua.LTable); ok {
			tbl.RawSetString("direction", dir)
		}
		L.Push(tbl)
		return 1
	}))
}
