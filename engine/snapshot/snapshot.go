// Package snapshot implements a deterministic JSON image of a running
// simulation: scene entities, world bodies, active physics effects and the
// dice position. Two runs with the same seed and inputs produce the same
// bytes.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/nathoo/spellcore/engine/bridge"
	"github.com/nathoo/spellcore/engine/dice"
	"github.com/nathoo/spellcore/engine/physics"
	"github.com/nathoo/spellcore/types"
)

// Version is the current snapshot format.
const Version = 1

// Entity is the mutable state of a scene entity.
type Entity struct {
	ID            string      `json:"id"`
	HP            int         `json:"hp"`
	MaxHP         int         `json:"max_hp"`
	TempHP        int         `json:"temp_hp,omitempty"`
	Position      [3]float64  `json:"position"`
	Speed         float64     `json:"speed,omitempty"`
	Form          string      `json:"form,omitempty"`
	Conditions    []string    `json:"conditions"`
	Concentration string      `json:"concentration,omitempty"`
	Slots         map[int]int `json:"slots,omitempty"`
	Legendary     int         `json:"legendary,omitempty"`
}

// Body is the kinematic state of a world body.
type Body struct {
	ID          string     `json:"id"`
	Position    [3]float64 `json:"position"`
	Velocity    [3]float64 `json:"velocity"`
	Mass        float64    `json:"mass"`
	HalfExtents [3]float64 `json:"half_extents"`
	Static      bool       `json:"static,omitempty"`
	Grounded    bool       `json:"grounded,omitempty"`
	Friction    float64    `json:"friction"`
}

// Effect is a registered physics effect.
type Effect struct {
	ID        string   `json:"id"`
	Spell     string   `json:"spell"`
	Caster    string   `json:"caster"`
	Archetype string   `json:"archetype"`
	Index     int      `json:"effect_index"`
	Start     float64  `json:"start"`
	Bodies    []string `json:"bodies,omitempty"`
}

// Snapshot is the serialisable image.
type Snapshot struct {
	Version     int      `json:"version"`
	Time        float64  `json:"time"`
	RNGSeed     int64    `json:"rng_seed"`
	RNGPosition int64    `json:"rng_position"`
	Entities    []Entity `json:"entities"`
	Bodies      []Body   `json:"bodies"`
	Effects     []Effect `json:"effects"`
}

// Take captures env, the bridge's world and registry, and rng. Entities are
// ordered by id; bodies and effects keep insertion order. rng may be nil
// when the host injects its own dice.
func Take(env *types.Environment, b *bridge.Bridge, rng *dice.RNG) *Snapshot {
	s := &Snapshot{
		Version:  Version,
		Entities: []Entity{},
		Bodies:   []Body{},
		Effects:  []Effect{},
	}
	if rng != nil {
		s.RNGSeed = rng.Seed()
		s.RNGPosition = rng.Position()
	}
	if env != nil {
		ids := make([]string, 0, len(env.Entities))
		for id := range env.Entities {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			s.Entities = append(s.Entities, entityState(env.Entities[id]))
		}
	}
	if b != nil {
		s.Time = b.World().Time()
		for _, body := range b.World().Bodies() {
			s.Bodies = append(s.Bodies, bodyState(body))
		}
		for _, a := range b.Active() {
			s.Effects = append(s.Effects, Effect{
				ID:        a.ID,
				Spell:     a.SpellID(),
				Caster:    a.CasterID(),
				Archetype: string(a.Archetype.Kind()),
				Index:     a.Index,
				Start:     a.Start,
				Bodies:    append([]string(nil), a.Bodies...),
			})
		}
	}
	return s
}

func entityState(e *types.Entity) Entity {
	es := Entity{
		ID:            e.ID,
		HP:            e.HP.Current,
		MaxHP:         e.HP.Max,
		TempHP:        e.TempHP,
		Position:      e.Position,
		Speed:         e.Speed,
		Form:          e.Form,
		Conditions:    e.Conditions.Sorted(),
		Concentration: e.Concentration,
		Legendary:     e.LegendaryResistances,
	}
	if len(e.SpellSlots) > 0 {
		es.Slots = make(map[int]int, len(e.SpellSlots))
		for k, v := range e.SpellSlots {
			es.Slots[k] = v
		}
	}
	return es
}

func bodyState(b *physics.Body) Body {
	return Body{
		ID:          b.ID,
		Position:    b.Position,
		Velocity:    b.Velocity,
		Mass:        b.Mass,
		HalfExtents: b.HalfExtents,
		Static:      b.Static,
		Grounded:    b.Grounded,
		Friction:    b.Friction,
	}
}

// Encode serialises a snapshot to indented JSON.
func Encode(s *Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Decode parses snapshot bytes.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("snapshot version %d, want %d", s.Version, Version)
	}
	// Ensure slices are never nil after decode.
	if s.Entities == nil {
		s.Entities = []Entity{}
	}
	if s.Bodies == nil {
		s.Bodies = []Body{}
	}
	if s.Effects == nil {
		s.Effects = []Effect{}
	}
	return &s, nil
}

// Restore writes the captured entity state back onto env's entities, for
// rewinding a scene. Entities missing from env are ignored. Physics effects
// are not restored: a rewound scene starts with an empty registry.
func Restore(env *types.Environment, s *Snapshot) {
	for _, es := range s.Entities {
		e, ok := env.Entities[es.ID]
		if !ok {
			continue
		}
		e.HP = types.HitPoints{Current: es.HP, Max: es.MaxHP}
		e.TempHP = es.TempHP
		e.Position = mgl64.Vec3(es.Position)
		e.Speed = es.Speed
		e.Form = es.Form
		e.Conditions = types.NewSet(es.Conditions...)
		e.Concentration = es.Concentration
		e.LegendaryResistances = es.Legendary
		// No slots in the image means the entity casts untracked.
		e.SpellSlots = nil
		if len(es.Slots) > 0 {
			e.SpellSlots = make(map[int]int, len(es.Slots))
			for k, v := range es.Slots {
				e.SpellSlots[k] = v
			}
		}
	}
}

// RNG recreates the dice source at the captured position.
func (s *Snapshot) RNG() *dice.RNG {
	return dice.RestoreRNG(s.RNGSeed, s.RNGPosition)
}
