package types

import "github.com/go-gl/mathgl/mgl64"

// Spell is an immutable spell template. Casts never mutate it; scaling
// produces a separate override table instead.
type Spell struct {
	ID            string
	Name          string
	Level         int // 0 for cantrips
	School        string
	Classes       []string
	Components    Components
	Range         float64
	Concentration bool
	Ritual        bool
	SaveDC        int // 0 means computed from the caster
	Effects       []Effect
	Scaling       *Scaling
}

// Components lists the casting components a spell requires.
type Components struct {
	Verbal   bool
	Somatic  bool
	Material string // empty when no material component
}

// Scaling describes per-level increments for upcasting or cantrip tiers.
type Scaling struct {
	Dice      string  // added once per bonus level, e.g. "1d6"
	Instances int     // extra projectiles/rays per bonus level
	Targets   int     // extra targets per bonus level
	Radius    float64 // extra area radius per bonus level
}

// EffectKind tags effect variants.
type EffectKind string

const (
	KindDamage         EffectKind = "damage"
	KindHealing        EffectKind = "healing"
	KindCondition      EffectKind = "condition"
	KindMovement       EffectKind = "movement"
	KindGeometry       EffectKind = "geometry"
	KindSummon         EffectKind = "summon"
	KindTime           EffectKind = "time"
	KindInformation    EffectKind = "information"
	KindTransformation EffectKind = "transformation"
)

// Effect is the closed set of effect variants. Only types in this package
// implement it.
type Effect interface {
	Kind() EffectKind
	Common() EffectBase
	isEffect()
}

// TargetFilter selects which targets an effect applies to.
type TargetFilter func(ctx *ExecutionContext, target *Entity) bool

// AmountFunc computes a context-dependent amount, overriding dice.
type AmountFunc func(ctx *ExecutionContext) int

// EffectBase carries the fields shared by every effect variant.
type EffectBase struct {
	Filter     TargetFilter // nil accepts every target
	MaxTargets int          // 0 for no limit
	Save       *SaveSpec
	Area       *Area
	Physics    *PhysicsSpec
}

// Common returns the shared effect fields.
func (b EffectBase) Common() EffectBase { return b }

// DamageEffect deals typed damage. Instances > 1 rolls that many independent
// hits (Magic Missile darts).
type DamageEffect struct {
	EffectBase
	Dice        string
	Bonus       int
	Type        DamageType
	Instances   int
	AddModifier bool // add the caster's spellcasting modifier
	Amount      AmountFunc
}

// HealingEffect restores hit points.
type HealingEffect struct {
	EffectBase
	Dice        string
	Bonus       int
	AddModifier bool
	Amount      AmountFunc
}

// ConditionEffect applies a named condition.
type ConditionEffect struct {
	EffectBase
	Condition string
	Rounds    int
}

// MoveMode selects how a MovementEffect relocates targets.
type MoveMode string

const (
	MovePush     MoveMode = "push"
	MovePull     MoveMode = "pull"
	MoveTeleport MoveMode = "teleport"
)

// MovementEffect relocates targets relative to the caster or cast origin.
type MovementEffect struct {
	EffectBase
	Mode     MoveMode
	Distance float64
}

// GeometryEffect shapes the battlefield (walls, zones).
type GeometryEffect struct {
	EffectBase
	Feature string
}

// SummonEffect brings creatures into the environment.
type SummonEffect struct {
	EffectBase
	Creature string
	Count    int
	HP       int
}

// TimeEffect alters the flow of turns.
type TimeEffect struct {
	EffectBase
	Rounds int
}

// InformationEffect reveals a property of each target.
type InformationEffect struct {
	EffectBase
	Reveal string // "hp", "conditions", "resistances"
}

// TransformationEffect changes a target's form.
type TransformationEffect struct {
	EffectBase
	Form   string
	TempHP int
}

func (DamageEffect) Kind() EffectKind { return KindDamage }
func (HealingEffect) Kind() EffectKind { return KindHealing }
func (ConditionEffect) Kind() EffectKind { return KindCondition }
func (MovementEffect) Kind() EffectKind { return KindMovement }
func (GeometryEffect) Kind() EffectKind { return KindGeometry }
func (SummonEffect) Kind() EffectKind { return KindSummon }
func (TimeEffect) Kind() EffectKind { return KindTime }
func (InformationEffect) Kind() EffectKind { return KindInformation }
func (TransformationEffect) Kind() EffectKind { return KindTransformation }

func (DamageEffect) isEffect() {}
func (HealingEffect) isEffect() {}
func (ConditionEffect) isEffect() {}
func (MovementEffect) isEffect() {}
func (GeometryEffect) isEffect() {}
func (SummonEffect) isEffect() {}
func (TimeEffect) isEffect() {}
func (InformationEffect) isEffect() {}
func (TransformationEffect) isEffect() {}

// SaveOutcome is the policy applied when a target succeeds its save.
type SaveOutcome string

const (
	SaveHalf   SaveOutcome = "half"
	SaveNone   SaveOutcome = "none"
	SaveNegate SaveOutcome = "negate"
)

// SaveSpec describes a saving throw. DC 0 uses the spell's save DC.
type SaveSpec struct {
	Ability   Ability
	DC        int
	OnSuccess SaveOutcome
}

// Shape is an area-of-effect shape.
type Shape string

const (
	ShapeSphere Shape = "sphere"
	ShapeCube   Shape = "cube"
	ShapeCone   Shape = "cone"
	ShapeLine   Shape = "line"
)

// Area describes an area of effect anchored at the cast origin.
type Area struct {
	Shape     Shape
	Radius    float64    // sphere
	Size      float64    // cube edge length
	Length    float64    // cone and line
	Angle     float64    // cone full angle, degrees
	Width     float64    // line
	Direction mgl64.Vec3 // cone and line; zero means toward the first target
}

// Archetype tags the physics behaviour attached to an effect.
type Archetype string

const (
	ArchProjectile Archetype = "projectile"
	ArchAreaField  Archetype = "area_field"
	ArchForce      Archetype = "force"
	ArchTeleport   Archetype = "teleport"
	ArchBarrier    Archetype = "barrier"
	ArchMovement   Archetype = "movement_modifier"
	ArchConstraint Archetype = "constraint"
)

// PhysicsSpec carries the parameters for an effect's physics archetype.
// Which fields are required depends on Archetype.
type PhysicsSpec struct {
	Archetype Archetype

	// Projectile.
	MinSpeed float64
	Mass     float64
	Size     float64

	// Area field, force, constraint.
	Strength   float64
	Radius     float64
	Magnitude  float64
	Continuous bool

	// Barrier.
	Length    float64
	Thickness float64
	Height    float64

	// Movement modifier.
	Multiplier float64

	// Teleport.
	RequireLineOfSight bool
	Destination        *mgl64.Vec3

	// Seconds of simulated time; 0 selects the archetype default.
	Duration float64
}
