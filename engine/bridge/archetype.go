package bridge

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/nathoo/spellcore/engine/geometry"
	"github.com/nathoo/spellcore/types"
)

// Archetype defaults, in seconds of simulated time and world units.
const (
	DefaultProjectileLifetime = 5.0
	DefaultProjectileMass     = 0.1
	DefaultProjectileSize     = 0.1
	DefaultFieldDuration      = 0.1 // an explosion's push lasts 100ms
	DefaultPushDuration       = 1.0
	DefaultBarrierDuration    = 60.0
	DefaultBarrierThickness   = 1.0
	DefaultModifierDuration   = 6.0 // one round
	DefaultConstraintDuration = 6.0

	// SegmentLength is the length of one barrier segment body.
	SegmentLength = 2.0
	// SpeedPerUnit scales a projectile's speed with distance to its target.
	SpeedPerUnit = 2.0
)

// Archetype is the closed set of physics behaviours an effect can take.
type Archetype interface {
	Kind() types.Archetype
	// Lifetime is the simulated time after which the effect is evicted.
	Lifetime() float64
	isArchetype()
}

// Projectile flies from the caster toward a target and delivers its effect
// on first contact.
type Projectile struct {
	Target   string // entity id aimed at
	MinSpeed float64
	Mass     float64
	Size     float64 // half-extent of the projectile box
	Duration float64
}

// AreaField pushes every body within Radius of Center outward. Strength
// decays linearly with distance and to zero over Duration.
type AreaField struct {
	Center   mgl64.Vec3
	Radius   float64
	Strength float64
	Duration float64
}

// ForceApplication pushes targets away from the caster, or toward it when
// Magnitude is negative. An instantaneous force is a velocity delta; a
// continuous one is applied as a force every tick for Duration.
type ForceApplication struct {
	Magnitude  float64
	Continuous bool
	Duration   float64
}

// Teleportation moves the subject to Destination at once.
type Teleportation struct {
	Destination        mgl64.Vec3
	RequireLineOfSight bool
}

// Barrier is a wall of static segment bodies centred on Center and running
// along Direction.
type Barrier struct {
	Center    mgl64.Vec3
	Direction mgl64.Vec3
	Length    float64
	Thickness float64
	Height    float64
	Duration  float64
}

// MovementModifier multiplies the targets' speed for Duration.
type MovementModifier struct {
	Multiplier float64
	Duration   float64
}

// Constraint raises the targets' friction by Strength for Duration.
type Constraint struct {
	Strength float64
	Duration float64
}

func (Projectile) Kind() types.Archetype { return types.ArchProjectile }
func (AreaField) Kind() types.Archetype { return types.ArchAreaField }
func (ForceApplication) Kind() types.Archetype { return types.ArchForce }
func (Teleportation) Kind() types.Archetype { return types.ArchTeleport }
func (Barrier) Kind() types.Archetype { return types.ArchBarrier }
func (MovementModifier) Kind() types.Archetype { return types.ArchMovement }
func (Constraint) Kind() types.Archetype { return types.ArchConstraint }

func (p Projectile) Lifetime() float64 { return p.Duration }
func (f AreaField) Lifetime() float64 { return f.Duration }
func (f ForceApplication) Lifetime() float64 {
	if f.Continuous {
		return f.Duration
	}
	return 0
}
func (Teleportation) Lifetime() float64 { return 0 }
func (b Barrier) Lifetime() float64 { return b.Duration }
func (m MovementModifier) Lifetime() float64 { return m.Duration }
func (c Constraint) Lifetime() float64 { return c.Duration }

func (Projectile) isArchetype() {}
func (AreaField) isArchetype() {}
func (ForceApplication) isArchetype() {}
func (Teleportation) isArchetype() {}
func (Barrier) isArchetype() {}
func (MovementModifier) isArchetype() {}
func (Constraint) isArchetype() {}

func or(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

// FromEffect converts an effect's physics spec into its archetype, reading
// positions from ctx. Missing required parameters are a ConfigurationError.
func FromEffect(eff types.Effect, ctx *types.ExecutionContext) (Archetype, error) {
	common := eff.Common()
	spec := common.Physics
	if spec == nil {
		return nil, types.Configf("bridge", "%s effect has no physics", eff.Kind())
	}
	missing := func(param string) error {
		return types.Configf("bridge", "%s archetype requires %s", spec.Archetype, param)
	}

	switch spec.Archetype {
	case types.ArchProjectile:
		if spec.MinSpeed <= 0 {
			return nil, missing("min speed")
		}
		p := Projectile{
			MinSpeed: spec.MinSpeed,
			Mass:     or(spec.Mass, DefaultProjectileMass),
			Size:     or(spec.Size, DefaultProjectileSize),
			Duration: or(spec.Duration, DefaultProjectileLifetime),
		}
		if ctx != nil && len(ctx.Targets) > 0 {
			p.Target = ctx.Targets[0].ID
		}
		return p, nil

	case types.ArchAreaField:
		if spec.Strength <= 0 {
			return nil, missing("strength")
		}
		radius := spec.Radius
		if radius <= 0 && common.Area != nil {
			radius = common.Area.Radius
		}
		if radius <= 0 {
			return nil, missing("radius")
		}
		f := AreaField{Radius: radius, Strength: spec.Strength, Duration: or(spec.Duration, DefaultFieldDuration)}
		if ctx != nil {
			f.Center = ctx.Origin
		}
		return f, nil

	case types.ArchForce:
		if spec.Magnitude == 0 {
			return nil, missing("magnitude")
		}
		f := ForceApplication{Magnitude: spec.Magnitude, Continuous: spec.Continuous}
		if f.Continuous {
			f.Duration = or(spec.Duration, DefaultPushDuration)
		}
		return f, nil

	case types.ArchTeleport:
		t := Teleportation{RequireLineOfSight: spec.RequireLineOfSight}
		switch {
		case spec.Destination != nil:
			t.Destination = *spec.Destination
		case ctx != nil:
			t.Destination = ctx.Origin
		default:
			return nil, missing("destination")
		}
		return t, nil

	case types.ArchBarrier:
		if spec.Length <= 0 {
			return nil, missing("length")
		}
		if spec.Height <= 0 {
			return nil, missing("height")
		}
		b := Barrier{
			Length:    spec.Length,
			Thickness: or(spec.Thickness, DefaultBarrierThickness),
			Height:    spec.Height,
			Duration:  or(spec.Duration, DefaultBarrierDuration),
			Direction: mgl64.Vec3{1, 0, 0},
		}
		if common.Area != nil && geometry.Magnitude(common.Area.Direction) > geometry.Epsilon {
			b.Direction = geometry.Normalize(common.Area.Direction)
		} else if ctx != nil && ctx.Caster != nil {
			// Across the caster's line of fire.
			aim := ctx.Origin.Sub(ctx.Caster.Position)
			aim[2] = 0
			if geometry.Magnitude(aim) > geometry.Epsilon {
				b.Direction = geometry.Normalize(mgl64.Vec3{-aim[1], aim[0], 0})
			}
		}
		if ctx != nil {
			b.Center = ctx.Origin
		}
		return b, nil

	case types.ArchMovement:
		if spec.Multiplier <= 0 {
			return nil, missing("multiplier")
		}
		return MovementModifier{Multiplier: spec.Multiplier, Duration: or(spec.Duration, DefaultModifierDuration)}, nil

	case types.ArchConstraint:
		if spec.Strength <= 0 {
			return nil, missing("strength")
		}
		return Constraint{Strength: spec.Strength, Duration: or(spec.Duration, DefaultConstraintDuration)}, nil

	default:
		return nil, types.Configf("bridge", "unknown physics archetype %q", spec.Archetype)
	}
}
