package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/nathoo/spellcore/types"
)

// Body is a simulated entity: a game entity plus kinematic state and an
// axis-aligned bounding box centred on the entity position.
type Body struct {
	*types.Entity

	Velocity     mgl64.Vec3
	Acceleration mgl64.Vec3
	Mass         float64
	HalfExtents  mgl64.Vec3
	Static       bool

	// Friction damps velocity by friction*dt per step. Constraints such as
	// entangle raise it temporarily.
	Friction float64

	// Owner is a body id this body never collides with (a projectile's caster).
	Owner string

	// Grounded bodies ignore gravity. Tokens standing on the battlefield
	// are grounded; projectiles are not.
	Grounded bool

	force mgl64.Vec3
}

// NewBody wraps an entity in a dynamic body with a cubic box of half-size h.
func NewBody(e *types.Entity, mass, h float64) *Body {
	return &Body{
		Entity:      e,
		Mass:        mass,
		HalfExtents: mgl64.Vec3{h, h, h},
	}
}

// NewStatic wraps an entity in an immovable body with the given half extents.
func NewStatic(e *types.Entity, half mgl64.Vec3) *Body {
	return &Body{
		Entity:      e,
		HalfExtents: half,
		Static:      true,
	}
}

// ApplyForce adds f to the body's pending force accumulator. Static bodies
// ignore forces.
func (b *Body) ApplyForce(f mgl64.Vec3) {
	if b.Static {
		return
	}
	b.force = b.force.Add(f)
}

// PendingForce returns the accumulated force for the next step.
func (b *Body) PendingForce() mgl64.Vec3 {
	return b.force
}

// Min returns the lower corner of the body's box.
func (b *Body) Min() mgl64.Vec3 {
	return b.Position.Sub(b.HalfExtents)
}

// Max returns the upper corner of the body's box.
func (b *Body) Max() mgl64.Vec3 {
	return b.Position.Add(b.HalfExtents)
}

// InvMass returns 1/mass, or 0 for static or massless bodies.
func (b *Body) InvMass() float64 {
	if b.Static || b.Mass <= 0 {
		return 0
	}
	return 1 / b.Mass
}
