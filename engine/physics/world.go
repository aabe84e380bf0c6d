// Package physics implements the deterministic simulation world that spell
// effects push, spawn into and collide in. It advances only when the host
// calls Update.
package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// DefaultRestitution is the bounce coefficient used when Config leaves it unset.
const DefaultRestitution = 0.8

// Config configures a World.
type Config struct {
	Gravity       mgl64.Vec3
	AirResistance float64
	// TimeStep > 0 runs fixed sub-steps; 0 integrates each Update's dt directly.
	TimeStep float64
	// Restitution is the bounce coefficient; nil selects DefaultRestitution
	// and 0 is perfectly inelastic.
	Restitution *float64
}

// DefaultConfig returns earth-like gravity along -Z, light drag and a
// variable time step.
func DefaultConfig() Config {
	return Config{
		Gravity:       mgl64.Vec3{0, 0, -9.81},
		AirResistance: 0.01,
		Restitution:   Restitution(DefaultRestitution),
	}
}

// Restitution returns a pointer to v for Config.Restitution.
func Restitution(v float64) *float64 { return &v }

// FieldFunc contributes a force to a body each step. now is world time.
type FieldFunc func(b *Body, now float64) mgl64.Vec3

// Collision describes one contact found during a step. Normal points from
// A to B.
type Collision struct {
	A, B        *Body
	Normal      mgl64.Vec3
	Penetration float64
}

// World owns the simulated bodies. Iteration always follows insertion order.
type World struct {
	cfg    Config
	logger *zap.Logger

	bodies map[string]*Body
	order  []string

	fields     map[string]FieldFunc
	fieldOrder []string

	restitution float64
	time        float64
	acc         float64
}

// NewWorld creates an empty world. A nil logger disables logging.
func NewWorld(cfg Config, logger *zap.Logger) *World {
	restitution := DefaultRestitution
	if cfg.Restitution != nil {
		restitution = *cfg.Restitution
	}
	cfg.Restitution = Restitution(restitution)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &World{
		cfg:         cfg,
		logger:      logger,
		bodies:      map[string]*Body{},
		fields:      map[string]FieldFunc{},
		restitution: restitution,
	}
}

// Config returns the world configuration.
func (w *World) Config() Config { return w.cfg }

// Time returns the simulated seconds elapsed.
func (w *World) Time() float64 { return w.time }

// AddBody registers a body. Dynamic bodies without mass get unit mass.
func (w *World) AddBody(b *Body) error {
	if b == nil || b.Entity == nil {
		return fmt.Errorf("adding body: missing entity")
	}
	if _, ok := w.bodies[b.ID]; ok {
		return fmt.Errorf("adding body %s: already present", b.ID)
	}
	if !b.Static && b.Mass <= 0 {
		b.Mass = 1
	}
	w.bodies[b.ID] = b
	w.order = append(w.order, b.ID)
	return nil
}

// RemoveBody deregisters a body. It reports whether the body was present.
func (w *World) RemoveBody(id string) bool {
	if _, ok := w.bodies[id]; !ok {
		return false
	}
	delete(w.bodies, id)
	for i, v := range w.order {
		if v == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return true
}

// Body returns a body by id.
func (w *World) Body(id string) (*Body, bool) {
	b, ok := w.bodies[id]
	return b, ok
}

// Bodies returns the live bodies in insertion order.
func (w *World) Bodies() []*Body {
	out := make([]*Body, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.bodies[id])
	}
	return out
}

// Len returns the number of live bodies.
func (w *World) Len() int { return len(w.order) }

// AddField registers a force field under id, replacing any existing one.
func (w *World) AddField(id string, fn FieldFunc) {
	if _, ok := w.fields[id]; !ok {
		w.fieldOrder = append(w.fieldOrder, id)
	}
	w.fields[id] = fn
}

// RemoveField deregisters a force field.
func (w *World) RemoveField(id string) {
	if _, ok := w.fields[id]; !ok {
		return
	}
	delete(w.fields, id)
	for i, v := range w.fieldOrder {
		if v == id {
			w.fieldOrder = append(w.fieldOrder[:i], w.fieldOrder[i+1:]...)
			break
		}
	}
}

// Update advances the world by dt seconds and returns every collision
// resolved along the way. With a fixed TimeStep the remainder carries over
// to the next call.
func (w *World) Update(dt float64) []Collision {
	if dt <= 0 {
		return nil
	}
	if w.cfg.TimeStep <= 0 {
		return w.Step(dt)
	}

	var all []Collision
	w.acc += dt
	for w.acc >= w.cfg.TimeStep-1e-12 {
		all = append(all, w.Step(w.cfg.TimeStep)...)
		w.acc -= w.cfg.TimeStep
	}
	if w.acc < 0 {
		w.acc = 0
	}
	return all
}

// Step integrates one step of dt and resolves collisions.
func (w *World) Step(dt float64) []Collision {
	w.integrate(dt)
	w.time += dt
	collisions := w.detect()
	for i := range collisions {
		w.resolve(&collisions[i])
	}
	if len(collisions) > 0 {
		w.logger.Debug("physics step collisions",
			zap.Float64("time", w.time),
			zap.Int("count", len(collisions)),
		)
	}
	return collisions
}

func (w *World) integrate(dt float64) {
	drag := w.cfg.AirResistance
	for _, id := range w.order {
		b := w.bodies[id]
		if b.Static {
			b.force = mgl64.Vec3{}
			continue
		}

		f := b.force
		if !b.Grounded {
			f = f.Add(w.cfg.Gravity.Mul(b.Mass))
		}
		for _, fid := range w.fieldOrder {
			f = f.Add(w.fields[fid](b, w.time))
		}

		b.Acceleration = f.Mul(1 / b.Mass)
		b.Velocity = b.Velocity.Add(b.Acceleration.Mul(dt))
		b.Velocity = b.Velocity.Add(b.Velocity.Mul(-drag))
		if b.Friction > 0 {
			b.Velocity = b.Velocity.Mul(math.Max(0, 1-b.Friction*dt))
		}
		b.Position = b.Position.Add(b.Velocity.Mul(dt))
		b.force = mgl64.Vec3{}
	}
}

// detect runs the O(n^2) pairwise AABB test.
func (w *World) detect() []Collision {
	var out []Collision
	for i := 0; i < len(w.order); i++ {
		a := w.bodies[w.order[i]]
		for j := i + 1; j < len(w.order); j++ {
			b := w.bodies[w.order[j]]
			if a.Static && b.Static {
				continue
			}
			if a.Owner == b.ID || b.Owner == a.ID {
				continue
			}
			if c, ok := overlap(a, b); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// overlap returns the contact for two overlapping boxes, using the axis of
// least penetration as the normal.
func overlap(a, b *Body) (Collision, bool) {
	d := b.Position.Sub(a.Position)
	best := math.Inf(1)
	axis := 0
	for i := 0; i < 3; i++ {
		o := a.HalfExtents[i] + b.HalfExtents[i] - math.Abs(d[i])
		if o <= 0 {
			return Collision{}, false
		}
		if o < best {
			best = o
			axis = i
		}
	}
	var n mgl64.Vec3
	n[axis] = 1
	if d[axis] < 0 {
		n[axis] = -1
	}
	return Collision{A: a, B: b, Normal: n, Penetration: best}, true
}

func (w *World) resolve(c *Collision) {
	a, b := c.A, c.B
	half := c.Normal.Mul(c.Penetration / 2)
	if !a.Static {
		a.Position = a.Position.Sub(half)
	}
	if !b.Static {
		b.Position = b.Position.Add(half)
	}

	if a.Static || b.Static {
		return
	}
	rv := b.Velocity.Sub(a.Velocity)
	along := rv.Dot(c.Normal)
	if along > 0 {
		return
	}
	j := -(1 + w.restitution) * along / (a.InvMass() + b.InvMass())
	a.Velocity = a.Velocity.Sub(c.Normal.Mul(j * a.InvMass()))
	b.Velocity = b.Velocity.Add(c.Normal.Mul(j * b.InvMass()))
}
