// Package bridge turns resolved spell effects into physics archetypes and
// drives their lifecycle in the simulation world. Every effect with backing
// bodies is removed from the registry and the world together.
package bridge

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nathoo/spellcore/engine/geometry"
	"github.com/nathoo/spellcore/engine/physics"
	"github.com/nathoo/spellcore/types"
)

// ErrLineOfSight is returned when a teleport destination is not visible.
var ErrLineOfSight = errors.New("line of sight blocked")

// ErrStaticSubject is returned when a teleport would move a static body.
var ErrStaticSubject = errors.New("subject is fixed in place")

// Token body defaults for entities pulled into the simulation.
const (
	TokenMass     = 1.0
	TokenHalfSize = 0.5
	TokenFriction = 1.0
)

var bodyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("spellcore/bridge"))

// Active is a registered physics effect.
type Active struct {
	ID        string
	Archetype Archetype
	Ctx       *types.ExecutionContext
	Index     int     // effect index within the spell
	Start     float64 // world time at registration
	Bodies    []string

	targets []string
}

// CasterID returns the id of the entity that cast the effect.
func (a *Active) CasterID() string {
	if a.Ctx == nil || a.Ctx.Caster == nil {
		return ""
	}
	return a.Ctx.Caster.ID
}

// SpellID returns the id of the spell the effect came from.
func (a *Active) SpellID() string {
	if a.Ctx == nil || a.Ctx.Spell == nil {
		return ""
	}
	return a.Ctx.Spell.ID
}

// Targets returns the ids of the entities the effect acts on.
func (a *Active) Targets() []string {
	return append([]string(nil), a.targets...)
}

// Hit is a projectile's single contact.
type Hit struct {
	Active *Active
	Body   *physics.Body // what the projectile struck
}

// Report is what one Update did.
type Report struct {
	Collisions []physics.Collision
	Hits       []Hit
	Expired    []string
	Skipped    []string // effects whose backing bodies were missing
}

// Bridge owns the active-effect registry.
type Bridge struct {
	world  *physics.World
	logger *zap.Logger

	active []*Active
	seq    int

	// values from before the first modifier or constraint on a target
	baseSpeed    map[string]float64
	baseFriction map[string]float64
}

// New creates a bridge over world.
func New(world *physics.World, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		world:        world,
		logger:       logger,
		baseSpeed:    map[string]float64{},
		baseFriction: map[string]float64{},
	}
}

// World returns the simulation world.
func (b *Bridge) World() *physics.World { return b.world }

// Active returns the registered effects in registration order.
func (b *Bridge) Active() []*Active {
	out := make([]*Active, len(b.active))
	copy(out, b.active)
	return out
}

// Len returns the number of registered effects.
func (b *Bridge) Len() int { return len(b.active) }

// Lookup returns a registered effect by id.
func (b *Bridge) Lookup(id string) (*Active, bool) {
	for _, a := range b.active {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Token returns the body for an entity, adding a grounded token body to the
// world when it has none.
func (b *Bridge) Token(e *types.Entity) *physics.Body {
	if body, ok := b.world.Body(e.ID); ok {
		return body
	}
	body := physics.NewBody(e, TokenMass, TokenHalfSize)
	body.Grounded = true
	body.Friction = TokenFriction
	_ = b.world.AddBody(body)
	return body
}

// Register starts arch for effect index of ctx's spell and records it. On
// error nothing is left in the world or the registry.
func (b *Bridge) Register(arch Archetype, ctx *types.ExecutionContext, index int) (*Active, error) {
	b.seq++
	spell := "effect"
	if ctx != nil && ctx.Spell != nil {
		spell = ctx.Spell.ID
	}
	a := &Active{
		ID:        fmt.Sprintf("%s-%d", spell, b.seq),
		Archetype: arch,
		Ctx:       ctx,
		Index:     index,
		Start:     b.world.Time(),
	}
	if err := b.start(a); err != nil {
		b.removeBodies(a)
		return nil, err
	}
	b.active = append(b.active, a)
	b.logger.Debug("physics effect registered",
		zap.String("id", a.ID),
		zap.String("archetype", string(arch.Kind())),
		zap.Int("bodies", len(a.Bodies)),
	)
	return a, nil
}

func (b *Bridge) bodyID(a *Active, n int) string {
	return uuid.NewSHA1(bodyNamespace, []byte(fmt.Sprintf("%s/%d", a.ID, n))).String()
}

func (b *Bridge) start(a *Active) error {
	ctx := a.Ctx
	switch arch := a.Archetype.(type) {
	case Projectile:
		return b.startProjectile(a, arch)

	case AreaField:
		if ctx != nil && ctx.Env != nil {
			area := types.Area{Shape: types.ShapeSphere, Radius: arch.Radius}
			for _, e := range geometry.EntitiesInArea(ctx.Env, area, arch.Center, mgl64.Vec3{}) {
				b.Token(e)
			}
		}
		b.world.AddField(a.ID, fieldFunc(arch, a.Start))
		return nil

	case ForceApplication:
		if ctx == nil || ctx.Caster == nil {
			return types.Configf("bridge", "force needs a caster")
		}
		for _, t := range ctx.Targets {
			a.targets = append(a.targets, t.ID)
			if !arch.Continuous {
				body := b.Token(t)
				if body.Static {
					continue
				}
				body.Velocity = body.Velocity.Add(pushDir(ctx.Caster, t).Mul(arch.Magnitude))
			}
		}
		return nil

	case Teleportation:
		return b.teleport(a, arch)

	case Barrier:
		return b.startBarrier(a, arch)

	case MovementModifier:
		if ctx == nil {
			return nil
		}
		for _, t := range ctx.Targets {
			if _, ok := b.baseSpeed[t.ID]; !ok {
				b.baseSpeed[t.ID] = t.Speed
			}
			a.targets = append(a.targets, t.ID)
			t.Speed *= arch.Multiplier
		}
		return nil

	case Constraint:
		if ctx == nil {
			return nil
		}
		for _, t := range ctx.Targets {
			body := b.Token(t)
			if _, ok := b.baseFriction[t.ID]; !ok {
				b.baseFriction[t.ID] = body.Friction
			}
			a.targets = append(a.targets, t.ID)
			body.Friction += arch.Strength
		}
		return nil

	default:
		return types.Configf("bridge", "unknown archetype %T", arch)
	}
}

// pushDir is the unit vector from caster to target, or +X when they share
// a position.
func pushDir(caster, target *types.Entity) mgl64.Vec3 {
	d := geometry.Normalize(target.Position.Sub(caster.Position))
	if d == (mgl64.Vec3{}) {
		return mgl64.Vec3{1, 0, 0}
	}
	return d
}

// startProjectile spawns the projectile body at the caster and aims it so a
// drag-free ballistic arc lands on the target.
func (b *Bridge) startProjectile(a *Active, p Projectile) error {
	ctx := a.Ctx
	if ctx == nil || ctx.Caster == nil {
		return types.Configf("bridge", "projectile needs a caster")
	}
	b.Token(ctx.Caster)
	aim := ctx.Origin
	if ctx.Env != nil {
		if t, ok := ctx.Env.Entities[p.Target]; ok {
			b.Token(t)
			aim = t.Position
		}
	}
	from := ctx.Caster.Position
	d := aim.Sub(from)
	dist := geometry.Magnitude(d)
	speed := math.Max(p.MinSpeed, dist*SpeedPerUnit)

	var v mgl64.Vec3
	if dist > geometry.Epsilon {
		flight := dist / speed
		v = d.Mul(1 / flight).Sub(b.world.Config().Gravity.Mul(flight / 2))
	}

	id := b.bodyID(a, 0)
	body := physics.NewBody(&types.Entity{ID: id, Name: a.SpellID() + " projectile", Position: from}, p.Mass, p.Size)
	body.Velocity = v
	body.Owner = ctx.Caster.ID
	if err := b.world.AddBody(body); err != nil {
		return err
	}
	a.Bodies = append(a.Bodies, id)
	return nil
}

// fieldFunc returns the explosion force: strength decays linearly with
// distance from the centre and with time since start.
func fieldFunc(f AreaField, start float64) physics.FieldFunc {
	return func(body *physics.Body, now float64) mgl64.Vec3 {
		if body.Static {
			return mgl64.Vec3{}
		}
		elapsed := now - start
		if elapsed < 0 || elapsed >= f.Duration {
			return mgl64.Vec3{}
		}
		d := body.Position.Sub(f.Center)
		dist := geometry.Magnitude(d)
		if dist > f.Radius || dist < geometry.Epsilon {
			return mgl64.Vec3{}
		}
		s := f.Strength * (1 - dist/f.Radius) * (1 - elapsed/f.Duration)
		return d.Mul(s / dist)
	}
}

// teleport moves the first target, or the caster when there is none.
func (b *Bridge) teleport(a *Active, t Teleportation) error {
	ctx := a.Ctx
	if ctx == nil || ctx.Caster == nil {
		return types.Configf("bridge", "teleport needs a caster")
	}
	subject := ctx.Caster
	if len(ctx.Targets) > 0 {
		subject = ctx.Targets[0]
	}
	if body, ok := b.world.Body(subject.ID); ok && body.Static {
		return fmt.Errorf("teleport %s: %w", subject.ID, ErrStaticSubject)
	}
	if t.RequireLineOfSight && b.blocked(ctx, subject.Position, t.Destination) {
		return fmt.Errorf("teleport %s to %v: %w", subject.ID, t.Destination, ErrLineOfSight)
	}
	subject.Position = t.Destination
	if body, ok := b.world.Body(subject.ID); ok {
		body.Velocity = mgl64.Vec3{}
	}
	a.targets = append(a.targets, subject.ID)
	return nil
}

// blocked reports whether an obstacle or static body crosses the segment
// from-to.
func (b *Bridge) blocked(ctx *types.ExecutionContext, from, to mgl64.Vec3) bool {
	if ctx.Env != nil {
		for _, o := range ctx.Env.Obstacles {
			if geometry.SegmentIntersectsAABB(from, to, o.Min, o.Max) {
				return true
			}
		}
	}
	for _, body := range b.world.Bodies() {
		if body.Static && geometry.SegmentIntersectsAABB(from, to, body.Min(), body.Max()) {
			return true
		}
	}
	return false
}

// startBarrier lays ceil(Length/SegmentLength) static segments along the
// barrier direction, centred on the barrier centre and standing on it.
func (b *Bridge) startBarrier(a *Active, w Barrier) error {
	n := int(math.Ceil(w.Length/SegmentLength - 1e-9))
	seg := w.Length / float64(n)
	dir := geometry.Normalize(w.Direction)
	half := mgl64.Vec3{
		math.Max(math.Abs(dir[0])*seg/2, w.Thickness/2),
		math.Max(math.Abs(dir[1])*seg/2, w.Thickness/2),
		w.Height / 2,
	}
	for i := 0; i < n; i++ {
		offset := (float64(i)+0.5)*seg - w.Length/2
		pos := w.Center.Add(dir.Mul(offset)).Add(mgl64.Vec3{0, 0, w.Height / 2})
		id := b.bodyID(a, i)
		e := &types.Entity{ID: id, Name: fmt.Sprintf("%s segment %d", a.SpellID(), i), Position: pos}
		if err := b.world.AddBody(physics.NewStatic(e, half)); err != nil {
			return err
		}
		a.Bodies = append(a.Bodies, id)
	}
	return nil
}

// Update advances the world by dt and the registry with it: continuous
// forces are applied, the world is stepped, projectile contacts are routed
// and expired effects are evicted.
func (b *Bridge) Update(dt float64) Report {
	var r Report
	skipped := map[string]bool{}

	for _, a := range b.active {
		if !b.intact(a) {
			b.logger.Warn("physics effect missing backing body, skipping tick",
				zap.String("id", a.ID),
				zap.String("archetype", string(a.Archetype.Kind())),
			)
			skipped[a.ID] = true
			r.Skipped = append(r.Skipped, a.ID)
			continue
		}
		if f, ok := a.Archetype.(ForceApplication); ok && f.Continuous {
			for _, id := range a.targets {
				if t := entity(a.Ctx, id); t != nil {
					b.Token(t).ApplyForce(pushDir(a.Ctx.Caster, t).Mul(f.Magnitude))
				}
			}
		}
	}

	r.Collisions = b.world.Update(dt)
	for _, c := range r.Collisions {
		for _, pair := range [2][2]*physics.Body{{c.A, c.B}, {c.B, c.A}} {
			a := b.projectileFor(pair[0].ID)
			if a == nil || skipped[a.ID] {
				continue
			}
			r.Hits = append(r.Hits, Hit{Active: a, Body: pair[1]})
			b.remove(a)
		}
	}

	now := b.world.Time()
	for _, a := range b.Active() {
		if now-a.Start >= a.Archetype.Lifetime()-1e-12 {
			b.remove(a)
			r.Expired = append(r.Expired, a.ID)
		}
	}
	return r
}

func entity(ctx *types.ExecutionContext, id string) *types.Entity {
	if ctx == nil {
		return nil
	}
	for _, t := range ctx.Targets {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// intact reports whether every backing body is still in the world.
func (b *Bridge) intact(a *Active) bool {
	for _, id := range a.Bodies {
		if _, ok := b.world.Body(id); !ok {
			return false
		}
	}
	return true
}

func (b *Bridge) projectileFor(bodyID string) *Active {
	for _, a := range b.active {
		if _, ok := a.Archetype.(Projectile); !ok {
			continue
		}
		for _, id := range a.Bodies {
			if id == bodyID {
				return a
			}
		}
	}
	return nil
}

// Cancel removes an effect and its bodies at once, restoring anything it
// changed. It reports whether the effect was registered.
func (b *Bridge) Cancel(id string) bool {
	a, ok := b.Lookup(id)
	if !ok {
		return false
	}
	b.remove(a)
	return true
}

// CancelSource cancels every effect cast by casterID from spellID, as when
// concentration is lost. It returns the cancelled ids.
func (b *Bridge) CancelSource(casterID, spellID string) []string {
	var ids []string
	for _, a := range b.Active() {
		if a.CasterID() == casterID && a.SpellID() == spellID {
			b.remove(a)
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// remove drops a's registry entry and bodies together, then reverts what it
// changed.
func (b *Bridge) remove(a *Active) {
	for i, x := range b.active {
		if x == a {
			b.active = append(b.active[:i], b.active[i+1:]...)
			break
		}
	}
	b.removeBodies(a)
	b.stop(a)
	b.logger.Debug("physics effect removed", zap.String("id", a.ID))
}

func (b *Bridge) removeBodies(a *Active) {
	for _, id := range a.Bodies {
		b.world.RemoveBody(id)
	}
}

// stop reverts per-target changes. a must already be out of the registry:
// speed and friction are recomputed from the base value and the effects
// still acting on the target.
func (b *Bridge) stop(a *Active) {
	switch arch := a.Archetype.(type) {
	case AreaField:
		b.world.RemoveField(a.ID)
	case MovementModifier:
		for _, id := range a.targets {
			if t := entity(a.Ctx, id); t != nil {
				b.restoreSpeed(t)
			}
		}
	case Constraint:
		for _, id := range a.targets {
			if body, ok := b.world.Body(id); ok {
				b.restoreFriction(body)
			}
		}
	case Projectile, ForceApplication, Teleportation, Barrier:
	default:
		b.logger.Warn("stopping unknown archetype", zap.String("type", fmt.Sprintf("%T", arch)))
	}
}

func (b *Bridge) restoreSpeed(t *types.Entity) {
	base, ok := b.baseSpeed[t.ID]
	if !ok {
		return
	}
	speed, held := base, false
	for _, a := range b.active {
		if m, ok := a.Archetype.(MovementModifier); ok && a.acts(t.ID) {
			speed *= m.Multiplier
			held = true
		}
	}
	t.Speed = speed
	if !held {
		delete(b.baseSpeed, t.ID)
	}
}

func (b *Bridge) restoreFriction(body *physics.Body) {
	base, ok := b.baseFriction[body.ID]
	if !ok {
		return
	}
	friction, held := base, false
	for _, a := range b.active {
		if c, ok := a.Archetype.(Constraint); ok && a.acts(body.ID) {
			friction += c.Strength
			held = true
		}
	}
	body.Friction = friction
	if !held {
		delete(b.baseFriction, body.ID)
	}
}

func (a *Active) acts(id string) bool {
	for _, t := range a.targets {
		if t == id {
			return true
		}
	}
	return false
}
