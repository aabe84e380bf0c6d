// Package geometry implements the vector math and spatial-inclusion
// predicates used for area targeting. Everything here is pure and
// deterministic.
package geometry

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/nathoo/spellcore/types"
)

// Epsilon is the tolerance used for zero-length checks.
const Epsilon = 1e-9

func Add(a, b mgl64.Vec3) mgl64.Vec3 { return a.Add(b) }
func Subtract(a, b mgl64.Vec3) mgl64.Vec3 { return a.Sub(b) }
func Scale(v mgl64.Vec3, s float64) mgl64.Vec3 { return v.Mul(s) }
func Magnitude(v mgl64.Vec3) float64 { return v.Len() }
func Dot(a, b mgl64.Vec3) float64 { return a.Dot(b) }
func Cross(a, b mgl64.Vec3) mgl64.Vec3 { return a.Cross(b) }

// Normalize returns the unit vector of v, or the zero vector when v has no
// length. mgl64's Normalize divides by zero in that case.
func Normalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < Epsilon {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b mgl64.Vec3) float64 {
	return b.Sub(a).Len()
}

// ClosestPointOnSegment returns the point on segment [a, b] nearest to p.
func ClosestPointOnSegment(p, a, b mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	lenSq := ab.LenSqr()
	if lenSq < Epsilon {
		return a
	}
	t := p.Sub(a).Dot(ab) / lenSq
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Mul(t))
}

// PointSegmentDistance returns the distance from p to segment [a, b].
func PointSegmentDistance(p, a, b mgl64.Vec3) float64 {
	return Distance(p, ClosestPointOnSegment(p, a, b))
}

// InSphere reports whether p lies within radius of center (inclusive).
func InSphere(center mgl64.Vec3, radius float64, p mgl64.Vec3) bool {
	return Distance(center, p) <= radius
}

// InCube reports whether p lies in the axis-aligned cube of edge size
// centred on center.
func InCube(center mgl64.Vec3, size float64, p mgl64.Vec3) bool {
	half := size / 2
	d := p.Sub(center)
	return math.Abs(d[0]) <= half && math.Abs(d[1]) <= half && math.Abs(d[2]) <= half
}

// InCone reports whether p lies within a cone at apex pointing along dir.
// angle is the full cone angle in degrees; the test uses half of it.
// The apex itself is inside.
func InCone(apex, dir mgl64.Vec3, length, angle float64, p mgl64.Vec3) bool {
	toP := p.Sub(apex)
	dist := toP.Len()
	if dist > length {
		return false
	}
	if dist < Epsilon {
		return true
	}
	d := Normalize(dir)
	if d.Len() < Epsilon {
		return false
	}
	cos := d.Dot(toP.Mul(1 / dist))
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) <= mgl64.DegToRad(angle/2)+Epsilon
}

// InLine reports whether p lies within width/2 of the segment starting at
// start and running length along dir.
func InLine(start, dir mgl64.Vec3, length, width float64, p mgl64.Vec3) bool {
	d := Normalize(dir)
	if d.Len() < Epsilon {
		return false
	}
	end := start.Add(d.Mul(length))
	return PointSegmentDistance(p, start, end) <= width/2
}

// SegmentIntersectsAABB reports whether segment [a, b] passes through the
// box [lo, hi], using the slab method.
func SegmentIntersectsAABB(a, b, lo, hi mgl64.Vec3) bool {
	d := b.Sub(a)
	tMin, tMax := 0.0, 1.0
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < Epsilon {
			if a[i] < lo[i] || a[i] > hi[i] {
				return false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (lo[i] - a[i]) * inv
		t2 := (hi[i] - a[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}
	return true
}

// Contains reports whether p falls inside area anchored at origin. dir is
// the aim used when the area does not carry its own direction.
func Contains(area types.Area, origin, dir mgl64.Vec3, p mgl64.Vec3) bool {
	if area.Direction.Len() > Epsilon {
		dir = area.Direction
	}
	switch area.Shape {
	case types.ShapeSphere:
		return InSphere(origin, area.Radius, p)
	case types.ShapeCube:
		return InCube(origin, area.Size, p)
	case types.ShapeCone:
		return InCone(origin, dir, area.Length, area.Angle, p)
	case types.ShapeLine:
		return InLine(origin, dir, area.Length, area.Width, p)
	default:
		return false
	}
}

// EntitiesInArea returns the environment's entities inside area, sorted by
// id so callers iterate in a stable order.
func EntitiesInArea(env *types.Environment, area types.Area, origin, dir mgl64.Vec3) []*types.Entity {
	if env == nil {
		return nil
	}
	var out []*types.Entity
	for _, e := range env.Entities {
		if Contains(area, origin, dir, e.Position) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
