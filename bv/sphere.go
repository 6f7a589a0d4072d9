package bv

import (
	"fmt"
	"math"

	"broadphase/algebra"
)

// Sphere is a bounding sphere (center, radius) with radius >= 0.
type Sphere[N algebra.Float] struct {
	Center algebra.Point[N]
	Radius N
}

// NewSphere builds a Sphere, panicking if radius is negative.
func NewSphere[N algebra.Float](center algebra.Point[N], radius N) Sphere[N] {
	if radius < 0 {
		panic(fmt.Sprintf("bv: sphere radius must be >= 0, got %v", radius))
	}
	return Sphere[N]{Center: center, Radius: radius}
}

func (s Sphere[N]) requireSameDim(o Sphere[N]) {
	if len(s.Center) != len(o.Center) {
		panic(fmt.Sprintf("bv: sphere dimension mismatch (%d vs %d)", len(s.Center), len(o.Center)))
	}
}

// Intersects reports whether s and o overlap, via squared distance vs the
// sum of radii (avoids a square root on the hot path).
func (s Sphere[N]) Intersects(o Sphere[N]) bool {
	s.requireSameDim(o)
	distSq := s.Center.DistSq(o.Center)
	radiusSum := s.Radius + o.Radius
	return distSq <= radiusSum*radiusSum
}

// Contains reports whether o lies entirely within s.
func (s Sphere[N]) Contains(o Sphere[N]) bool {
	s.requireSameDim(o)
	dist := sqrtN(s.Center.DistSq(o.Center))
	return dist+o.Radius <= s.Radius
}

// Merged returns the Ritter-style smallest enclosing sphere of s and o along
// their center-to-center axis. Not guaranteed minimal in general, but stable
// and monotone: the degenerate coincident-centers case takes the larger
// radius.
func (s Sphere[N]) Merged(o Sphere[N]) Sphere[N] {
	s.requireSameDim(o)

	d := o.Center.Sub(s.Center)
	dist := sqrtN(d.Dot(d))

	if dist+o.Radius <= s.Radius {
		return s
	}
	if dist+s.Radius <= o.Radius {
		return o
	}
	if dist == 0 {
		// Coincident centers: the smaller sphere contributes nothing.
		r := s.Radius
		if o.Radius > r {
			r = o.Radius
		}
		return Sphere[N]{Center: s.Center.Clone(), Radius: r}
	}

	newRadius := (dist + s.Radius + o.Radius) / 2
	// Move from s's center toward o's center by (newRadius - s.Radius) along
	// the unit axis between the two centers.
	t := (newRadius - s.Radius) / dist
	newCenter := s.Center.Translate(d.Scale(t))

	return Sphere[N]{Center: newCenter, Radius: newRadius}
}

// Merge mutates s in place to Merged(o).
func (s *Sphere[N]) Merge(o Sphere[N]) {
	*s = s.Merged(o)
}

// Loosened returns s with its radius inflated by k (k >= 0).
func (s Sphere[N]) Loosened(k N) Sphere[N] {
	if k < 0 {
		panic(fmt.Sprintf("bv: loosen amount must be >= 0, got %v", k))
	}
	return Sphere[N]{Center: s.Center.Clone(), Radius: s.Radius + k}
}

// Loosen mutates s in place to Loosened(k).
func (s *Sphere[N]) Loosen(k N) {
	*s = s.Loosened(k)
}

// Translated returns s moved by delta.
func (s Sphere[N]) Translated(delta algebra.Vector[N]) Sphere[N] {
	return Sphere[N]{Center: s.Center.Translate(delta), Radius: s.Radius}
}

// Cost is the radius, a cheap dimension-agnostic proxy for size used only to
// drive the DBVT's insertion heuristic.
func (s Sphere[N]) Cost() N {
	return s.Radius
}

// IntersectsRay implements bv.RayCaster via the standard quadratic solve.
func (s Sphere[N]) IntersectsRay(r Ray[N], maxDist N) bool {
	if len(r.Origin) != len(s.Center) {
		panic(fmt.Sprintf("bv: ray dimension mismatch with sphere (dim %d)", len(s.Center)))
	}
	oc := r.Origin.Sub(s.Center)
	a := r.Dir.Dot(r.Dir)
	if a == 0 {
		return false
	}
	b := 2 * oc.Dot(r.Dir)
	c := oc.Dot(oc) - s.Radius*s.Radius

	disc := b*b - 4*a*c
	if disc < 0 {
		return false
	}
	sq := sqrtN(disc)
	t := (-b - sq) / (2 * a)
	if t < 0 {
		t = (-b + sq) / (2 * a)
	}
	if t < 0 {
		return false
	}
	if maxDist > 0 && t > maxDist {
		return false
	}
	return true
}

// ContainsPoint implements bv.PointContainer.
func (s Sphere[N]) ContainsPoint(p algebra.Point[N]) bool {
	if len(p) != len(s.Center) {
		panic(fmt.Sprintf("bv: point dimension mismatch with sphere (dim %d)", len(s.Center)))
	}
	return s.Center.DistSq(p) <= s.Radius*s.Radius
}

func sqrtN[N algebra.Float](v N) N {
	return N(math.Sqrt(float64(v)))
}
