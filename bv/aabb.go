package bv

import (
	"fmt"

	"broadphase/algebra"
)

// AABB is a closed axis-aligned box [Mins, Maxs] (faces included) with
// Mins[i] <= Maxs[i] for every axis. The invariant is enforced at construction and never
// violated by any operation below.
type AABB[N algebra.Float] struct {
	Mins algebra.Point[N]
	Maxs algebra.Point[N]
}

// NewAABB builds an AABB from two corners, ordering each axis so the
// mins <= maxs invariant holds regardless of the order the caller passes
// them in.
func NewAABB[N algebra.Float](a, b algebra.Point[N]) AABB[N] {
	if len(a) != len(b) {
		panic(fmt.Sprintf("bv: AABB dimension mismatch (%d vs %d)", len(a), len(b)))
	}
	mins := make(algebra.Point[N], len(a))
	maxs := make(algebra.Point[N], len(a))
	for i := range a {
		if a[i] <= b[i] {
			mins[i], maxs[i] = a[i], b[i]
		} else {
			mins[i], maxs[i] = b[i], a[i]
		}
	}
	return AABB[N]{Mins: mins, Maxs: maxs}
}

// NewAABBFromCenterHalfExtents builds an AABB from a center point and
// per-axis half extents (all must be >= 0).
func NewAABBFromCenterHalfExtents[N algebra.Float](center algebra.Point[N], half algebra.Vector[N]) AABB[N] {
	return NewAABB(center.Translate(half.Scale(-1)), center.Translate(half))
}

// CuboidAABB computes the AABB of a cuboid with the given half-extents under
// an arbitrary isometry: aabb = [M.Translation - |R|h, M.Translation + |R|h].
func CuboidAABB[N algebra.Float](halfExtents algebra.Vector[N], iso algebra.Isometry[N]) AABB[N] {
	if len(halfExtents) != len(iso.Translation) {
		panic(fmt.Sprintf("bv: cuboid half-extent dimension (%d) mismatches isometry dimension (%d)",
			len(halfExtents), len(iso.Translation)))
	}
	center := iso.TransformPoint(algebra.Zero[N](len(halfExtents)))
	absHalf := iso.AbsRotate(halfExtents)
	return NewAABBFromCenterHalfExtents(center, absHalf)
}

func (a AABB[N]) dim() int { return len(a.Mins) }

func (a AABB[N]) requireSameDim(b AABB[N]) {
	if a.dim() != b.dim() {
		panic(fmt.Sprintf("bv: AABB dimension mismatch (%d vs %d)", a.dim(), b.dim()))
	}
}

// Intersects reports whether a and b overlap on every axis.
func (a AABB[N]) Intersects(b AABB[N]) bool {
	a.requireSameDim(b)
	for i := range a.Mins {
		if a.Mins[i] > b.Maxs[i] || a.Maxs[i] < b.Mins[i] {
			return false
		}
	}
	return true
}

// Contains reports whether b lies entirely within a on every axis.
func (a AABB[N]) Contains(b AABB[N]) bool {
	a.requireSameDim(b)
	for i := range a.Mins {
		if a.Mins[i] > b.Mins[i] || a.Maxs[i] < b.Maxs[i] {
			return false
		}
	}
	return true
}

// Merged returns the tightest AABB containing both a and b (per-axis min/max).
func (a AABB[N]) Merged(b AABB[N]) AABB[N] {
	a.requireSameDim(b)
	mins := make(algebra.Point[N], a.dim())
	maxs := make(algebra.Point[N], a.dim())
	for i := range a.Mins {
		mins[i] = minN(a.Mins[i], b.Mins[i])
		maxs[i] = maxN(a.Maxs[i], b.Maxs[i])
	}
	return AABB[N]{Mins: mins, Maxs: maxs}
}

// Merge mutates a in place to Merged(b).
func (a *AABB[N]) Merge(b AABB[N]) {
	*a = a.Merged(b)
}

// Loosened inflates each face of a by k (k >= 0) and returns the result.
func (a AABB[N]) Loosened(k N) AABB[N] {
	if k < 0 {
		panic(fmt.Sprintf("bv: loosen amount must be >= 0, got %v", k))
	}
	mins := make(algebra.Point[N], a.dim())
	maxs := make(algebra.Point[N], a.dim())
	for i := range a.Mins {
		mins[i] = a.Mins[i] - k
		maxs[i] = a.Maxs[i] + k
	}
	return AABB[N]{Mins: mins, Maxs: maxs}
}

// Loosen mutates a in place to Loosened(k).
func (a *AABB[N]) Loosen(k N) {
	*a = a.Loosened(k)
}

// Translated returns a moved by delta.
func (a AABB[N]) Translated(delta algebra.Vector[N]) AABB[N] {
	return AABB[N]{Mins: a.Mins.Translate(delta), Maxs: a.Maxs.Translate(delta)}
}

// Cost is the sum of per-axis extents, a cheap dimension-agnostic proxy for
// size used only to drive the DBVT's insertion heuristic.
func (a AABB[N]) Cost() N {
	var sum N
	for i := range a.Mins {
		sum += a.Maxs[i] - a.Mins[i]
	}
	return sum
}

// Center returns the AABB's midpoint, used as its positional anchor.
func (a AABB[N]) Center() algebra.Point[N] {
	out := make(algebra.Point[N], a.dim())
	for i := range a.Mins {
		out[i] = (a.Mins[i] + a.Maxs[i]) / 2
	}
	return out
}

// IntersectsRay implements bv.RayCaster via the classic slab test.
func (a AABB[N]) IntersectsRay(r Ray[N], maxDist N) bool {
	if len(r.Origin) != a.dim() || len(r.Dir) != a.dim() {
		panic(fmt.Sprintf("bv: ray dimension mismatch with AABB (dim %d)", a.dim()))
	}
	tmin := N(0)
	tmax := N(1e30) // effectively unbounded for either float32 or float64
	if maxDist > 0 {
		tmax = maxDist
	}
	for i := range a.Mins {
		if r.Dir[i] == 0 {
			if r.Origin[i] < a.Mins[i] || r.Origin[i] > a.Maxs[i] {
				return false
			}
			continue
		}
		invD := 1 / r.Dir[i]
		t1 := (a.Mins[i] - r.Origin[i]) * invD
		t2 := (a.Maxs[i] - r.Origin[i]) * invD
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = maxN(tmin, t1)
		tmax = minN(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return true
}

// ContainsPoint implements bv.PointContainer.
func (a AABB[N]) ContainsPoint(p algebra.Point[N]) bool {
	if len(p) != a.dim() {
		panic(fmt.Sprintf("bv: point dimension mismatch with AABB (dim %d vs %d)", len(p), a.dim()))
	}
	for i := range a.Mins {
		if p[i] < a.Mins[i] || p[i] > a.Maxs[i] {
			return false
		}
	}
	return true
}

func minN[N algebra.Float](a, b N) N {
	if a < b {
		return a
	}
	return b
}

func maxN[N algebra.Float](a, b N) N {
	if a > b {
		return a
	}
	return b
}
