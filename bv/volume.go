// Package bv implements the bounding-volume primitives the broad phase
// relies on: AABB and BoundingSphere, with intersection, containment, merge,
// loosening, and translation, plus local ray/point queries.
package bv

import "broadphase/algebra"

// Volume is the capability a bounding volume must provide. Self is the
// concrete volume type (AABB[N] or Sphere[N]); the recursive constraint lets
// generic code over Volume operate without knowing the concrete shape.
type Volume[N algebra.Float, Self any] interface {
	// Intersects reports whether the volumes overlap. Reflexive and symmetric.
	Intersects(other Self) bool
	// Contains reports whether other lies entirely within the volume.
	// Reflexive and transitive; Contains implies Intersects.
	Contains(other Self) bool
	// Merged returns the smallest volume (AABB: exact; sphere: Ritter-style,
	// not guaranteed minimal) containing both operands.
	Merged(other Self) Self
	// Loosened returns a superset of the volume, inflated by k (k >= 0).
	// Monotone; Loosened(0) is equivalent to the receiver.
	Loosened(k N) Self
	// Translated returns the volume moved by delta.
	Translated(delta algebra.Vector[N]) Self
	// Cost is a cheap, dimension-agnostic proxy for the volume's size, used
	// only to drive the DBVT insertion heuristic (smallest merge-cost
	// increase). It is not a claim of exact hyper-volume.
	Cost() N
}

// Ray is a half-line used for LocalRayCast queries.
type Ray[N algebra.Float] struct {
	Origin algebra.Point[N]
	Dir    algebra.Vector[N]
}

// RayCaster is implemented by bounding volumes that support ray queries.
type RayCaster[N algebra.Float] interface {
	// IntersectsRay reports whether the ray hits the volume within maxDist
	// of its origin (maxDist <= 0 means unbounded).
	IntersectsRay(r Ray[N], maxDist N) bool
}

// PointContainer is implemented by bounding volumes that support point
// containment queries.
type PointContainer[N algebra.Float] interface {
	ContainsPoint(p algebra.Point[N]) bool
}
