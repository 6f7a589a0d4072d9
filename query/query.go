// Package query provides ready-made dbvt.Visitor implementations for the
// three query shapes the broad phase exposes: overlap against a bounding
// volume, overlap against a ray, and containment of a point.
package query

import (
	"broadphase/algebra"
	"broadphase/bv"
	"broadphase/dbvt"
)

// BoundingVolumeCollector gathers every leaf whose BV intersects Target,
// pruning subtrees whose BV does not.
type BoundingVolumeCollector[N algebra.Float, V bv.Volume[N, V], B any] struct {
	Target V
	Out    []*dbvt.Leaf[V, B]
}

func (c *BoundingVolumeCollector[N, V, B]) VisitVolume(b V) dbvt.VisitAction {
	if c.Target.Intersects(b) {
		return dbvt.Continue
	}
	return dbvt.Stop
}

func (c *BoundingVolumeCollector[N, V, B]) VisitLeaf(leaf *dbvt.Leaf[V, B]) {
	c.Out = append(c.Out, leaf)
}

// rayVolume is the capability a BV type must have to support RayCollector:
// it's a dbvt Volume for the same N/Self pairing, and it can ray-cast.
type rayVolume[N algebra.Float, V any] interface {
	bv.Volume[N, V]
	bv.RayCaster[N]
}

// RayCollector gathers every leaf whose BV is crossed by Ray within MaxDist
// (MaxDist <= 0 means unbounded).
type RayCollector[N algebra.Float, V rayVolume[N, V], B any] struct {
	Ray     bv.Ray[N]
	MaxDist N
	Out     []*dbvt.Leaf[V, B]
}

func (c *RayCollector[N, V, B]) VisitVolume(b V) dbvt.VisitAction {
	if b.IntersectsRay(c.Ray, c.MaxDist) {
		return dbvt.Continue
	}
	return dbvt.Stop
}

func (c *RayCollector[N, V, B]) VisitLeaf(leaf *dbvt.Leaf[V, B]) {
	c.Out = append(c.Out, leaf)
}

// pointVolume is the capability a BV type must have to support
// PointCollector.
type pointVolume[N algebra.Float, V any] interface {
	bv.Volume[N, V]
	bv.PointContainer[N]
}

// PointCollector gathers every leaf whose BV contains Point.
type PointCollector[N algebra.Float, V pointVolume[N, V], B any] struct {
	Point algebra.Point[N]
	Out   []*dbvt.Leaf[V, B]
}

func (c *PointCollector[N, V, B]) VisitVolume(b V) dbvt.VisitAction {
	if b.ContainsPoint(c.Point) {
		return dbvt.Continue
	}
	return dbvt.Stop
}

func (c *PointCollector[N, V, B]) VisitLeaf(leaf *dbvt.Leaf[V, B]) {
	c.Out = append(c.Out, leaf)
}
