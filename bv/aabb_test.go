package bv

import (
	"testing"

	"broadphase/algebra"
)

func TestAABBIntersects(t *testing.T) {
	a := NewAABB(algebra.Point[float64]{0, 0, 0}, algebra.Point[float64]{2, 2, 2})
	b := NewAABB(algebra.Point[float64]{1, 1, 1}, algebra.Point[float64]{3, 3, 3})
	c := NewAABB(algebra.Point[float64]{5, 5, 5}, algebra.Point[float64]{6, 6, 6})

	if !a.Intersects(b) {
		t.Error("expected overlapping AABBs to intersect")
	}
	if !b.Intersects(a) {
		t.Error("Intersects should be symmetric")
	}
	if a.Intersects(c) {
		t.Error("expected disjoint AABBs not to intersect")
	}
	if !a.Intersects(a) {
		t.Error("Intersects should be reflexive")
	}
}

func TestAABBContains(t *testing.T) {
	outer := NewAABB(algebra.Point[float64]{0, 0, 0}, algebra.Point[float64]{10, 10, 10})
	inner := NewAABB(algebra.Point[float64]{1, 1, 1}, algebra.Point[float64]{2, 2, 2})

	if !outer.Contains(inner) {
		t.Error("expected outer to contain inner")
	}
	if inner.Contains(outer) {
		t.Error("inner should not contain outer")
	}
	if !outer.Contains(outer) {
		t.Error("Contains should be reflexive")
	}
}

func TestAABBMerge(t *testing.T) {
	a := NewAABB(algebra.Point[float64]{0, 0, 0}, algebra.Point[float64]{1, 1, 1})
	b := NewAABB(algebra.Point[float64]{2, -1, 0}, algebra.Point[float64]{3, 0, 5})

	merged := a.Merged(b)
	if !merged.Contains(a) || !merged.Contains(b) {
		t.Error("merged AABB must contain both operands")
	}

	want := NewAABB(algebra.Point[float64]{0, -1, 0}, algebra.Point[float64]{3, 1, 5})
	for i := range want.Mins {
		if merged.Mins[i] != want.Mins[i] || merged.Maxs[i] != want.Maxs[i] {
			t.Fatalf("Merged() = %+v, want %+v", merged, want)
		}
	}
}

func TestAABBLoosen(t *testing.T) {
	a := NewAABB(algebra.Point[float64]{0, 0, 0}, algebra.Point[float64]{1, 1, 1})

	if !a.Loosened(0).Contains(a) || !a.Contains(a.Loosened(0)) {
		t.Error("Loosened(0) should be equivalent to the receiver")
	}

	loose := a.Loosened(0.5)
	if !loose.Contains(a) {
		t.Error("Loosened(k) must contain the receiver")
	}
	if loose.Mins[0] != -0.5 || loose.Maxs[0] != 1.5 {
		t.Errorf("Loosened(0.5) mins/maxs = %v/%v, want -0.5/1.5", loose.Mins[0], loose.Maxs[0])
	}
}

func TestAABBLoosenRejectsNegative(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on negative loosen amount")
		}
	}()
	a := NewAABB(algebra.Point[float64]{0, 0, 0}, algebra.Point[float64]{1, 1, 1})
	a.Loosened(-1)
}

// TestCuboidAABBUnderRotation covers a cuboid with half-extents (1,2,3)
// under identity and under a 90-degree rotation about Z.
func TestCuboidAABBUnderRotation(t *testing.T) {
	half := algebra.Vector[float64]{1, 2, 3}

	identity := algebra.Identity[float64](3)
	aabb := CuboidAABB(half, identity)
	wantMins := algebra.Point[float64]{-1, -2, -3}
	wantMaxs := algebra.Point[float64]{1, 2, 3}
	for i := range wantMins {
		if aabb.Mins[i] != wantMins[i] || aabb.Maxs[i] != wantMaxs[i] {
			t.Fatalf("identity CuboidAABB = %+v, want mins %v maxs %v", aabb, wantMins, wantMaxs)
		}
	}

	rotZ90 := algebra.Isometry[float64]{
		Translation: algebra.Point[float64]{0, 0, 0},
		Rotation: [][]float64{
			{0, -1, 0},
			{1, 0, 0},
			{0, 0, 1},
		},
	}
	rotated := CuboidAABB(half, rotZ90)
	wantRotMins := algebra.Point[float64]{-2, -1, -3}
	wantRotMaxs := algebra.Point[float64]{2, 1, 3}
	for i := range wantRotMins {
		if rotated.Mins[i] != wantRotMins[i] || rotated.Maxs[i] != wantRotMaxs[i] {
			t.Fatalf("rotated CuboidAABB = %+v, want mins %v maxs %v", rotated, wantRotMins, wantRotMaxs)
		}
	}
}

func TestAABBRayCast(t *testing.T) {
	box := NewAABB(algebra.Point[float64]{-1, -1, -1}, algebra.Point[float64]{1, 1, 1})
	ray := Ray[float64]{Origin: algebra.Point[float64]{-5, 0, 0}, Dir: algebra.Vector[float64]{1, 0, 0}}
	if !box.IntersectsRay(ray, 0) {
		t.Error("expected ray through box center to hit")
	}

	miss := Ray[float64]{Origin: algebra.Point[float64]{-5, 5, 0}, Dir: algebra.Vector[float64]{1, 0, 0}}
	if box.IntersectsRay(miss, 0) {
		t.Error("expected parallel offset ray to miss")
	}
}

func TestAABBContainsPoint(t *testing.T) {
	box := NewAABB(algebra.Point[float64]{0, 0, 0}, algebra.Point[float64]{1, 1, 1})
	if !box.ContainsPoint(algebra.Point[float64]{0.5, 0.5, 0.5}) {
		t.Error("expected interior point to be contained")
	}
	if box.ContainsPoint(algebra.Point[float64]{2, 0, 0}) {
		t.Error("expected exterior point not to be contained")
	}
}
