package broadphase

import (
	"testing"

	"broadphase/algebra"
	"broadphase/bv"
)

// testBody is a minimal HasBoundingVolume implementation: a movable sphere
// with a stable uid and a parity-based category used by the dispatcher
// tests.
type testBody struct {
	uid    uint64
	center algebra.Point[float64]
	radius float64
}

func (b *testBody) UID() uint64 { return b.uid }
func (b *testBody) BoundingVolume() bv.Sphere[float64] {
	return bv.NewSphere(b.center, b.radius)
}

type collisionData struct {
	touches int
}

// parityDispatcher rejects pairs whose UIDs share the same parity (an
// arbitrary stand-in for a real collision-category filter).
type parityDispatcher struct {
	dispatched int
}

func (d *parityDispatcher) IsValid(a, b *testBody) bool {
	return a.UID()%2 != b.UID()%2
}

func (d *parityDispatcher) Dispatch(a, b *testBody) *collisionData {
	d.dispatched++
	return &collisionData{}
}

// TestTwoSpheresSeparating covers two unit spheres that start overlapping
// (pairs.len() == 1 immediately after Add), then move apart beyond the
// margin. Moving the only two
// objects in an otherwise static scene produces no new dispatcher-valid
// overlap anywhere, so eviction work is correctly skipped that frame (see
// evictStalePairs and TestEvictStalePairsRemovesNonIntersectingPair for the
// amortized-eviction half of the guarantee); what must hold immediately is
// that the pair's own bounding volumes genuinely stop intersecting once
// separated.
func TestTwoSpheresSeparating(t *testing.T) {
	disp := &parityDispatcher{}
	bp := New[float64, bv.Sphere[float64], *testBody, *collisionData](disp, 0.1)

	a := &testBody{uid: 1, center: algebra.Point[float64]{0, 0, 0}, radius: 1}
	b := &testBody{uid: 2, center: algebra.Point[float64]{1.5, 0, 0}, radius: 1}
	bp.Add(a)
	bp.Add(b)

	if bp.NumPairs() != 1 {
		t.Fatalf("NumPairs() = %d, want 1 while overlapping", bp.NumPairs())
	}

	// Move b far away, beyond both radii and the margin.
	b.center = algebra.Point[float64]{100, 0, 0}
	bp.UpdateObject(b)

	leaf := bp.active2bv[b.UID()]
	if leaf.BV.Intersects(bp.active2bv[a.UID()].BV) {
		t.Error("expected the reinserted leaves' loose BVs to no longer intersect after separating")
	}
}

// TestEvictStalePairsRemovesNonIntersectingPair covers the amortized-
// eviction side of separation: once a registered pair's leaves drift
// apart, the next sweep that has any eviction pressure (newColls > 0)
// removes it.
func TestEvictStalePairsRemovesNonIntersectingPair(t *testing.T) {
	bp := New[float64, bv.Sphere[float64], *testBody, *collisionData](nil, 0.1)

	a := &testBody{uid: 1, center: algebra.Point[float64]{0, 0, 0}, radius: 1}
	b := &testBody{uid: 2, center: algebra.Point[float64]{1.5, 0, 0}, radius: 1}
	bp.Add(a)
	bp.Add(b)
	if bp.pairs.Len() != 1 {
		t.Fatalf("pairs.Len() = %d, want 1", bp.pairs.Len())
	}

	// Directly widen the leaves' cached loose BVs apart without going
	// through UpdateObject, simulating the state right after two objects
	// have separated and their stale pair is still registered.
	leafA := bp.active2bv[a.UID()]
	leafB := bp.active2bv[b.UID()]
	leafB.BV = bv.NewSphere(algebra.Point[float64]{100, 0, 0}, 1.1)

	if leafA.BV.Intersects(leafB.BV) {
		t.Fatal("test setup invalid: leaves should no longer intersect")
	}

	bp.evictStalePairs(1) // simulate one unit of eviction pressure found elsewhere
	if bp.pairs.Len() != 0 {
		t.Errorf("evictStalePairs did not remove the non-intersecting pair, pairs.Len() = %d", bp.pairs.Len())
	}
}

func TestDispatcherRejectsInvalidPair(t *testing.T) {
	disp := &parityDispatcher{}
	bp := New[float64, bv.Sphere[float64], *testBody, *collisionData](disp, 0.1)

	a := &testBody{uid: 2, center: algebra.Point[float64]{0, 0, 0}, radius: 1}
	b := &testBody{uid: 4, center: algebra.Point[float64]{0.5, 0, 0}, radius: 1}
	bp.Add(a)
	bp.Add(b)

	if bp.NumPairs() != 0 {
		t.Fatalf("NumPairs() = %d, want 0: same-parity UIDs must be rejected by the dispatcher", bp.NumPairs())
	}
	if disp.dispatched != 0 {
		t.Errorf("Dispatch should never be called for a rejected pair, called %d times", disp.dispatched)
	}
}

// TestSleepWakeMigratesPairs covers deactivating one of two overlapping
// objects: their pair migrates from pairs to spairs and back again on
// wake, invoking the activation visitor exactly once.
func TestSleepWakeMigratesPairs(t *testing.T) {
	disp := &parityDispatcher{}
	bp := New[float64, bv.Sphere[float64], *testBody, *collisionData](disp, 0.1)

	a := &testBody{uid: 1, center: algebra.Point[float64]{0, 0, 0}, radius: 1}
	b := &testBody{uid: 2, center: algebra.Point[float64]{1, 0, 0}, radius: 1}
	bp.Add(a)
	bp.Add(b)

	if bp.pairs.Len() != 1 {
		t.Fatalf("pairs.Len() = %d, want 1 before deactivation", bp.pairs.Len())
	}

	bp.Deactivate(a.UID())
	if bp.NumActive() != 1 || bp.NumInactive() != 1 {
		t.Fatalf("after Deactivate(a): active=%d inactive=%d, want 1/1", bp.NumActive(), bp.NumInactive())
	}
	// a alone asleep: the pair stays in pairs (one side still active).
	if bp.pairs.Len() != 1 || bp.spairs.Len() != 0 {
		t.Fatalf("after deactivating one of two: pairs=%d spairs=%d, want 1/0", bp.pairs.Len(), bp.spairs.Len())
	}

	bp.Deactivate(b.UID())
	if bp.pairs.Len() != 0 || bp.spairs.Len() != 1 {
		t.Fatalf("after both asleep: pairs=%d spairs=%d, want 0/1", bp.pairs.Len(), bp.spairs.Len())
	}

	visited := 0
	bp.Activate(b.UID(), func(objA, objB *testBody, dv **collisionData) {
		visited++
	})
	if visited != 1 {
		t.Fatalf("waking b should migrate the pair back to pairs (it becomes active/sleeping) and visit it once, visited=%d", visited)
	}
	if bp.pairs.Len() != 1 || bp.spairs.Len() != 0 {
		t.Fatalf("after waking only b: pairs=%d spairs=%d, want 1/0", bp.pairs.Len(), bp.spairs.Len())
	}

	bp.Activate(a.UID(), func(objA, objB *testBody, dv **collisionData) {
		visited++
	})
	if visited != 1 {
		t.Fatalf("waking a should migrate nothing further (the pair is already in pairs), visited=%d", visited)
	}
	if bp.pairs.Len() != 1 || bp.spairs.Len() != 0 {
		t.Fatalf("after both awake again: pairs=%d spairs=%d, want 1/0", bp.pairs.Len(), bp.spairs.Len())
	}
}

func TestActivateNoOpWhenAlreadyActive(t *testing.T) {
	bp := New[float64, bv.Sphere[float64], *testBody, *collisionData](nil, 0.1)
	a := &testBody{uid: 1, center: algebra.Point[float64]{0, 0, 0}, radius: 1}
	bp.Add(a)

	bp.Activate(a.UID(), func(*testBody, *testBody, **collisionData) {
		t.Error("visitor should not be called for an already-active object")
	})
}

func TestDeactivateNoOpWhenUnknown(t *testing.T) {
	bp := New[float64, bv.Sphere[float64], *testBody, *collisionData](nil, 0.1)
	bp.Deactivate(999) // must not panic
}

// TestRayQueryThreeSpheres covers a ray fired through spheres at x=0,
// x=10, x=20 at the broad-phase level, reporting all three.
func TestRayQueryThreeSpheres(t *testing.T) {
	bp := New[float64, bv.Sphere[float64], *testBody, *collisionData](nil, 0.1)
	bp.Add(&testBody{uid: 1, center: algebra.Point[float64]{0, 0, 0}, radius: 1})
	bp.Add(&testBody{uid: 2, center: algebra.Point[float64]{10, 0, 0}, radius: 1})
	bp.Add(&testBody{uid: 3, center: algebra.Point[float64]{20, 0, 0}, radius: 1})

	var hits []*testBody
	ray := bv.Ray[float64]{Origin: algebra.Point[float64]{-5, 0, 0}, Dir: algebra.Vector[float64]{1, 0, 0}}
	bp.InterferencesWithRay(ray, 0, &hits)

	if len(hits) != 3 {
		t.Fatalf("InterferencesWithRay found %d hits, want 3", len(hits))
	}
}

func TestInterferencesWithPoint(t *testing.T) {
	bp := New[float64, bv.Sphere[float64], *testBody, *collisionData](nil, 0.1)
	bp.Add(&testBody{uid: 1, center: algebra.Point[float64]{0, 0, 0}, radius: 1})
	bp.Add(&testBody{uid: 2, center: algebra.Point[float64]{50, 0, 0}, radius: 1})

	var hits []*testBody
	bp.InterferencesWithPoint(algebra.Point[float64]{0.1, 0, 0}, &hits)
	if len(hits) != 1 || hits[0].UID() != 1 {
		t.Fatalf("InterferencesWithPoint = %v, want [uid 1]", hits)
	}
}

func TestRemoveUnknownUIDIsNoOp(t *testing.T) {
	bp := New[float64, bv.Sphere[float64], *testBody, *collisionData](nil, 0.1)
	bp.Remove(12345) // must not panic
}

func TestAddDuplicateUIDPanics(t *testing.T) {
	bp := New[float64, bv.Sphere[float64], *testBody, *collisionData](nil, 0.1)
	bp.Add(&testBody{uid: 1, center: algebra.Point[float64]{0, 0, 0}, radius: 1})

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate uid")
		}
	}()
	bp.Add(&testBody{uid: 1, center: algebra.Point[float64]{5, 0, 0}, radius: 1})
}

func TestNewRejectsNegativeMargin(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on negative margin")
		}
	}()
	New[float64, bv.Sphere[float64], *testBody, *collisionData](nil, -1)
}

func TestForEachPairAndMut(t *testing.T) {
	bp := New[float64, bv.Sphere[float64], *testBody, *collisionData](nil, 0.1)
	bp.Add(&testBody{uid: 1, center: algebra.Point[float64]{0, 0, 0}, radius: 1})
	bp.Add(&testBody{uid: 2, center: algebra.Point[float64]{0.5, 0, 0}, radius: 1})

	count := 0
	bp.ForEachPair(func(a, b *testBody, dv *collisionData) {
		count++
	})
	if count != 1 {
		t.Fatalf("ForEachPair visited %d pairs, want 1", count)
	}

	bp.ForEachPairMut(func(a, b *testBody, dv *collisionData) *collisionData {
		return &collisionData{touches: 7}
	})
	bp.ForEachPair(func(a, b *testBody, dv *collisionData) {
		if dv.touches != 7 {
			t.Errorf("ForEachPairMut did not persist mutation, touches=%d want 7", dv.touches)
		}
	})
}
