// Package broadphase implements a Dynamic Bounding Volume Tree broad phase:
// a two-tree incremental spatial index with sleep/wake semantics, a pair
// manager with amortized stale-pair eviction, and a dispatcher indirection
// that lazily constructs per-pair collision data.
package broadphase

import (
	"fmt"

	"broadphase/algebra"
	"broadphase/bv"
	"broadphase/dbvt"
	"broadphase/pairreg"
	"broadphase/query"
)

// BoundingVolume is the capability set the broad phase requires of its BV
// type: the dbvt ordering/merge capability plus ray-cast and point
// containment, so the same type parameter serves InterferencesWithRay and
// InterferencesWithPoint without a second generic axis.
type BoundingVolume[N algebra.Float, V any] interface {
	bv.Volume[N, V]
	bv.RayCaster[N]
	bv.PointContainer[N]
}

// HasBoundingVolume is the contract a user object type must satisfy: a
// stable UID unique among currently-live objects, and a way to compute its
// current true bounding volume.
type HasBoundingVolume[N algebra.Float, V any] interface {
	UID() uint64
	BoundingVolume() V
}

// DBVTBroadPhase is a two-tree dynamic bounding volume tree broad phase
// over objects of type B with bounding volume type V and per-pair
// collision datum type DV.
type DBVTBroadPhase[N algebra.Float, V BoundingVolume[N, V], B HasBoundingVolume[N, V], DV any] struct {
	margin N

	tree  dbvt.Tree[N, V, B] // active objects
	stree dbvt.Tree[N, V, B] // sleeping objects

	active2bv   map[uint64]*dbvt.Leaf[V, B]
	inactive2bv map[uint64]*dbvt.Leaf[V, B]

	pairs  *pairreg.Registry[*dbvt.Leaf[V, B], DV]
	spairs *pairreg.Registry[*dbvt.Leaf[V, B], DV]

	dispatcher Dispatcher[B, DV]

	toUpdate  []*dbvt.Leaf[V, B]
	updateOff int
}

// New creates an empty broad phase. margin must be >= 0; it is the single
// source of temporal coherence (§4.F.3) and is fixed for the broad phase's
// lifetime. dispatcher may be nil, in which case every candidate pair is
// accepted with the zero DV.
func New[N algebra.Float, V BoundingVolume[N, V], B HasBoundingVolume[N, V], DV any](dispatcher Dispatcher[B, DV], margin N) *DBVTBroadPhase[N, V, B, DV] {
	if margin < 0 {
		panic(fmt.Sprintf("broadphase: margin must be >= 0, got %v", margin))
	}
	return &DBVTBroadPhase[N, V, B, DV]{
		margin:      margin,
		active2bv:   make(map[uint64]*dbvt.Leaf[V, B]),
		inactive2bv: make(map[uint64]*dbvt.Leaf[V, B]),
		pairs:       pairreg.New[*dbvt.Leaf[V, B], DV](),
		spairs:      pairreg.New[*dbvt.Leaf[V, B], DV](),
		dispatcher:  dispatcher,
	}
}

// NumActive returns the number of awake objects.
func (bp *DBVTBroadPhase[N, V, B, DV]) NumActive() int {
	return len(bp.active2bv)
}

// NumInactive returns the number of sleeping objects.
func (bp *DBVTBroadPhase[N, V, B, DV]) NumInactive() int {
	return len(bp.inactive2bv)
}

// NumPairs returns the number of currently registered active/active or
// active/sleeping pairs (those in pairs) plus sleeping/sleeping pairs
// (those in spairs).
func (bp *DBVTBroadPhase[N, V, B, DV]) NumPairs() int {
	return bp.pairs.Len() + bp.spairs.Len()
}

// Add inserts object into the broad phase, awake. Panics if object's UID
// duplicates one already registered, active or sleeping.
func (bp *DBVTBroadPhase[N, V, B, DV]) Add(object B) {
	uid := object.UID()
	if _, exists := bp.active2bv[uid]; exists {
		panic(fmt.Sprintf("broadphase: duplicate uid %d on Add", uid))
	}
	if _, exists := bp.inactive2bv[uid]; exists {
		panic(fmt.Sprintf("broadphase: duplicate uid %d on Add", uid))
	}

	loose := object.BoundingVolume().Loosened(bp.margin)
	leaf := dbvt.NewLeaf(loose, object)
	bp.toUpdate = append(bp.toUpdate, leaf)
	bp.processUpdates()
	bp.active2bv[uid] = leaf
}

// Remove deletes the object identified by uid, wherever it currently lives
// (active or sleeping), pruning every pair entry that references it. A
// no-op if uid is not registered.
func (bp *DBVTBroadPhase[N, V, B, DV]) Remove(uid uint64) {
	if leaf, ok := bp.active2bv[uid]; ok {
		bp.prunePairsReferencing(leaf)
		bp.tree.Remove(leaf)
		delete(bp.active2bv, uid)
		return
	}
	if leaf, ok := bp.inactive2bv[uid]; ok {
		bp.prunePairsReferencing(leaf)
		bp.stree.Remove(leaf)
		delete(bp.inactive2bv, uid)
		return
	}
}

func (bp *DBVTBroadPhase[N, V, B, DV]) prunePairsReferencing(leaf *dbvt.Leaf[V, B]) {
	for _, reg := range [2]*pairreg.Registry[*dbvt.Leaf[V, B], DV]{bp.pairs, bp.spairs} {
		for i := reg.Len() - 1; i >= 0; i-- {
			_, a, b, _ := reg.At(i)
			if a == leaf || b == leaf {
				reg.RemoveAt(i)
			}
		}
	}
}

// Update re-evaluates every active object's true bounding volume against
// its cached loose BV, reinserting any object whose shape has escaped its
// margin, then reconciles pairs. This is the per-frame entry point.
func (bp *DBVTBroadPhase[N, V, B, DV]) Update() {
	for _, leaf := range bp.active2bv {
		fresh := leaf.Object.BoundingVolume()
		if leaf.BV.Contains(fresh) {
			continue
		}
		bp.tree.Remove(leaf)
		leaf.BV = fresh.Loosened(bp.margin)
		bp.toUpdate = append(bp.toUpdate, leaf)
	}
	bp.processUpdates()
}

// UpdateObject performs the same escaped-margin check as Update, scoped to
// a single already-registered active object, and replaces its stored
// object value with the supplied one. A no-op if object's UID is not
// currently active.
func (bp *DBVTBroadPhase[N, V, B, DV]) UpdateObject(object B) {
	uid := object.UID()
	leaf, ok := bp.active2bv[uid]
	if !ok {
		return
	}
	leaf.Object = object

	fresh := object.BoundingVolume()
	if leaf.BV.Contains(fresh) {
		return
	}
	bp.tree.Remove(leaf)
	leaf.BV = fresh.Loosened(bp.margin)
	bp.toUpdate = append(bp.toUpdate, leaf)
	bp.processUpdates()
}

// processUpdates reinserts every leaf queued in toUpdate, creating any new
// pairs its fresh position surfaces, then performs an amortized sweep of
// the pair registry evicting entries whose leaves no longer overlap.
func (bp *DBVTBroadPhase[N, V, B, DV]) processUpdates() {
	if len(bp.toUpdate) == 0 {
		return
	}

	newColls := 0
	for _, u := range bp.toUpdate {
		var candidates []*dbvt.Leaf[V, B]
		bp.tree.InterferencesWithLeaf(u, &candidates)
		bp.stree.InterferencesWithLeaf(u, &candidates)

		for _, cand := range candidates {
			uidU, uidC := u.Object.UID(), cand.Object.UID()
			if bp.dispatcher != nil && !bp.dispatcher.IsValid(u.Object, cand.Object) {
				continue
			}
			key := pairreg.NewKey(uidU, uidC)
			if bp.pairs.Contains(key) || bp.spairs.Contains(key) {
				continue
			}
			// Only a newly inserted pair counts toward eviction pressure; a
			// candidate whose pair is already registered adds none.
			newColls++
			var dv DV
			if bp.dispatcher != nil {
				dv = bp.dispatcher.Dispatch(u.Object, cand.Object)
			}
			a, b := u, cand
			if uidC < uidU {
				a, b = cand, u
			}
			bp.pairs.Insert(key, a, b, dv)
		}

		bp.tree.Insert(u)
	}
	bp.toUpdate = bp.toUpdate[:0]

	bp.evictStalePairs(newColls)
}

// evictStalePairs amortizes cleanup of pairs whose leaves drifted apart
// over many calls, scanning a bounded window starting at a persistent ring
// cursor instead of the whole registry every time.
func (bp *DBVTBroadPhase[N, V, B, DV]) evictStalePairs(newColls int) {
	n := bp.pairs.Len()
	if newColls == 0 || n == 0 {
		return
	}

	numRemovals := newColls
	if lo := n / 10; numRemovals < lo {
		numRemovals = lo
	}
	if numRemovals > n {
		numRemovals = n
	}

	pos := bp.updateOff
	for i := 0; i < numRemovals && bp.pairs.Len() > 0; i++ {
		pos %= bp.pairs.Len()
		_, a, b, _ := bp.pairs.At(pos)
		if !a.BV.Intersects(b.BV) {
			bp.pairs.RemoveAt(pos)
			continue
		}
		pos++
	}
	if bp.pairs.Len() == 0 {
		pos = 0
	}
	bp.updateOff = pos
}

// Deactivate puts the active object identified by uid to sleep: its leaf
// moves from the active tree to the sleeping tree, and every pair it forms
// with another sleeping object (overlaps the dispatcher rejects are skipped)
// migrates from pairs to spairs. A no-op if uid is not currently active.
//
// Panics if a migrated overlap has no corresponding pairs entry: every
// dispatcher-valid active/sleeping overlap must already be registered there
// by construction (§4.F note), so its absence indicates a broad-phase
// invariant bug.
func (bp *DBVTBroadPhase[N, V, B, DV]) Deactivate(uid uint64) {
	leaf, ok := bp.active2bv[uid]
	if !ok {
		return
	}

	bp.tree.Remove(leaf)
	delete(bp.active2bv, uid)
	bp.stree.Insert(leaf)
	bp.inactive2bv[uid] = leaf

	var overlapping []*dbvt.Leaf[V, B]
	bp.stree.InterferencesWithLeaf(leaf, &overlapping)
	for _, other := range overlapping {
		if bp.dispatcher != nil && !bp.dispatcher.IsValid(leaf.Object, other.Object) {
			continue
		}
		otherUID := other.Object.UID()
		key := pairreg.NewKey(uid, otherUID)
		data, a, b, found := bp.pairs.Remove(key)
		if !found {
			panic(fmt.Sprintf("broadphase: deactivation invariant violated: no pairs entry for uid %d/%d", uid, otherUID))
		}
		bp.spairs.Insert(key, a, b, data)
	}
}

// Activate wakes the sleeping object identified by uid: its leaf moves
// back to the active tree, and every pair it formed with a still-sleeping
// object (overlaps the dispatcher rejects are skipped) migrates from spairs
// back to pairs. visitor, if non-nil, is
// called once per migrated pair as (a, b, &dv) so the caller can refresh
// narrow-phase state on wake-up. A no-op if uid is not currently inactive.
//
// Panics if a migrated overlap has no corresponding spairs entry (the
// mirror of Deactivate's invariant), or if a pairs entry for the migrated
// key already exists — activation must never silently overwrite one.
func (bp *DBVTBroadPhase[N, V, B, DV]) Activate(uid uint64, visitor func(a, b B, dv *DV)) {
	leaf, ok := bp.inactive2bv[uid]
	if !ok {
		return
	}

	bp.stree.Remove(leaf)
	delete(bp.inactive2bv, uid)
	bp.tree.Insert(leaf)
	bp.active2bv[uid] = leaf

	var overlapping []*dbvt.Leaf[V, B]
	bp.stree.InterferencesWithLeaf(leaf, &overlapping)
	for _, other := range overlapping {
		if bp.dispatcher != nil && !bp.dispatcher.IsValid(leaf.Object, other.Object) {
			continue
		}
		otherUID := other.Object.UID()
		key := pairreg.NewKey(uid, otherUID)
		data, a, b, found := bp.spairs.Remove(key)
		if !found {
			panic(fmt.Sprintf("broadphase: activation invariant violated: no spairs entry for uid %d/%d", uid, otherUID))
		}
		if bp.pairs.Contains(key) {
			panic("broadphase: activation would overwrite an existing pair entry")
		}
		bp.pairs.Insert(key, a, b, data)
		if visitor != nil {
			visitor(a.Object, b.Object, bp.pairs.DataPtr(key))
		}
	}
}

// InterferencesWithBoundingVolume appends the object of every leaf (active
// or sleeping) whose loose BV intersects target to out.
func (bp *DBVTBroadPhase[N, V, B, DV]) InterferencesWithBoundingVolume(target V, out *[]B) {
	collector := &query.BoundingVolumeCollector[N, V, B]{Target: target}
	bp.tree.Visit(collector)
	bp.stree.Visit(collector)
	for _, leaf := range collector.Out {
		*out = append(*out, leaf.Object)
	}
}

// InterferencesWithRay appends the object of every leaf (active or
// sleeping) whose loose BV is crossed by ray within maxDist (maxDist <= 0
// means unbounded) to out.
func (bp *DBVTBroadPhase[N, V, B, DV]) InterferencesWithRay(ray bv.Ray[N], maxDist N, out *[]B) {
	collector := &query.RayCollector[N, V, B]{Ray: ray, MaxDist: maxDist}
	bp.tree.Visit(collector)
	bp.stree.Visit(collector)
	for _, leaf := range collector.Out {
		*out = append(*out, leaf.Object)
	}
}

// InterferencesWithPoint appends the object of every leaf (active or
// sleeping) whose loose BV contains p to out.
func (bp *DBVTBroadPhase[N, V, B, DV]) InterferencesWithPoint(p algebra.Point[N], out *[]B) {
	collector := &query.PointCollector[N, V, B]{Point: p}
	bp.tree.Visit(collector)
	bp.stree.Visit(collector)
	for _, leaf := range collector.Out {
		*out = append(*out, leaf.Object)
	}
}

// ForEachPair calls f once for every active/active or active/sleeping pair
// currently registered, passing both objects and their collision datum.
func (bp *DBVTBroadPhase[N, V, B, DV]) ForEachPair(f func(a, b B, dv DV)) {
	bp.pairs.ForEach(func(_ pairreg.Key, a, b *dbvt.Leaf[V, B], dv DV) {
		f(a.Object, b.Object, dv)
	})
}

// ForEachPairMut calls f once for every active/active or active/sleeping
// pair (sleeping/sleeping pairs are not visited), letting it return a
// replacement collision datum stored back in place.
func (bp *DBVTBroadPhase[N, V, B, DV]) ForEachPairMut(f func(a, b B, dv DV) DV) {
	bp.pairs.ForEachMut(func(_ pairreg.Key, a, b *dbvt.Leaf[V, B], dv DV) DV {
		return f(a.Object, b.Object, dv)
	})
}
