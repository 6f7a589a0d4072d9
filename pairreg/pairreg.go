// Package pairreg is a hashed, index-addressable registry of collision
// pairs. It mirrors a HashMap<Pair, T>-style container that also supports
// O(1) removal-by-index, which a plain Go map cannot give us: Go map
// iteration order is randomized across calls, so an incremental ring-scan
// cursor over "all pairs" needs a stable, indexable backing slice instead.
package pairreg

import "fmt"

// Key canonically identifies an unordered pair of object UIDs: A is always
// the smaller of the two, so (a, b) and (b, a) produce the same Key.
type Key struct {
	A, B uint64
}

// NewKey builds the canonical Key for the unordered pair {a, b}. Panics if
// a == b: a pair registry never holds self-pairs.
func NewKey(a, b uint64) Key {
	if a == b {
		panic(fmt.Sprintf("pairreg: cannot key a pair of an object with itself (uid %d)", a))
	}
	if a < b {
		return Key{A: a, B: b}
	}
	return Key{A: b, B: a}
}

type entry[L any, DV any] struct {
	key  Key
	a, b L
	data DV
}

// Registry stores one DV value per unordered pair of leaves of type L,
// indexed by canonical Key. Iteration order (ForEach, At) is insertion
// order except where RemoveAt has swapped an element in from the tail.
type Registry[L any, DV any] struct {
	index map[Key]int
	elems []entry[L, DV]
}

// New creates an empty Registry.
func New[L any, DV any]() *Registry[L, DV] {
	return &Registry[L, DV]{index: make(map[Key]int)}
}

// Len returns the number of pairs currently registered.
func (r *Registry[L, DV]) Len() int {
	return len(r.elems)
}

// Contains reports whether key is currently registered.
func (r *Registry[L, DV]) Contains(key Key) bool {
	_, ok := r.index[key]
	return ok
}

// Insert registers a new pair under key with leaves a, b and initial data
// value. Panics if key is already registered: the broad phase's migration
// logic (sleep/wake) must never silently clobber an existing pair entry.
func (r *Registry[L, DV]) Insert(key Key, a, b L, data DV) {
	if _, exists := r.index[key]; exists {
		panic(fmt.Sprintf("pairreg: key %+v already registered", key))
	}
	r.index[key] = len(r.elems)
	r.elems = append(r.elems, entry[L, DV]{key: key, a: a, b: b, data: data})
}

// Get returns the data, leaves, and presence flag for key.
func (r *Registry[L, DV]) Get(key Key) (data DV, a L, b L, ok bool) {
	i, exists := r.index[key]
	if !exists {
		ok = false
		return
	}
	e := r.elems[i]
	return e.data, e.a, e.b, true
}

// Set overwrites the data value stored for an already-registered key.
// Panics if key is not registered.
func (r *Registry[L, DV]) Set(key Key, data DV) {
	i, exists := r.index[key]
	if !exists {
		panic(fmt.Sprintf("pairreg: cannot set data for unregistered key %+v", key))
	}
	r.elems[i].data = data
}

// Remove deletes the pair registered under key via swap-remove: the last
// element takes its slot, so the former last element is the only one whose
// index changes. Returns the removed leaves and data, and
// whether key was present.
func (r *Registry[L, DV]) Remove(key Key) (data DV, a L, b L, ok bool) {
	i, exists := r.index[key]
	if !exists {
		ok = false
		return
	}
	e := r.elems[i]
	return r.RemoveAt(i), e.a, e.b, true
}

// RemoveAt deletes the element at position i via swap-remove and returns
// its data value. Panics if i is out of range.
func (r *Registry[L, DV]) RemoveAt(i int) DV {
	removed := r.elems[i]
	last := len(r.elems) - 1
	if i != last {
		r.elems[i] = r.elems[last]
		r.index[r.elems[i].key] = i
	}
	r.elems = r.elems[:last]
	delete(r.index, removed.key)
	return removed.data
}

// At returns the element at position i (0 <= i < Len()).
func (r *Registry[L, DV]) At(i int) (key Key, a L, b L, data DV) {
	e := r.elems[i]
	return e.key, e.a, e.b, e.data
}

// ForEach calls fn for every registered pair, in current slice order.
func (r *Registry[L, DV]) ForEach(fn func(key Key, a L, b L, data DV)) {
	for _, e := range r.elems {
		fn(e.key, e.a, e.b, e.data)
	}
}

// DataPtr returns a pointer to the data value stored for key, or nil if key
// is not registered. The pointer is valid until the next mutating call
// (Insert, Remove, RemoveAt) on the registry.
func (r *Registry[L, DV]) DataPtr(key Key) *DV {
	i, exists := r.index[key]
	if !exists {
		return nil
	}
	return &r.elems[i].data
}

// ForEachMut calls fn for every registered pair, allowing it to replace the
// stored data value via its return value.
func (r *Registry[L, DV]) ForEachMut(fn func(key Key, a L, b L, data DV) DV) {
	for i, e := range r.elems {
		r.elems[i].data = fn(e.key, e.a, e.b, e.data)
	}
}
