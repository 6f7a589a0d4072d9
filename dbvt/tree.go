package dbvt

import (
	"broadphase/algebra"
	"broadphase/bv"
)

// Tree is a dynamic bounding volume tree over leaves of bounding-volume type
// V and user-object type B. The zero value is an empty tree.
type Tree[N algebra.Float, V bv.Volume[N, V], B any] struct {
	root *Leaf[V, B]
	size int
}

// NewLeaf creates a detached leaf ready to be inserted into a tree.
func NewLeaf[V any, B any](volume V, object B) *Leaf[V, B] {
	return &Leaf[V, B]{BV: volume, Object: object}
}

// Len returns the number of leaves currently installed in the tree.
func (t *Tree[N, V, B]) Len() int {
	return t.size
}

// Root exposes the tree's root node, or nil if the tree is empty. Intended
// for diagnostics and tests, not for traversal (use Visit).
func (t *Tree[N, V, B]) Root() *Leaf[V, B] {
	return t.root
}

// Insert adds leaf to the tree. leaf must be detached (leaf.Parent() == nil
// and it must not already be this tree's root).
//
// Descends from the root choosing, at each internal node, the child whose
// merge with leaf's BV has the smaller cost increase (ties broken toward
// the left child); at the chosen leaf position, a new internal node is
// created with leaf and the displaced leaf as children, and every ancestor's
// BV and depth are refreshed on the way back to the root.
func (t *Tree[N, V, B]) Insert(leaf *Leaf[V, B]) {
	if t.root == nil {
		t.root = leaf
		t.size++
		return
	}

	sibling := t.root
	for !sibling.IsLeaf() {
		costLeft := leaf.BV.Merged(sibling.left.BV).Cost() - sibling.left.BV.Cost()
		costRight := leaf.BV.Merged(sibling.right.BV).Cost() - sibling.right.BV.Cost()
		if costLeft <= costRight {
			sibling = sibling.left
		} else {
			sibling = sibling.right
		}
	}

	oldParent := sibling.parent
	internal := newInternal(leaf.BV.Merged(sibling.BV), sibling, leaf)
	internal.parent = oldParent

	if oldParent == nil {
		t.root = internal
	} else if oldParent.left == sibling {
		oldParent.left = internal
	} else {
		oldParent.right = internal
	}

	t.refreshAncestors(oldParent)
	t.size++
}

// Remove unlinks leaf from the tree. leaf's sibling takes its former
// parent's place, and every ancestor's BV and depth are refreshed. A no-op
// if leaf is not currently installed in this tree.
func (t *Tree[N, V, B]) Remove(leaf *Leaf[V, B]) {
	root := leaf
	for root.parent != nil {
		root = root.parent
	}
	if root != t.root {
		return // detached, or installed in another tree
	}
	if leaf.parent == nil {
		t.root = nil
		t.size--
		return
	}

	parent := leaf.parent
	sibling := parent.sibling(leaf)
	grandparent := parent.parent

	sibling.parent = grandparent
	if grandparent == nil {
		t.root = sibling
	} else if grandparent.left == parent {
		grandparent.left = sibling
	} else {
		grandparent.right = sibling
	}

	t.refreshAncestors(grandparent)
	leaf.parent = nil
	t.size--
}

func (t *Tree[N, V, B]) refreshAncestors(n *Leaf[V, B]) {
	for n != nil {
		n.BV = n.left.BV.Merged(n.right.BV)
		depth := n.left.depth
		if n.right.depth > depth {
			depth = n.right.depth
		}
		n.depth = depth + 1
		n = n.parent
	}
}

// InterferencesWithLeaf appends every leaf in the tree whose BV intersects
// query's BV to out, excluding query itself. Depth-first, left-before-right.
func (t *Tree[N, V, B]) InterferencesWithLeaf(query *Leaf[V, B], out *[]*Leaf[V, B]) {
	if t.root == nil {
		return
	}
	t.interferencesWithLeaf(t.root, query, out)
}

func (t *Tree[N, V, B]) interferencesWithLeaf(n, query *Leaf[V, B], out *[]*Leaf[V, B]) {
	if !n.BV.Intersects(query.BV) {
		return
	}
	if n.IsLeaf() {
		if n != query {
			*out = append(*out, n)
		}
		return
	}
	t.interferencesWithLeaf(n.left, query, out)
	t.interferencesWithLeaf(n.right, query, out)
}
