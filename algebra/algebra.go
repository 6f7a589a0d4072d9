// Package algebra provides the minimal scalar/point/vector/isometry capability
// set the broad phase and its bounding volumes are built on. Dimension is not
// baked into the type system: Point and Vector are slice-backed and their
// dimension is simply their length, checked at the boundary of every
// operation that combines two of them.
package algebra

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Float is the scalar constraint consumed throughout this module.
type Float = constraints.Float

// Vector is a free vector in dimension len(v). Rotations act on vectors.
type Vector[N Float] []N

// Point is a position in dimension len(p). Translations act on points.
type Point[N Float] []N

// Dim returns the dimension of v.
func (v Vector[N]) Dim() int { return len(v) }

// Dim returns the dimension of p.
func (p Point[N]) Dim() int { return len(p) }

func requireSameDim(dA, dB int) {
	if dA != dB {
		panic(fmt.Sprintf("algebra: dimension mismatch (%d vs %d)", dA, dB))
	}
}

// Clone returns an independent copy of v.
func (v Vector[N]) Clone() Vector[N] {
	out := make(Vector[N], len(v))
	copy(out, v)
	return out
}

// Clone returns an independent copy of p.
func (p Point[N]) Clone() Point[N] {
	out := make(Point[N], len(p))
	copy(out, p)
	return out
}

// Add returns v+o.
func (v Vector[N]) Add(o Vector[N]) Vector[N] {
	requireSameDim(len(v), len(o))
	out := make(Vector[N], len(v))
	for i := range v {
		out[i] = v[i] + o[i]
	}
	return out
}

// Sub returns v-o.
func (v Vector[N]) Sub(o Vector[N]) Vector[N] {
	requireSameDim(len(v), len(o))
	out := make(Vector[N], len(v))
	for i := range v {
		out[i] = v[i] - o[i]
	}
	return out
}

// Scale returns v scaled by k.
func (v Vector[N]) Scale(k N) Vector[N] {
	out := make(Vector[N], len(v))
	for i := range v {
		out[i] = v[i] * k
	}
	return out
}

// Abs returns a vector with every component's absolute value.
func (v Vector[N]) Abs() Vector[N] {
	out := make(Vector[N], len(v))
	for i, c := range v {
		if c < 0 {
			out[i] = -c
		} else {
			out[i] = c
		}
	}
	return out
}

// Dot returns the dot product of v and o.
func (v Vector[N]) Dot(o Vector[N]) N {
	requireSameDim(len(v), len(o))
	var sum N
	for i := range v {
		sum += v[i] * o[i]
	}
	return sum
}

// Translate returns p translated by delta.
func (p Point[N]) Translate(delta Vector[N]) Point[N] {
	requireSameDim(len(p), len(delta))
	out := make(Point[N], len(p))
	for i := range p {
		out[i] = p[i] + delta[i]
	}
	return out
}

// Sub returns the displacement vector from o to p (p-o).
func (p Point[N]) Sub(o Point[N]) Vector[N] {
	requireSameDim(len(p), len(o))
	out := make(Vector[N], len(p))
	for i := range p {
		out[i] = p[i] - o[i]
	}
	return out
}

// DistSq returns the squared distance between p and o.
func (p Point[N]) DistSq(o Point[N]) N {
	d := p.Sub(o)
	return d.Dot(d)
}

// Zero returns the zero point of dimension d.
func Zero[N Float](d int) Point[N] {
	return make(Point[N], d)
}

// Isometry is a rigid transform: a rotation (dense, row-major, dim x dim)
// followed by a translation.
type Isometry[N Float] struct {
	Translation Point[N]
	Rotation    [][]N // Rotation[row][col]; must be dim x dim (see Identity), nil panics on use.
}

// Identity returns the identity isometry of dimension d.
func Identity[N Float](d int) Isometry[N] {
	rot := make([][]N, d)
	for i := range rot {
		rot[i] = make([]N, d)
		rot[i][i] = 1
	}
	return Isometry[N]{Translation: Zero[N](d), Rotation: rot}
}

func (m Isometry[N]) dim() int { return len(m.Translation) }

func (m Isometry[N]) requireRotationDim(v int) {
	if len(m.Rotation) != m.dim() || v != m.dim() {
		panic(fmt.Sprintf("algebra: isometry dimension mismatch (rotation %dx%d, translation %d, operand %d)",
			len(m.Rotation), m.dim(), m.dim(), v))
	}
}

func (m Isometry[N]) rotate(v Vector[N]) Vector[N] {
	m.requireRotationDim(len(v))
	out := make(Vector[N], m.dim())
	for row := range m.Rotation {
		var sum N
		for col, c := range m.Rotation[row] {
			sum += c * v[col]
		}
		out[row] = sum
	}
	return out
}

// TransformVector rotates v (no translation).
func (m Isometry[N]) TransformVector(v Vector[N]) Vector[N] {
	return m.rotate(v)
}

// TransformPoint rotates then translates p.
func (m Isometry[N]) TransformPoint(p Point[N]) Point[N] {
	requireSameDim(len(p), m.dim())
	rotated := m.rotate(Vector[N](p))
	return Point[N](rotated).Translate(m.Translation)
}

// AbsRotate applies the component-wise absolute value of the rotation matrix
// to v. Required for computing a cuboid's AABB under an arbitrary rotation:
// aabb(Cuboid(h), M) = [M.Translation - |R|h, M.Translation + |R|h].
func (m Isometry[N]) AbsRotate(v Vector[N]) Vector[N] {
	m.requireRotationDim(len(v))
	out := make(Vector[N], m.dim())
	for row := range m.Rotation {
		var sum N
		for col, c := range m.Rotation[row] {
			if c < 0 {
				c = -c
			}
			sum += c * v[col]
		}
		out[row] = sum
	}
	return out
}
