// Package detree implements the DE-Tree, a binary partition tree over encoded
// projected points supporting radius-bounded range queries.
package detree

import (
	"context"
	"fmt"
	"math"

	pkgerrors "detlsh/pkg/errors"
)

// Tree indexes fixed-length integer codes. Inserts must not run concurrently
// with anything else; range queries on a tree that is not being modified may
// run concurrently.
type Tree struct {
	root        node
	maxLeafSize int
	dims        int
	size        int
}

// Stats summarises the shape of a tree.
type Stats struct {
	Points   int
	Leaves   int
	Internal int
	Depth    int // longest root-to-leaf path, 0 for a lone leaf
	MaxLeaf  int // most points held by a single leaf
}

// New returns a tree whose root is a single empty leaf.
func New(maxLeafSize int) (*Tree, error) {
	if maxLeafSize <= 0 {
		return nil, fmt.Errorf("%w: max leaf size must be positive, got %d", pkgerrors.ErrInvalidConfig, maxLeafSize)
	}
	return &Tree{root: &leafNode{}, maxLeafSize: maxLeafSize}, nil
}

// Len returns the number of stored points.
func (t *Tree) Len() int { return t.size }

// Dims returns the code length fixed by the first insert.
func (t *Tree) Dims() int { return t.dims }

// MaxLeafSize returns the split threshold.
func (t *Tree) MaxLeafSize() int { return t.maxLeafSize }

// Insert routes code to a leaf and splits the leaf once it holds more than
// maxLeafSize points. The code is copied.
func (t *Tree) Insert(code []int32, payload int) error {
	if len(code) == 0 {
		return fmt.Errorf("%w: empty code", pkgerrors.ErrDimensionMismatch)
	}
	if t.dims == 0 {
		t.dims = len(code)
	} else if len(code) != t.dims {
		return fmt.Errorf("%w: expected %d, got %d", pkgerrors.ErrDimensionMismatch, t.dims, len(code))
	}

	slot := &t.root
	for {
		in, ok := (*slot).(*internalNode)
		if !ok {
			break
		}
		if float64(code[in.dim]) <= in.value {
			slot = &in.left
		} else {
			slot = &in.right
		}
	}

	leaf := (*slot).(*leafNode)
	leaf.points = append(leaf.points, entry{payload: payload, code: append([]int32(nil), code...)})
	t.size++
	if len(leaf.points) > t.maxLeafSize {
		*slot = split(leaf, t.dims)
	}
	return nil
}

// RangeQuery returns the payloads whose codes lie within radius (Euclidean)
// of q.
//
// Subtrees are pruned on the split dimension alone: the left child is visited
// when q[dim]-radius <= value and the right child when q[dim]+radius > value.
// The bound is deliberately loose and fixes the recall of the index; replacing
// it with a full-vector bound changes results.
//
// ctx is checked before every leaf scan.
func (t *Tree) RangeQuery(ctx context.Context, q []int32, radius float64) ([]int, error) {
	if t.size == 0 {
		return nil, nil
	}
	if len(q) != t.dims {
		return nil, fmt.Errorf("%w: expected %d, got %d", pkgerrors.ErrDimensionMismatch, t.dims, len(q))
	}
	var out []int
	if err := rangeQuery(ctx, t.root, q, radius, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func rangeQuery(ctx context.Context, n node, q []int32, radius float64, out *[]int) error {
	switch n := n.(type) {
	case *leafNode:
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, e := range n.points {
			if distance(q, e.code) <= radius {
				*out = append(*out, e.payload)
			}
		}
	case *internalNode:
		qv := float64(q[n.dim])
		if qv-radius <= n.value {
			if err := rangeQuery(ctx, n.left, q, radius, out); err != nil {
				return err
			}
		}
		if qv+radius > n.value {
			if err := rangeQuery(ctx, n.right, q, radius, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func distance(a, b []int32) float64 {
	var sum int64
	for i := range a {
		d := int64(a[i]) - int64(b[i])
		sum += d * d
	}
	return math.Sqrt(float64(sum))
}

// Walk visits stored points leaf by leaf, depth first, left before right,
// until fn returns false.
func (t *Tree) Walk(fn func(payload int, code []int32) bool) {
	walk(t.root, fn)
}

func walk(n node, fn func(int, []int32) bool) bool {
	switch n := n.(type) {
	case *leafNode:
		for _, e := range n.points {
			if !fn(e.payload, e.code) {
				return false
			}
		}
	case *internalNode:
		return walk(n.left, fn) && walk(n.right, fn)
	}
	return true
}

// Stats walks the whole tree.
func (t *Tree) Stats() Stats {
	var s Stats
	var visit func(n node, depth int)
	visit = func(n node, depth int) {
		if depth > s.Depth {
			s.Depth = depth
		}
		switch n := n.(type) {
		case *leafNode:
			s.Leaves++
			s.Points += len(n.points)
			if len(n.points) > s.MaxLeaf {
				s.MaxLeaf = len(n.points)
			}
		case *internalNode:
			s.Internal++
			visit(n.left, depth+1)
			visit(n.right, depth+1)
		}
	}
	visit(t.root, 0)
	return s
}
