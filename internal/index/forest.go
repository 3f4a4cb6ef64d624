package index

import (
	"context"
	"fmt"

	"detlsh/internal/detree"
	pkgerrors "detlsh/pkg/errors"

	"golang.org/x/sync/errgroup"
)

// Forest owns one DE-Tree per projected space. Payloads are dataset row
// numbers shared by all trees.
type Forest struct {
	trees []*detree.Tree
}

// NewForest creates spaces empty trees.
func NewForest(spaces, maxLeafSize int) (*Forest, error) {
	if spaces <= 0 {
		return nil, fmt.Errorf("%w: forest needs at least one space, got %d", pkgerrors.ErrInvalidConfig, spaces)
	}
	trees := make([]*detree.Tree, spaces)
	for i := range trees {
		t, err := detree.New(maxLeafSize)
		if err != nil {
			return nil, err
		}
		trees[i] = t
	}
	return &Forest{trees: trees}, nil
}

// Spaces returns the number of trees.
func (f *Forest) Spaces() int { return len(f.trees) }

// Len returns the number of points per tree.
func (f *Forest) Len() int { return f.trees[0].Len() }

// Tree returns the tree of one space.
func (f *Forest) Tree(space int) *detree.Tree { return f.trees[space] }

// Stats returns the shape of every tree.
func (f *Forest) Stats() []detree.Stats {
	out := make([]detree.Stats, len(f.trees))
	for i, t := range f.trees {
		out[i] = t.Stats()
	}
	return out
}

// Build bulk-inserts an L × n × K code tensor. Row idx gets payload
// Len()+idx in every tree. Each tree is filled by its own goroutine.
func (f *Forest) Build(ctx context.Context, codes [][][]int32) error {
	if len(codes) != len(f.trees) {
		return fmt.Errorf("%w: %d encoded spaces for %d trees", pkgerrors.ErrDimensionMismatch, len(codes), len(f.trees))
	}
	n := len(codes[0])
	for i := range codes {
		if len(codes[i]) != n {
			return fmt.Errorf("%w: space %d has %d points, expected %d", pkgerrors.ErrDimensionMismatch, i, len(codes[i]), n)
		}
	}
	if n == 0 {
		return pkgerrors.ErrEmptyDataset
	}

	base := f.Len()
	g, gctx := errgroup.WithContext(ctx)
	for i, tree := range f.trees {
		g.Go(func() error {
			for idx, code := range codes[i] {
				if idx%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if err := tree.Insert(code, base+idx); err != nil {
					return fmt.Errorf("space %d point %d: %w", i, idx, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// Insert adds one point, given its code in every space.
func (f *Forest) Insert(codes [][]int32, payload int) error {
	if len(codes) != len(f.trees) {
		return fmt.Errorf("%w: %d encoded spaces for %d trees", pkgerrors.ErrDimensionMismatch, len(codes), len(f.trees))
	}
	for i, tree := range f.trees {
		if err := tree.Insert(codes[i], payload); err != nil {
			return fmt.Errorf("space %d: %w", i, err)
		}
	}
	return nil
}

// Query runs a range query in every space and unions the payloads, keeping
// the order of first appearance with spaces taken in order.
func (f *Forest) Query(ctx context.Context, codes [][]int32, radius float64) ([]int, error) {
	if len(codes) != len(f.trees) {
		return nil, fmt.Errorf("%w: %d encoded spaces for %d trees", pkgerrors.ErrDimensionMismatch, len(codes), len(f.trees))
	}
	perSpace := make([][]int, len(f.trees))
	g, gctx := errgroup.WithContext(ctx)
	for i, tree := range f.trees {
		g.Go(func() error {
			got, err := tree.RangeQuery(gctx, codes[i], radius)
			if err != nil {
				return err
			}
			perSpace[i] = got
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[int]struct{})
	var out []int
	for _, got := range perSpace {
		for _, p := range got {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out, nil
}
