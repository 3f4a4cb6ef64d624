package detree

import (
	"context"
	"math/rand/v2"
	"slices"
	"testing"

	pkgerrors "detlsh/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafPayloads(n node) []int {
	leaf := n.(*leafNode)
	out := make([]int, len(leaf.points))
	for i, e := range leaf.points {
		out[i] = e.payload
	}
	return out
}

// distinctCodes returns n different codes of length k with values in [0, regions)
func distinctCodes(n, k, regions int, seed uint64) [][]int32 {
	r := rand.New(rand.NewPCG(seed, seed))
	seen := make(map[string]bool)
	var out [][]int32
	for len(out) < n {
		code := make([]int32, k)
		key := make([]byte, k)
		for j := range code {
			code[j] = int32(r.IntN(regions))
			key[j] = byte(code[j])
		}
		if seen[string(key)] {
			continue
		}
		seen[string(key)] = true
		out = append(out, code)
	}
	return out
}

func TestNewTree(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)

	tree, err := New(4)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, Stats{Leaves: 1}, tree.Stats())

	got, err := tree.RangeQuery(context.Background(), []int32{1, 2}, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSplitScenario(t *testing.T) {
	// projected coordinates [0, 1, 2] of the dataset [0.0, 1.5, 2.5]
	tree, err := New(2)
	require.NoError(t, err)
	require.NoError(t, tree.Insert([]int32{0}, 0))
	require.NoError(t, tree.Insert([]int32{1}, 1))
	_, isLeaf := tree.root.(*leafNode)
	require.True(t, isLeaf, "no split before the leaf overflows")

	require.NoError(t, tree.Insert([]int32{2}, 2))
	in, ok := tree.root.(*internalNode)
	require.True(t, ok)
	assert.Equal(t, 0, in.dim)
	assert.Equal(t, 1.0, in.value)
	assert.Equal(t, []int{0, 1}, leafPayloads(in.left))
	assert.Equal(t, []int{2}, leafPayloads(in.right))

	got, err := tree.RangeQuery(context.Background(), []int32{1}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
}

func TestSplitPicksLargestVariance(t *testing.T) {
	tree, err := New(2)
	require.NoError(t, err)
	require.NoError(t, tree.Insert([]int32{0, 0}, 0))
	require.NoError(t, tree.Insert([]int32{0, 5}, 1))
	require.NoError(t, tree.Insert([]int32{1, 10}, 2))

	in := tree.root.(*internalNode)
	assert.Equal(t, 1, in.dim)
	assert.Equal(t, 5.0, in.value)
	assert.Equal(t, []int{0, 1}, leafPayloads(in.left))
	assert.Equal(t, []int{2}, leafPayloads(in.right))
}

func TestSplitTieGoesToLowestDimension(t *testing.T) {
	tree, err := New(2)
	require.NoError(t, err)
	require.NoError(t, tree.Insert([]int32{0, 2}, 0))
	require.NoError(t, tree.Insert([]int32{1, 1}, 1))
	require.NoError(t, tree.Insert([]int32{2, 0}, 2))

	in := tree.root.(*internalNode)
	assert.Equal(t, 0, in.dim)
	assert.Equal(t, 1.0, in.value)
}

func TestSplitAllEqualLeavesRightEmpty(t *testing.T) {
	tree, err := New(2)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, tree.Insert([]int32{3, 3}, i))
	}

	in := tree.root.(*internalNode)
	assert.Equal(t, 0, in.dim)
	assert.Equal(t, 3.0, in.value)
	assert.Equal(t, []int{0, 1, 2}, leafPayloads(in.left))
	assert.Empty(t, leafPayloads(in.right))

	got, err := tree.RangeQuery(context.Background(), []int32{3, 3}, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2}, got)
}

// Identical codes cannot be separated: every overflow splits at the shared
// value, sends all points left and leaves an empty right leaf. The leaf then
// grows past maxLeafSize and the chain deepens by one per insert.
func TestDuplicateCodesBuildChain(t *testing.T) {
	const n, maxLeaf = 50, 4
	tree, err := New(maxLeaf)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, tree.Insert([]int32{7, 7}, i))
	}

	stats := tree.Stats()
	assert.Equal(t, Stats{
		Points:   n,
		Leaves:   n - maxLeaf + 1,
		Internal: n - maxLeaf,
		Depth:    n - maxLeaf,
		MaxLeaf:  n,
	}, stats)

	got, err := tree.RangeQuery(context.Background(), []int32{7, 7}, 0)
	require.NoError(t, err)
	assert.Len(t, got, n)
}

func TestLeafSizeBoundAndConservation(t *testing.T) {
	const n, maxLeaf = 600, 5
	codes := distinctCodes(n, 4, 8, 1)
	tree, err := New(maxLeaf)
	require.NoError(t, err)
	for i, c := range codes {
		require.NoError(t, tree.Insert(c, i))
		assert.LessOrEqual(t, tree.Stats().MaxLeaf, maxLeaf)
	}

	stats := tree.Stats()
	assert.Equal(t, n, stats.Points)
	assert.Equal(t, n, tree.Len())
	assert.Equal(t, stats.Internal+1, stats.Leaves)

	var seen []int
	tree.Walk(func(payload int, code []int32) bool {
		assert.Equal(t, codes[payload], code)
		seen = append(seen, payload)
		return true
	})
	require.Len(t, seen, n)
	slices.Sort(seen)
	for i, p := range seen {
		assert.Equal(t, i, p)
	}
}

func TestWalkStopsEarly(t *testing.T) {
	tree, err := New(1)
	require.NoError(t, err)
	for i, c := range distinctCodes(20, 2, 10, 4) {
		require.NoError(t, tree.Insert(c, i))
	}
	count := 0
	tree.Walk(func(int, []int32) bool {
		count++
		return count < 5
	})
	assert.Equal(t, 5, count)
}

func TestRangeQuerySelfMatch(t *testing.T) {
	codes := distinctCodes(300, 3, 8, 2)
	tree, err := New(4)
	require.NoError(t, err)
	for i, c := range codes {
		require.NoError(t, tree.Insert(c, i))
	}
	for i, c := range codes {
		got, err := tree.RangeQuery(context.Background(), c, 0)
		require.NoError(t, err)
		assert.Equal(t, []int{i}, got)
	}
}

// The pruning test looks at the split dimension only. Any point within the
// radius is also within it on that dimension, so the traversal never loses a
// point and the result equals a linear scan.
func TestRangeQueryMatchesLinearScan(t *testing.T) {
	codes := distinctCodes(400, 4, 8, 3)
	tree, err := New(6)
	require.NoError(t, err)
	for i, c := range codes {
		require.NoError(t, tree.Insert(c, i))
	}

	queries := distinctCodes(25, 4, 8, 99)
	for _, radius := range []float64{0, 1, 1.5, 2.5, 4} {
		for _, q := range queries {
			var want []int
			for i, c := range codes {
				if distance(q, c) <= radius {
					want = append(want, i)
				}
			}
			got, err := tree.RangeQuery(context.Background(), q, radius)
			require.NoError(t, err)
			assert.ElementsMatch(t, want, got, "radius %v query %v", radius, q)
		}
	}
}

func TestRangeQueryNegativeRadius(t *testing.T) {
	tree, err := New(2)
	require.NoError(t, err)
	require.NoError(t, tree.Insert([]int32{1, 1}, 0))
	got, err := tree.RangeQuery(context.Background(), []int32{1, 1}, -1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRangeQueryCancelled(t *testing.T) {
	tree, err := New(2)
	require.NoError(t, err)
	for i, c := range distinctCodes(50, 2, 16, 5) {
		require.NoError(t, tree.Insert(c, i))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := tree.RangeQuery(ctx, []int32{0, 0}, 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

func TestDimensionMismatch(t *testing.T) {
	tree, err := New(2)
	require.NoError(t, err)
	assert.ErrorIs(t, tree.Insert(nil, 0), pkgerrors.ErrDimensionMismatch)
	require.NoError(t, tree.Insert([]int32{1, 2}, 0))
	assert.Equal(t, 2, tree.Dims())
	assert.ErrorIs(t, tree.Insert([]int32{1}, 1), pkgerrors.ErrDimensionMismatch)
	assert.Equal(t, 1, tree.Len())

	_, err = tree.RangeQuery(context.Background(), []int32{1, 2, 3}, 1)
	assert.ErrorIs(t, err, pkgerrors.ErrDimensionMismatch)
}

func TestInsertCopiesCode(t *testing.T) {
	tree, err := New(2)
	require.NoError(t, err)
	code := []int32{4, 4}
	require.NoError(t, tree.Insert(code, 7))
	code[0] = 0

	got, err := tree.RangeQuery(context.Background(), []int32{4, 4}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, got)
}
