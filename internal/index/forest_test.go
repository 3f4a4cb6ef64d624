package index

import (
	"context"
	"testing"

	pkgerrors "detlsh/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two spaces, K=1, the second space mirrors the first
func mirroredCodes() [][][]int32 {
	return [][][]int32{
		{{0}, {5}, {10}},
		{{10}, {5}, {0}},
	}
}

func TestForestBuildAndQuery(t *testing.T) {
	ctx := context.Background()
	f, err := NewForest(2, 8)
	require.NoError(t, err)
	require.NoError(t, f.Build(ctx, mirroredCodes()))
	assert.Equal(t, 2, f.Spaces())
	assert.Equal(t, 3, f.Len())

	got, err := f.Query(ctx, [][]int32{{0}, {0}}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, got)

	// space 0 yields 0,1,2 and space 1 yields 1,2 again
	got, err = f.Query(ctx, [][]int32{{5}, {0}}, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got)

	got, err = f.Query(ctx, [][]int32{{100}, {100}}, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestForestInsertContinuesPayloads(t *testing.T) {
	ctx := context.Background()
	f, err := NewForest(2, 8)
	require.NoError(t, err)
	require.NoError(t, f.Build(ctx, mirroredCodes()))
	require.NoError(t, f.Insert([][]int32{{7}, {7}}, 3))
	assert.Equal(t, 4, f.Len())

	got, err := f.Query(ctx, [][]int32{{7}, {7}}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, got)

	// a second bulk load continues after the existing payloads
	require.NoError(t, f.Build(ctx, [][][]int32{{{20}}, {{20}}}))
	got, err = f.Query(ctx, [][]int32{{20}, {20}}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, got)
}

func TestForestErrors(t *testing.T) {
	ctx := context.Background()
	_, err := NewForest(0, 8)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)
	_, err = NewForest(2, 0)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)

	f, err := NewForest(2, 8)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Build(ctx, mirroredCodes()[:1]), pkgerrors.ErrDimensionMismatch)
	assert.ErrorIs(t, f.Build(ctx, [][][]int32{{{1}}, {}}), pkgerrors.ErrDimensionMismatch)
	assert.ErrorIs(t, f.Build(ctx, [][][]int32{{}, {}}), pkgerrors.ErrEmptyDataset)
	assert.ErrorIs(t, f.Insert([][]int32{{1}}, 0), pkgerrors.ErrDimensionMismatch)

	require.NoError(t, f.Build(ctx, mirroredCodes()))
	_, err = f.Query(ctx, [][]int32{{1}}, 0)
	assert.ErrorIs(t, err, pkgerrors.ErrDimensionMismatch)
	_, err = f.Query(ctx, [][]int32{{1, 2}, {1}}, 0)
	assert.ErrorIs(t, err, pkgerrors.ErrDimensionMismatch)
}

func TestForestQueryCancelled(t *testing.T) {
	f, err := NewForest(2, 8)
	require.NoError(t, err)
	require.NoError(t, f.Build(context.Background(), mirroredCodes()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Query(ctx, [][]int32{{0}, {0}}, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, f.Build(ctx, mirroredCodes()), context.Canceled)
}

func TestForestStats(t *testing.T) {
	f, err := NewForest(3, 1)
	require.NoError(t, err)
	require.NoError(t, f.Build(context.Background(), [][][]int32{
		{{0}, {1}}, {{0}, {1}}, {{0}, {1}},
	}))
	stats := f.Stats()
	require.Len(t, stats, 3)
	for _, s := range stats {
		assert.Equal(t, 2, s.Points)
		assert.Equal(t, 2, s.Leaves)
	}
}
