package encoding

import (
	"math/rand/v2"
	"testing"

	pkgerrors "detlsh/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// column builds an n×1 matrix holding vals
func column(vals ...int) [][]int {
	out := make([][]int, len(vals))
	for i, v := range vals {
		out[i] = []int{v}
	}
	return out
}

func randomValues(n, k int, seed uint64) [][]int {
	r := rand.New(rand.NewPCG(seed, 0))
	out := make([][]int, n)
	for i := range out {
		out[i] = make([]int, k)
		for j := range out[i] {
			out[i][j] = r.IntN(200) - 100
		}
	}
	return out
}

func TestSelectBreakpointsFullSample(t *testing.T) {
	// sampling every value makes the table independent of the source
	values := column(9, 3, 0, 7, 1, 5, 8, 2, 6, 4)
	table, err := SelectBreakpoints(values, 1, 10, 4, rand.NewPCG(1, 1))
	require.NoError(t, err)
	assert.Equal(t, Table{{0, 2, 5, 7, 9}}, table)
	assert.Equal(t, 4, table.NumRegions())
}

func TestSelectBreakpointsSingleRegion(t *testing.T) {
	table, err := SelectBreakpoints(column(4, -2, 10), 1, 3, 1, rand.NewPCG(1, 1))
	require.NoError(t, err)
	assert.Equal(t, Table{{-2, 10}}, table)
}

func TestSelectBreakpointsMonotonic(t *testing.T) {
	values := randomValues(500, 6, 3)
	table, err := SelectBreakpoints(values, 6, 64, 8, rand.NewPCG(7, 7))
	require.NoError(t, err)
	require.Len(t, table, 6)
	for j, b := range table {
		require.Len(t, b, 9)
		for r := 0; r+1 < len(b); r++ {
			assert.LessOrEqual(t, b[r], b[r+1], "dimension %d region %d", j, r)
		}
	}
}

func TestSelectBreakpointsReproducible(t *testing.T) {
	values := randomValues(300, 4, 9)
	a, err := SelectBreakpoints(values, 4, 20, 5, rand.NewPCG(42, 1))
	require.NoError(t, err)
	b, err := SelectBreakpoints(values, 4, 20, 5, rand.NewPCG(42, 1))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSelectBreakpointsBoundsComeFromSample(t *testing.T) {
	values := randomValues(200, 2, 5)
	table, err := SelectBreakpoints(values, 2, 10, 4, rand.NewPCG(3, 3))
	require.NoError(t, err)

	for j := range table {
		present := make(map[float64]bool)
		for _, row := range values {
			present[float64(row[j])] = true
		}
		for _, b := range table[j] {
			assert.True(t, present[b], "boundary %v is not an observed value", b)
		}
	}
}

func TestSelectBreakpointsErrors(t *testing.T) {
	src := rand.NewPCG(1, 1)
	_, err := SelectBreakpoints(nil, 1, 1, 2, src)
	assert.ErrorIs(t, err, pkgerrors.ErrEmptyDataset)

	_, err = SelectBreakpoints(column(1, 2, 3), 1, 4, 2, src)
	assert.ErrorIs(t, err, pkgerrors.ErrInsufficientSample)

	_, err = SelectBreakpoints(column(1, 2, 3), 1, 0, 2, src)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)

	_, err = SelectBreakpoints(column(1, 2, 3), 1, 2, 0, src)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)

	_, err = SelectBreakpoints(column(1, 2, 3), 2, 2, 2, src)
	assert.ErrorIs(t, err, pkgerrors.ErrDimensionMismatch)
}

func TestEncodeValueClamping(t *testing.T) {
	enc, err := NewEncoder([]Table{{{0, 2, 5, 7, 9}}})
	require.NoError(t, err)
	assert.Equal(t, 4, enc.NumRegions())

	tests := []struct {
		v    float64
		want int32
	}{
		{-3, 0}, // below the sample minimum
		{0, 0},
		{1, 0},
		{2, 1},
		{4.9, 1},
		{5, 2},
		{7, 3},
		{8.5, 3},
		{9, 3},   // at the sample maximum
		{100, 3}, // above it
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, enc.EncodeValue(0, 0, tt.v), "value %v", tt.v)
	}
}

func TestEncodeValueRepeatedBoundaries(t *testing.T) {
	enc, err := NewEncoder([]Table{{{0, 0, 0, 5, 5}}})
	require.NoError(t, err)

	assert.Equal(t, int32(0), enc.EncodeValue(0, 0, -1))
	assert.Equal(t, int32(2), enc.EncodeValue(0, 0, 0))
	assert.Equal(t, int32(2), enc.EncodeValue(0, 0, 4))
	assert.Equal(t, int32(3), enc.EncodeValue(0, 0, 5))
	assert.Equal(t, int32(3), enc.EncodeValue(0, 0, 6))
}

func TestEncodeCoverage(t *testing.T) {
	values := randomValues(400, 3, 11)
	table, err := SelectBreakpoints(values, 3, 50, 8, rand.NewPCG(5, 5))
	require.NoError(t, err)
	enc, err := NewEncoder([]Table{table})
	require.NoError(t, err)

	extra := append(values, []int{-1000, 1000, 0})
	codes, err := enc.Encode([][][]int{extra})
	require.NoError(t, err)
	require.Len(t, codes[0], len(extra))
	for idx, code := range codes[0] {
		for j, r := range code {
			assert.GreaterOrEqual(t, r, int32(0))
			assert.Less(t, r, int32(8))
			if float64(extra[idx][j]) < table[j][0] {
				assert.Equal(t, int32(0), r)
			}
			if float64(extra[idx][j]) >= table[j][8] {
				assert.Equal(t, int32(7), r)
			}
		}
	}
}

func TestEncodePoint(t *testing.T) {
	enc, err := NewEncoder([]Table{
		{{0, 10, 20}, {-5, 0, 5}},
		{{0, 1, 2}, {0, 1, 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, enc.Spaces())
	assert.Equal(t, 2, enc.K())

	code, err := enc.EncodePoint(0, []int{15, -7})
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 0}, code)

	code, err = enc.EncodePoint(1, []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 1}, code)

	_, err = enc.EncodePoint(2, []int{1, 2})
	assert.ErrorIs(t, err, pkgerrors.ErrIndexOutOfRange)
	_, err = enc.EncodePoint(0, []int{1})
	assert.ErrorIs(t, err, pkgerrors.ErrDimensionMismatch)
}

func TestNewEncoderValidation(t *testing.T) {
	_, err := NewEncoder(nil)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)

	_, err = NewEncoder([]Table{{{1}}})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)

	_, err = NewEncoder([]Table{{{0, 1}}, {{0, 1}, {0, 1}}})
	assert.ErrorIs(t, err, pkgerrors.ErrDimensionMismatch)

	_, err = NewEncoder([]Table{{{0, 1}, {0, 1, 2}}})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)

	enc, err := NewEncoder([]Table{{{0, 1}}})
	require.NoError(t, err)
	_, err = enc.Encode([][][]int{{{0}}, {{0}}})
	assert.ErrorIs(t, err, pkgerrors.ErrDimensionMismatch)
}
