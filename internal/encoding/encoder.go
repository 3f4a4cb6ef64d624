package encoding

import (
	"fmt"
	"sort"

	pkgerrors "detlsh/pkg/errors"
)

// Encoder maps projected coordinates to region indices using one Table per
// projected space. It is read-only after construction.
type Encoder struct {
	tables     []Table
	numRegions int
}

// NewEncoder checks that every table has the same shape.
func NewEncoder(tables []Table) (*Encoder, error) {
	if len(tables) == 0 || len(tables[0]) == 0 {
		return nil, fmt.Errorf("%w: no breakpoint tables", pkgerrors.ErrInvalidConfig)
	}
	k, regions := len(tables[0]), tables[0].NumRegions()
	if regions <= 0 {
		return nil, fmt.Errorf("%w: breakpoint table has no regions", pkgerrors.ErrInvalidConfig)
	}
	for i, t := range tables {
		if len(t) != k {
			return nil, fmt.Errorf("%w: table %d covers %d dimensions, expected %d", pkgerrors.ErrDimensionMismatch, i, len(t), k)
		}
		for j, b := range t {
			if len(b) != regions+1 {
				return nil, fmt.Errorf("%w: table %d dimension %d has %d boundaries, expected %d", pkgerrors.ErrInvalidConfig, i, j, len(b), regions+1)
			}
		}
	}
	return &Encoder{tables: tables, numRegions: regions}, nil
}

func (e *Encoder) NumRegions() int { return e.numRegions }
func (e *Encoder) Spaces() int     { return len(e.tables) }
func (e *Encoder) K() int          { return len(e.tables[0]) }

// Table returns the breakpoints of a space.
func (e *Encoder) Table(space int) Table { return e.tables[space] }

// EncodeValue returns the region r with b[r] <= v < b[r+1]. Values below the
// first boundary map to 0 and values at or above the last to numRegions-1.
func (e *Encoder) EncodeValue(space, dim int, v float64) int32 {
	b := e.tables[space][dim]
	// r is the last boundary <= v; boundaries are non-decreasing so it is the
	// only region whose upper bound exceeds v
	r := sort.Search(len(b), func(i int) bool { return b[i] > v }) - 1
	switch {
	case r < 0:
		return 0
	case r >= e.numRegions:
		return int32(e.numRegions - 1)
	}
	return int32(r)
}

// EncodePoint encodes one projected point of a space.
func (e *Encoder) EncodePoint(space int, coords []int) ([]int32, error) {
	if space < 0 || space >= len(e.tables) {
		return nil, fmt.Errorf("%w: space %d not in [0, %d)", pkgerrors.ErrIndexOutOfRange, space, len(e.tables))
	}
	if len(coords) != e.K() {
		return nil, fmt.Errorf("%w: expected %d coordinates, got %d", pkgerrors.ErrDimensionMismatch, e.K(), len(coords))
	}
	code := make([]int32, len(coords))
	for j, c := range coords {
		code[j] = e.EncodeValue(space, j, float64(c))
	}
	return code, nil
}

// Encode encodes an L × n × K projected tensor into a tensor of the same shape.
func (e *Encoder) Encode(projected [][][]int) ([][][]int32, error) {
	if len(projected) != len(e.tables) {
		return nil, fmt.Errorf("%w: %d projected spaces, encoder has %d", pkgerrors.ErrDimensionMismatch, len(projected), len(e.tables))
	}
	out := make([][][]int32, len(projected))
	for i, points := range projected {
		out[i] = make([][]int32, len(points))
		for idx, coords := range points {
			code, err := e.EncodePoint(i, coords)
			if err != nil {
				return nil, fmt.Errorf("point %d: %w", idx, err)
			}
			out[i][idx] = code
		}
	}
	return out, nil
}
