// Package encoding turns projected integer coordinates into small region
// codes using breakpoints sampled from the projected data.
package encoding

import (
	"fmt"
	"math/rand/v2"
	"slices"

	pkgerrors "detlsh/pkg/errors"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// Table holds the region boundaries of one projected space: Table[j] has
// numRegions+1 non-decreasing entries for dimension j.
type Table [][]float64

// NumRegions returns the number of regions per dimension.
func (t Table) NumRegions() int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0]) - 1
}

// SelectBreakpoints derives a Table for one space from values, an n×k matrix
// of projected coordinates. For each dimension it samples sampleSize rows
// without replacement, sorts them and takes evenly spaced order statistics.
// Boundary 0 is the sample minimum and boundary numRegions the sample maximum.
func SelectBreakpoints(values [][]int, k, sampleSize, numRegions int, src rand.Source) (Table, error) {
	switch {
	case k <= 0:
		return nil, fmt.Errorf("%w: K must be positive, got %d", pkgerrors.ErrInvalidConfig, k)
	case sampleSize <= 0:
		return nil, fmt.Errorf("%w: sample size must be positive, got %d", pkgerrors.ErrInvalidConfig, sampleSize)
	case numRegions <= 0:
		return nil, fmt.Errorf("%w: number of regions must be positive, got %d", pkgerrors.ErrInvalidConfig, numRegions)
	case len(values) == 0:
		return nil, pkgerrors.ErrEmptyDataset
	case sampleSize > len(values):
		return nil, fmt.Errorf("%w: sample size %d, only %d values", pkgerrors.ErrInsufficientSample, sampleSize, len(values))
	}
	for i, row := range values {
		if len(row) != k {
			return nil, fmt.Errorf("%w: row %d has %d coordinates, expected %d", pkgerrors.ErrDimensionMismatch, i, len(row), k)
		}
	}

	table := make(Table, k)
	idx := make([]int, sampleSize)
	sample := make([]int, sampleSize)
	for j := 0; j < k; j++ {
		sampleuv.WithoutReplacement(idx, len(values), src)
		for s, row := range idx {
			sample[s] = values[row][j]
		}
		slices.Sort(sample)

		bounds := make([]float64, numRegions+1)
		for z := 1; z < numRegions; z++ {
			bounds[z] = float64(sample[z*sampleSize/numRegions])
		}
		bounds[0] = float64(sample[0])
		bounds[numRegions] = float64(sample[sampleSize-1])
		table[j] = bounds
	}
	return table, nil
}
