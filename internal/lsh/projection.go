// Package lsh implements the p-stable random projection family shared by the
// DE-Tree index and the plain bucket index.
package lsh

import (
	"fmt"
	"math"
	"math/rand/v2"

	pkgerrors "detlsh/pkg/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Function is one hash h(x) = floor((A·x + B) / w).
type Function struct {
	A []float64
	B float64
}

// Family owns L sets of K projection functions. It is immutable after
// construction and safe for concurrent use.
type Family struct {
	k, l, dim   int
	bucketWidth float64
	funcs       [][]Function // [space][k]
}

// NewFamily draws L*K functions from a PCG source seeded with seed. Weights
// are standard normal, offsets uniform in [0, bucketWidth).
func NewFamily(k, l, dim int, bucketWidth float64, seed uint64) (*Family, error) {
	if err := validate(k, l, dim, bucketWidth); err != nil {
		return nil, err
	}
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	offset := distuv.Uniform{Min: 0, Max: bucketWidth, Src: src}

	funcs := make([][]Function, l)
	for i := range funcs {
		funcs[i] = make([]Function, k)
		for j := range funcs[i] {
			a := make([]float64, dim)
			for x := range a {
				a[x] = normal.Rand()
			}
			funcs[i][j] = Function{A: a, B: offset.Rand()}
		}
	}
	return &Family{k: k, l: l, dim: dim, bucketWidth: bucketWidth, funcs: funcs}, nil
}

// NewFamilyFromFunctions wraps fixed functions, funcs[space][k]. Every space
// must have the same number of functions and every weight vector the same length.
func NewFamilyFromFunctions(bucketWidth float64, funcs [][]Function) (*Family, error) {
	if len(funcs) == 0 || len(funcs[0]) == 0 || len(funcs[0][0].A) == 0 {
		return nil, fmt.Errorf("%w: empty projection family", pkgerrors.ErrInvalidConfig)
	}
	k, dim := len(funcs[0]), len(funcs[0][0].A)
	if err := validate(k, len(funcs), dim, bucketWidth); err != nil {
		return nil, err
	}
	cp := make([][]Function, len(funcs))
	for i, space := range funcs {
		if len(space) != k {
			return nil, fmt.Errorf("%w: space %d has %d functions, want %d", pkgerrors.ErrInvalidConfig, i, len(space), k)
		}
		cp[i] = make([]Function, k)
		for j, f := range space {
			if len(f.A) != dim {
				return nil, fmt.Errorf("%w: function %d/%d has %d weights, want %d", pkgerrors.ErrDimensionMismatch, i, j, len(f.A), dim)
			}
			cp[i][j] = Function{A: append([]float64(nil), f.A...), B: f.B}
		}
	}
	return &Family{k: k, l: len(funcs), dim: dim, bucketWidth: bucketWidth, funcs: cp}, nil
}

func validate(k, l, dim int, bucketWidth float64) error {
	switch {
	case k <= 0:
		return fmt.Errorf("%w: K must be positive, got %d", pkgerrors.ErrInvalidConfig, k)
	case l <= 0:
		return fmt.Errorf("%w: L must be positive, got %d", pkgerrors.ErrInvalidConfig, l)
	case dim <= 0:
		return fmt.Errorf("%w: dimension must be positive, got %d", pkgerrors.ErrInvalidConfig, dim)
	case !(bucketWidth > 0):
		return fmt.Errorf("%w: bucket width must be positive, got %g", pkgerrors.ErrInvalidConfig, bucketWidth)
	}
	return nil
}

func (f *Family) K() int               { return f.k }
func (f *Family) L() int               { return f.l }
func (f *Family) Dim() int             { return f.dim }
func (f *Family) BucketWidth() float64 { return f.bucketWidth }

// Function returns the j-th function of a space. The weights are shared and
// must not be modified.
func (f *Family) Function(space, j int) Function {
	return f.funcs[space][j]
}

// Project maps v into the given projected space.
func (f *Family) Project(v []float32, space int) ([]int, error) {
	if len(v) != f.dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", pkgerrors.ErrDimensionMismatch, f.dim, len(v))
	}
	if space < 0 || space >= f.l {
		return nil, fmt.Errorf("%w: space %d not in [0, %d)", pkgerrors.ErrIndexOutOfRange, space, f.l)
	}
	return f.project(widen(v), space), nil
}

// ProjectPoint maps v into every space, returning L K-tuples.
func (f *Family) ProjectPoint(v []float32) ([][]int, error) {
	if len(v) != f.dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", pkgerrors.ErrDimensionMismatch, f.dim, len(v))
	}
	x := widen(v)
	out := make([][]int, f.l)
	for i := range out {
		out[i] = f.project(x, i)
	}
	return out, nil
}

// ProjectAll projects a dataset into an L × n × K tensor.
func (f *Family) ProjectAll(dataset [][]float32) ([][][]int, error) {
	out := make([][][]int, f.l)
	for i := range out {
		out[i] = make([][]int, len(dataset))
	}
	for idx, v := range dataset {
		if len(v) != f.dim {
			return nil, fmt.Errorf("%w: vector %d has %d components, expected %d", pkgerrors.ErrDimensionMismatch, idx, len(v), f.dim)
		}
		x := widen(v)
		for i := 0; i < f.l; i++ {
			out[i][idx] = f.project(x, i)
		}
	}
	return out, nil
}

func (f *Family) project(x []float64, space int) []int {
	coords := make([]int, f.k)
	for j, fn := range f.funcs[space] {
		coords[j] = int(math.Floor((floats.Dot(fn.A, x) + fn.B) / f.bucketWidth))
	}
	return coords
}

func widen(v []float32) []float64 {
	x := make([]float64, len(v))
	for i, c := range v {
		x[i] = float64(c)
	}
	return x
}
