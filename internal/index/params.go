package index

import (
	"encoding/json"
	"fmt"
	"math"

	pkgerrors "detlsh/pkg/errors"
)

// detParams are the construction parameters of the det and lsh indexes.
type detParams struct {
	K           int
	L           int
	BucketWidth float64
	MaxLeafSize int
	SampleSize  int
	NumRegions  int
	Seed        uint64
	Radius      float64
}

func parseDETParams(params map[string]interface{}) (detParams, error) {
	p := detParams{
		K:           DEFAULT_K,
		L:           DEFAULT_L,
		BucketWidth: DEFAULT_BUCKET_WIDTH,
		MaxLeafSize: DEFAULT_MAX_LEAF_SIZE,
		SampleSize:  DEFAULT_SAMPLE_SIZE,
		NumRegions:  DEFAULT_NUM_REGIONS,
		Seed:        DEFAULT_SEED,
		Radius:      DEFAULT_RADIUS,
	}
	ints := map[string]*int{
		ParamK:           &p.K,
		ParamL:           &p.L,
		ParamMaxLeafSize: &p.MaxLeafSize,
		ParamSampleSize:  &p.SampleSize,
		ParamNumRegions:  &p.NumRegions,
	}
	for key, dst := range ints {
		if v, ok := params[key]; ok {
			f, err := toFloat(key, v)
			if err != nil {
				return p, err
			}
			if f != math.Trunc(f) {
				return p, fmt.Errorf("%w: %s must be an integer, got %v", pkgerrors.ErrInvalidConfig, key, v)
			}
			*dst = int(f)
		}
	}
	floatParams := map[string]*float64{
		ParamBucketWidth: &p.BucketWidth,
		ParamRadius:      &p.Radius,
	}
	for key, dst := range floatParams {
		if v, ok := params[key]; ok {
			f, err := toFloat(key, v)
			if err != nil {
				return p, err
			}
			*dst = f
		}
	}
	if v, ok := params[ParamSeed]; ok {
		switch s := v.(type) {
		case uint64:
			p.Seed = s
		default:
			f, err := toFloat(ParamSeed, v)
			if err != nil {
				return p, err
			}
			if f < 0 || f != math.Trunc(f) {
				return p, fmt.Errorf("%w: seed must be a non-negative integer, got %v", pkgerrors.ErrInvalidConfig, v)
			}
			p.Seed = uint64(f)
		}
	}

	switch {
	case p.MaxLeafSize <= 0:
		return p, fmt.Errorf("%w: max_leaf_size must be positive, got %d", pkgerrors.ErrInvalidConfig, p.MaxLeafSize)
	case p.SampleSize <= 0:
		return p, fmt.Errorf("%w: sample_size must be positive, got %d", pkgerrors.ErrInvalidConfig, p.SampleSize)
	case p.NumRegions <= 0:
		return p, fmt.Errorf("%w: num_regions must be positive, got %d", pkgerrors.ErrInvalidConfig, p.NumRegions)
	case p.Radius < 0:
		return p, fmt.Errorf("%w: radius must not be negative, got %g", pkgerrors.ErrInvalidConfig, p.Radius)
	}
	return p, nil
}

// toFloat accepts the numeric shapes parameters arrive in: Go literals,
// YAML decoded ints and JSON decoded float64 or json.Number.
func toFloat(key string, v interface{}) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", pkgerrors.ErrInvalidConfig, key, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s has unsupported type %T", pkgerrors.ErrInvalidConfig, key, v)
}
