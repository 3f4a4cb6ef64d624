package index

import (
	"encoding/json"
	"testing"

	"detlsh/internal/config"
	pkgerrors "detlsh/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDETParamsDefaultsMatchConfig(t *testing.T) {
	builtin, err := parseDETParams(nil)
	require.NoError(t, err)
	fromConfig, err := parseDETParams(config.Default().Index.Parameters())
	require.NoError(t, err)
	assert.Equal(t, builtin, fromConfig)
}

func TestParseDETParams(t *testing.T) {
	p, err := parseDETParams(map[string]interface{}{
		ParamK:           json.Number("4"),
		ParamL:           float64(2),
		ParamBucketWidth: float32(0.5),
		ParamSeed:        uint64(1) << 60,
		ParamRadius:      3,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, p.K)
	assert.Equal(t, 2, p.L)
	assert.Equal(t, 0.5, p.BucketWidth)
	assert.Equal(t, uint64(1)<<60, p.Seed)
	assert.Equal(t, 3.0, p.Radius)
	assert.Equal(t, DEFAULT_MAX_LEAF_SIZE, p.MaxLeafSize)
}

func TestParseDETParamsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{"fractional k", map[string]interface{}{ParamK: 1.5}},
		{"string value", map[string]interface{}{ParamL: "8"}},
		{"negative seed", map[string]interface{}{ParamSeed: -1}},
		{"zero leaf size", map[string]interface{}{ParamMaxLeafSize: 0}},
		{"negative radius", map[string]interface{}{ParamRadius: -0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDETParams(tt.params)
			assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)
		})
	}
}
