package config

import (
	"fmt"
	"os"

	pkgerrors "detlsh/pkg/errors"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration loaded from YAML.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Cache   CacheConfig   `yaml:"cache"`
	Index   IndexDefaults `yaml:"index"`
	Dataset DatasetConfig `yaml:"dataset"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	Mode string `yaml:"mode"` // gin mode: debug, release, test
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type CacheConfig struct {
	Size int `yaml:"size"` // 0 disables the query cache
}

// IndexDefaults are applied to any index created without explicit parameters.
type IndexDefaults struct {
	K           int     `yaml:"k"`
	L           int     `yaml:"l"`
	BucketWidth float64 `yaml:"bucket_width"`
	MaxLeafSize int     `yaml:"max_leaf_size"`
	SampleSize  int     `yaml:"sample_size"`
	NumRegions  int     `yaml:"num_regions"`
	Seed        uint64  `yaml:"seed"`
	Radius      float64 `yaml:"radius"`
}

// DatasetConfig optionally preloads an fvecs file into an index at startup.
type DatasetConfig struct {
	Path      string `yaml:"path"`
	IndexName string `yaml:"index_name"`
	IndexType string `yaml:"index_type"`
	Limit     int    `yaml:"limit"`
}

// Index parameter defaults, shared with the index package.
const (
	DefaultK           = 16
	DefaultL           = 8
	DefaultBucketWidth = 4.0
	DefaultMaxLeafSize = 32
	DefaultSampleSize  = 256
	DefaultNumRegions  = 8
	DefaultSeed        = 42
	DefaultRadius      = 2.0
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", Mode: "release"},
		Log:    LogConfig{Level: "info"},
		Cache:  CacheConfig{Size: 1024},
		Index: IndexDefaults{
			K:           DefaultK,
			L:           DefaultL,
			BucketWidth: DefaultBucketWidth,
			MaxLeafSize: DefaultMaxLeafSize,
			SampleSize:  DefaultSampleSize,
			NumRegions:  DefaultNumRegions,
			Seed:        DefaultSeed,
			Radius:      DefaultRadius,
		},
		Dataset: DatasetConfig{IndexName: "default", IndexType: "det"},
	}
}

// FromFile reads a YAML file on top of Default and validates the result.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	conf := Default()
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks the index defaults and cache size.
func (c *Config) Validate() error {
	d := c.Index
	switch {
	case d.K <= 0:
		return fmt.Errorf("%w: index.k must be positive, got %d", pkgerrors.ErrInvalidConfig, d.K)
	case d.L <= 0:
		return fmt.Errorf("%w: index.l must be positive, got %d", pkgerrors.ErrInvalidConfig, d.L)
	case d.BucketWidth <= 0:
		return fmt.Errorf("%w: index.bucket_width must be positive, got %g", pkgerrors.ErrInvalidConfig, d.BucketWidth)
	case d.MaxLeafSize <= 0:
		return fmt.Errorf("%w: index.max_leaf_size must be positive, got %d", pkgerrors.ErrInvalidConfig, d.MaxLeafSize)
	case d.SampleSize <= 0:
		return fmt.Errorf("%w: index.sample_size must be positive, got %d", pkgerrors.ErrInvalidConfig, d.SampleSize)
	case d.NumRegions <= 0:
		return fmt.Errorf("%w: index.num_regions must be positive, got %d", pkgerrors.ErrInvalidConfig, d.NumRegions)
	case d.Radius < 0:
		return fmt.Errorf("%w: index.radius must not be negative, got %g", pkgerrors.ErrInvalidConfig, d.Radius)
	case c.Cache.Size < 0:
		return fmt.Errorf("%w: cache.size must not be negative, got %d", pkgerrors.ErrInvalidConfig, c.Cache.Size)
	}
	return nil
}

// Parameters renders the defaults in the map form index configs carry.
func (d IndexDefaults) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"k":             d.K,
		"l":             d.L,
		"bucket_width":  d.BucketWidth,
		"max_leaf_size": d.MaxLeafSize,
		"sample_size":   d.SampleSize,
		"num_regions":   d.NumRegions,
		"seed":          d.Seed,
		"radius":        d.Radius,
	}
}
