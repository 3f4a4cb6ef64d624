package index

import "detlsh/internal/config"

const (
	L2Space  SpaceType = "l2"
	IPSpace  SpaceType = "ip"
	CosSpace SpaceType = "cos"
)

const (
	DETIndex  IndexType = "det"
	LSHIndex  IndexType = "lsh"
	FLATIndex IndexType = "flat"
)

// parameter keys shared by the det and lsh indexes
const (
	ParamK           = "k"
	ParamL           = "l"
	ParamBucketWidth = "bucket_width"
	ParamMaxLeafSize = "max_leaf_size"
	ParamSampleSize  = "sample_size"
	ParamNumRegions  = "num_regions"
	ParamSeed        = "seed"
	ParamRadius      = "radius"
)

// defaults come from the config package so both stay in step
const (
	DEFAULT_K             = config.DefaultK
	DEFAULT_L             = config.DefaultL
	DEFAULT_BUCKET_WIDTH  = config.DefaultBucketWidth
	DEFAULT_MAX_LEAF_SIZE = config.DefaultMaxLeafSize
	DEFAULT_SAMPLE_SIZE   = config.DefaultSampleSize
	DEFAULT_NUM_REGIONS   = config.DefaultNumRegions
	DEFAULT_SEED          = config.DefaultSeed
	DEFAULT_RADIUS        = config.DefaultRadius
)
