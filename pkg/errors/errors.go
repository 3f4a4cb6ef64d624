package errors

import "errors"

var (
	// Construction errors
	ErrInvalidConfig      = errors.New("invalid index configuration")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrIndexOutOfRange    = errors.New("projected space index out of range")
	ErrInsufficientSample = errors.New("sample size exceeds available values")
	ErrEmptyDataset       = errors.New("empty dataset")

	// Index errors
	ErrIndexNotFound        = errors.New("index not found")
	ErrIndexExists          = errors.New("index already exists")
	ErrIndexNotBuilt        = errors.New("index not built")
	ErrUnsupportedIndexType = errors.New("unsupported index type")

	// Input errors
	ErrMisMatchKeysAndValues = errors.New("keys and values length mismatch")
	ErrDuplicateID           = errors.New("duplicate vector id")
	ErrMalformedDataset      = errors.New("malformed vector file")
)
