package index

import "context"

// SpaceType is the metric used to rank candidates
type SpaceType string

// IndexType selects the index implementation
type IndexType string

// IndexConfig represents index configuration
type IndexConfig struct {
	SpaceType  SpaceType              `json:"space_type"`
	IndexType  IndexType              `json:"index_type"`
	Dimension  int                    `json:"dimension"`
	Parameters map[string]interface{} `json:"parameters,omitempty"` // index-specific parameters
}

// SearchResult holds ids and their distances to the query, index aligned.
type SearchResult struct {
	IDs       []string  `json:"ids"`
	Distances []float32 `json:"distances"`
}

// VectorIndex is an in-memory approximate index over string-keyed vectors.
type VectorIndex interface {
	// Build indexes a whole dataset, replacing any previous content
	Build(ctx context.Context, ids []string, vectors [][]float32) error

	// Add inserts one vector into a built index
	Add(ctx context.Context, id string, vector []float32) error

	// Candidates returns the unranked candidate set for a query
	Candidates(ctx context.Context, vector []float32) (*SearchResult, error)

	// Search reranks the candidates and keeps the k closest
	Search(ctx context.Context, vector []float32, k int) (*SearchResult, error)

	// Len returns the number of indexed vectors
	Len() int

	// Close releases resources
	Close() error
}
