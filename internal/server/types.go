package server

import "detlsh/internal/index"

// CreateIndexRequest creates an index and, when vectors are given, builds it
type CreateIndexRequest struct {
	Name       string                 `json:"name"`
	IndexType  index.IndexType        `json:"index_type"`
	SpaceType  index.SpaceType        `json:"space_type"`
	Dimension  int                    `json:"dimension"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	IDs        []string               `json:"ids,omitempty"`
	Vectors    [][]float32            `json:"vectors,omitempty"`
}

// ListIndexesResponse represents the response body for listing indexes
type ListIndexesResponse struct {
	Indexes []*index.IndexInfo `json:"indexes"`
}

// BuildIndexRequest replaces the content of an index
type BuildIndexRequest struct {
	IDs     []string    `json:"ids" binding:"required"`
	Vectors [][]float32 `json:"vectors" binding:"required"`
}

// AddVectorRequest inserts one vector into a built index
type AddVectorRequest struct {
	ID     string    `json:"id" binding:"required"`
	Vector []float32 `json:"vector" binding:"required"`
}

// CandidatesRequest asks for the unranked candidate set. Radius is only
// accepted by det indexes and overrides the configured one.
type CandidatesRequest struct {
	Vector []float32 `json:"vector" binding:"required"`
	Radius *float64  `json:"radius,omitempty"`
}

// SearchRequest represents the request body for k nearest neighbour search
type SearchRequest struct {
	Vector []float32 `json:"vector" binding:"required"`
	TopK   int       `json:"top_k" binding:"required"`
}

// SearchResponse represents the response body for search results
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchResult represents a single search result
type SearchResult struct {
	ID       string  `json:"id"`
	Distance float32 `json:"distance"`
}

func toResponse(res *index.SearchResult) SearchResponse {
	out := SearchResponse{Results: make([]SearchResult, len(res.IDs))}
	for i, id := range res.IDs {
		out.Results[i] = SearchResult{ID: id, Distance: res.Distances[i]}
	}
	return out
}
