package index

import (
	"context"
	"fmt"
	"slices"
	"sort"

	pkgerrors "detlsh/pkg/errors"
)

// vectorStore keeps the original vectors so that payload ids coming out of
// the trees or buckets can be turned back into ids and distances.
type vectorStore struct {
	dim     int
	ids     []string
	vectors [][]float32
	idToIdx map[string]int
}

func newVectorStore(dim int) *vectorStore {
	return &vectorStore{dim: dim, idToIdx: make(map[string]int)}
}

// validateBatch checks a Build input without touching the store.
func validateBatch(dim int, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return pkgerrors.ErrMisMatchKeysAndValues
	}
	if len(ids) == 0 {
		return pkgerrors.ErrEmptyDataset
	}
	seen := make(map[string]struct{}, len(ids))
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %q has %d components, expected %d", pkgerrors.ErrDimensionMismatch, ids[i], len(v), dim)
		}
		if _, dup := seen[ids[i]]; dup {
			return fmt.Errorf("%w: %q", pkgerrors.ErrDuplicateID, ids[i])
		}
		seen[ids[i]] = struct{}{}
	}
	return nil
}

func (s *vectorStore) check(id string, vector []float32) error {
	if len(vector) != s.dim {
		return fmt.Errorf("%w: expected %d, got %d", pkgerrors.ErrDimensionMismatch, s.dim, len(vector))
	}
	if _, exists := s.idToIdx[id]; exists {
		return fmt.Errorf("%w: %q", pkgerrors.ErrDuplicateID, id)
	}
	return nil
}

// add stores a copy of vector and returns its payload.
func (s *vectorStore) add(id string, vector []float32) int {
	s.ids = append(s.ids, id)
	s.vectors = append(s.vectors, slices.Clone(vector))
	s.idToIdx[id] = len(s.ids) - 1
	return len(s.ids) - 1
}

func (s *vectorStore) len() int { return len(s.ids) }

// result maps payloads to ids and distances in the given order.
func (s *vectorStore) result(payloads []int, query []float32, space SpaceType) *SearchResult {
	res := &SearchResult{
		IDs:       make([]string, len(payloads)),
		Distances: make([]float32, len(payloads)),
	}
	for i, p := range payloads {
		res.IDs[i] = s.ids[p]
		res.Distances[i] = distance(query, s.vectors[p], space)
	}
	return res
}

// rerank orders candidates by distance and keeps the k closest.
func rerank(ctx context.Context, res *SearchResult, k int) (*SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", pkgerrors.ErrInvalidConfig, k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	order := make([]int, len(res.IDs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return res.Distances[order[i]] < res.Distances[order[j]]
	})
	if k > len(order) {
		k = len(order)
	}
	out := &SearchResult{IDs: make([]string, k), Distances: make([]float32, k)}
	for i := 0; i < k; i++ {
		out.IDs[i] = res.IDs[order[i]]
		out.Distances[i] = res.Distances[order[i]]
	}
	return out, nil
}
