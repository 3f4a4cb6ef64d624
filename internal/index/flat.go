package index

import (
	"context"
	"fmt"
	"sync"

	pkgerrors "detlsh/pkg/errors"
)

// FlatIndex scans every vector on each query. It is the exact baseline the
// approximate indexes are measured against.
type FlatIndex struct {
	mu      sync.RWMutex
	Dim     int
	Data    []float32 // 向量连续内存
	Ids     []string
	IdToIdx map[string]int
	config  *IndexConfig
}

func newFlatIndex(config *IndexConfig) (*FlatIndex, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", pkgerrors.ErrInvalidConfig, config.Dimension)
	}
	return &FlatIndex{
		Dim:     config.Dimension,
		Ids:     make([]string, 0),
		Data:    make([]float32, 0),
		IdToIdx: make(map[string]int),
		config:  config,
	}, nil
}

// Build replaces the content of the index
func (f *FlatIndex) Build(ctx context.Context, ids []string, vectors [][]float32) error {
	if err := validateBatch(f.Dim, ids, vectors); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ids = make([]string, len(ids))
	f.Data = make([]float32, 0, len(ids)*f.Dim)
	f.IdToIdx = make(map[string]int, len(ids))
	for i := range ids {
		f.Ids[i] = ids[i]
		f.Data = append(f.Data, vectors[i]...)
		f.IdToIdx[ids[i]] = i
	}
	return nil
}

// Add appends a single vector
func (f *FlatIndex) Add(ctx context.Context, id string, vector []float32) error {
	if len(vector) != f.Dim {
		return fmt.Errorf("%w: expected %d, got %d", pkgerrors.ErrDimensionMismatch, f.Dim, len(vector))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.IdToIdx[id]; exists {
		return fmt.Errorf("%w: %q", pkgerrors.ErrDuplicateID, id)
	}
	f.Ids = append(f.Ids, id)
	f.Data = append(f.Data, vector...)
	f.IdToIdx[id] = len(f.Ids) - 1
	return nil
}

// Candidates returns every stored vector, in insertion order.
func (f *FlatIndex) Candidates(ctx context.Context, vector []float32) (*SearchResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.scan(ctx, vector)
}

// Search 进行k近邻暴力检索
func (f *FlatIndex) Search(ctx context.Context, vector []float32, k int) (*SearchResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	all, err := f.scan(ctx, vector)
	if err != nil {
		return nil, err
	}
	return rerank(ctx, all, k)
}

func (f *FlatIndex) scan(ctx context.Context, vector []float32) (*SearchResult, error) {
	if len(vector) != f.Dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", pkgerrors.ErrDimensionMismatch, f.Dim, len(vector))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &SearchResult{
		IDs:       make([]string, len(f.Ids)),
		Distances: make([]float32, len(f.Ids)),
	}
	for i := 0; i < len(f.Ids); i++ {
		if i%4096 == 4095 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		start := i * f.Dim
		res.IDs[i] = f.Ids[i]
		res.Distances[i] = distance(vector, f.Data[start:start+f.Dim], f.config.SpaceType)
	}
	return res, nil
}

// Len returns the number of stored vectors
func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.Ids)
}

// Close release resource
func (f *FlatIndex) Close() error {
	return nil
}
