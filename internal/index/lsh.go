package index

import (
	"context"
	"sync"

	"detlsh/internal/lsh"
	pkgerrors "detlsh/pkg/errors"
	"detlsh/pkg/logger"
)

// BucketLSHIndex is the exact-bucket variant: a point is a candidate only when it
// shares the full K-coordinate key with the query in at least one space.
type BucketLSHIndex struct {
	mu      sync.RWMutex
	config  *IndexConfig
	family  *lsh.Family
	buckets *lsh.BucketIndex
	store   *vectorStore
}

func newLSHIndex(config *IndexConfig) (*BucketLSHIndex, error) {
	params, err := parseDETParams(config.Parameters)
	if err != nil {
		return nil, err
	}
	family, err := lsh.NewFamily(params.K, params.L, config.Dimension, params.BucketWidth, params.Seed)
	if err != nil {
		return nil, err
	}
	return &BucketLSHIndex{config: config, family: family}, nil
}

func (l *BucketLSHIndex) Build(ctx context.Context, ids []string, vectors [][]float32) error {
	if err := validateBatch(l.family.Dim(), ids, vectors); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	buckets := lsh.NewBucketIndex(l.family)
	if err := buckets.Assign(vectors); err != nil {
		return err
	}
	store := newVectorStore(l.family.Dim())
	for i := range ids {
		store.add(ids[i], vectors[i])
	}

	l.mu.Lock()
	l.buckets, l.store = buckets, store
	l.mu.Unlock()

	n, _ := buckets.Buckets(0)
	logger.Info("lsh index built", "points", len(ids), "spaces", l.family.L(), "buckets", n)
	return nil
}

func (l *BucketLSHIndex) Add(ctx context.Context, id string, vector []float32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buckets == nil {
		return pkgerrors.ErrIndexNotBuilt
	}
	if err := l.store.check(id, vector); err != nil {
		return err
	}
	if err := l.buckets.Assign([][]float32{vector}); err != nil {
		return err
	}
	l.store.add(id, vector)
	return nil
}

// Candidates returns the union of the query's buckets. Points with
// bit-identical vectors are reported once, under the first id seen.
func (l *BucketLSHIndex) Candidates(ctx context.Context, vector []float32) (*SearchResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.buckets == nil {
		return nil, pkgerrors.ErrIndexNotBuilt
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := l.buckets.Query(vector)
	if err != nil {
		return nil, err
	}
	payloads := make([]int, len(found))
	for i, c := range found {
		payloads[i] = c.ID
	}
	return l.store.result(payloads, vector, l.config.SpaceType), nil
}

func (l *BucketLSHIndex) Search(ctx context.Context, vector []float32, k int) (*SearchResult, error) {
	res, err := l.Candidates(ctx, vector)
	if err != nil {
		return nil, err
	}
	return rerank(ctx, res, k)
}

func (l *BucketLSHIndex) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.store == nil {
		return 0
	}
	return l.store.len()
}

func (l *BucketLSHIndex) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets, l.store = nil, nil
	return nil
}
