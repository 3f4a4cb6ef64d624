package index

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"detlsh/internal/detree"
	"detlsh/internal/encoding"
	"detlsh/internal/lsh"
	pkgerrors "detlsh/pkg/errors"
	"detlsh/pkg/logger"
)

// breakpoint sampling draws from its own PCG stream so that changing the
// sample size does not move the projection functions.
const breakpointStream = 0x6a09e667f3bcc908

// DETLSHIndex is the DET-LSH index: p-stable projections, breakpoint encoding
// and one DE-Tree per projected space.
//
// Build replaces everything under the write lock. Queries only take the read
// lock, so any number of them can run concurrently between Build and Add calls.
type DETLSHIndex struct {
	mu      sync.RWMutex
	config  *IndexConfig
	params  detParams
	family  *lsh.Family
	encoder *encoding.Encoder
	forest  *Forest
	store   *vectorStore

	statsMu sync.Mutex
	stats   []detree.Stats // nil when stale
}

func newDETIndex(config *IndexConfig) (*DETLSHIndex, error) {
	params, err := parseDETParams(config.Parameters)
	if err != nil {
		return nil, err
	}
	family, err := lsh.NewFamily(params.K, params.L, config.Dimension, params.BucketWidth, params.Seed)
	if err != nil {
		return nil, err
	}
	return &DETLSHIndex{config: config, params: params, family: family}, nil
}

// NewDETIndexWithFamily creates a DET index over fixed projection functions.
// The K, L, bucket width and dimension of the family take precedence over
// config.
func NewDETIndexWithFamily(config *IndexConfig, family *lsh.Family) (*DETLSHIndex, error) {
	params, err := parseDETParams(config.Parameters)
	if err != nil {
		return nil, err
	}
	params.K, params.L, params.BucketWidth = family.K(), family.L(), family.BucketWidth()
	cfg := *config
	cfg.Dimension = family.Dim()
	return &DETLSHIndex{config: &cfg, params: params, family: family}, nil
}

// Build projects the dataset, samples breakpoints per space, encodes every
// point and bulk loads the forest. Payload i refers to vectors[i].
func (d *DETLSHIndex) Build(ctx context.Context, ids []string, vectors [][]float32) error {
	if err := validateBatch(d.family.Dim(), ids, vectors); err != nil {
		return err
	}
	p := d.params

	projected, err := d.family.ProjectAll(vectors)
	if err != nil {
		return err
	}
	src := rand.NewPCG(p.Seed, p.Seed^breakpointStream)
	tables := make([]encoding.Table, len(projected))
	for i := range projected {
		tables[i], err = encoding.SelectBreakpoints(projected[i], p.K, p.SampleSize, p.NumRegions, src)
		if err != nil {
			return fmt.Errorf("space %d: %w", i, err)
		}
	}
	encoder, err := encoding.NewEncoder(tables)
	if err != nil {
		return err
	}
	codes, err := encoder.Encode(projected)
	if err != nil {
		return err
	}
	forest, err := NewForest(p.L, p.MaxLeafSize)
	if err != nil {
		return err
	}
	if err := forest.Build(ctx, codes); err != nil {
		return err
	}

	store := newVectorStore(d.family.Dim())
	for i := range ids {
		store.add(ids[i], vectors[i])
	}

	stats := forest.Stats()
	d.mu.Lock()
	d.encoder, d.forest, d.store = encoder, forest, store
	d.stats = stats
	d.mu.Unlock()

	logger.Info("det index built",
		"points", len(ids),
		"spaces", p.L,
		"k", p.K,
		"regions", p.NumRegions,
		"leaves", stats[0].Leaves,
		"depth", stats[0].Depth,
	)
	return nil
}

// Add encodes one vector with the breakpoints chosen at Build time and
// inserts it into every tree.
func (d *DETLSHIndex) Add(ctx context.Context, id string, vector []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.forest == nil {
		return pkgerrors.ErrIndexNotBuilt
	}
	if err := d.store.check(id, vector); err != nil {
		return err
	}
	codes, err := d.encode(vector)
	if err != nil {
		return err
	}
	if err := d.forest.Insert(codes, d.store.len()); err != nil {
		return err
	}
	d.store.add(id, vector)
	d.stats = nil
	return nil
}

// encode projects and encodes a query in every space.
func (d *DETLSHIndex) encode(vector []float32) ([][]int32, error) {
	coords, err := d.family.ProjectPoint(vector)
	if err != nil {
		return nil, err
	}
	codes := make([][]int32, len(coords))
	for i, c := range coords {
		if codes[i], err = d.encoder.EncodePoint(i, c); err != nil {
			return nil, err
		}
	}
	return codes, nil
}

// RangeQuery returns every point whose code lies within radius of the query
// code in at least one space, unranked, in forest order. The tree pruning
// is deliberately loose, see detree.Tree.RangeQuery.
func (d *DETLSHIndex) RangeQuery(ctx context.Context, vector []float32, radius float64) (*SearchResult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.forest == nil {
		return nil, pkgerrors.ErrIndexNotBuilt
	}
	codes, err := d.encode(vector)
	if err != nil {
		return nil, err
	}
	payloads, err := d.forest.Query(ctx, codes, radius)
	if err != nil {
		return nil, err
	}
	logger.Debug("det range query", "radius", radius, "candidates", len(payloads))
	return d.store.result(payloads, vector, d.config.SpaceType), nil
}

// Candidates runs RangeQuery with the configured radius.
func (d *DETLSHIndex) Candidates(ctx context.Context, vector []float32) (*SearchResult, error) {
	return d.RangeQuery(ctx, vector, d.params.Radius)
}

func (d *DETLSHIndex) Search(ctx context.Context, vector []float32, k int) (*SearchResult, error) {
	res, err := d.Candidates(ctx, vector)
	if err != nil {
		return nil, err
	}
	return rerank(ctx, res, k)
}

// Stats returns the shape of every tree, or nil before Build. The shapes are
// taken at Build and refreshed on the first call after an Add.
func (d *DETLSHIndex) Stats() []detree.Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.forest == nil {
		return nil
	}
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	if d.stats == nil {
		d.stats = d.forest.Stats()
	}
	return slices.Clone(d.stats)
}

// Breakpoints returns the table of one space, or nil before Build.
func (d *DETLSHIndex) Breakpoints(space int) encoding.Table {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.encoder == nil || space < 0 || space >= d.encoder.Spaces() {
		return nil
	}
	return d.encoder.Table(space)
}

func (d *DETLSHIndex) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.store == nil {
		return 0
	}
	return d.store.len()
}

func (d *DETLSHIndex) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.encoder, d.forest, d.store, d.stats = nil, nil, nil, nil
	return nil
}
