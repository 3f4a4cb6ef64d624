package index

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"detlsh/internal/cache"
	"detlsh/internal/config"
	pkgerrors "detlsh/pkg/errors"
	"detlsh/pkg/logger"

	"github.com/google/uuid"
)

// Manager manages named vector index instances and caches their query results
type Manager struct {
	conf    *config.Config
	mu      sync.RWMutex
	indices map[string]*managedIndex // index name -> index
	results *cache.LRUCache[*SearchResult]
	// source of generations, unique across all indexes of the manager
	generation atomic.Uint64
}

// managedIndex carries a generation that changes after every write. Cached
// results are keyed by it, so a result computed before a write can never be
// served after it.
type managedIndex struct {
	config *IndexConfig
	index  VectorIndex
	gen    atomic.Uint64
}

// IndexInfo describes a registered index
type IndexInfo struct {
	Name      string       `json:"name"`
	Config    *IndexConfig `json:"config"`
	Size      int          `json:"size"`
	TreeStats []TreeStats  `json:"tree_stats,omitempty"`
}

// TreeStats is the JSON view of one DE-Tree
type TreeStats struct {
	Points   int `json:"points"`
	Leaves   int `json:"leaves"`
	Internal int `json:"internal"`
	Depth    int `json:"depth"`
	MaxLeaf  int `json:"max_leaf"`
}

// NewManager creates a new index manager
func NewManager(conf *config.Config) (*Manager, error) {
	if conf == nil {
		conf = config.Default()
	}
	results, err := cache.NewLRUCache[*SearchResult](conf.Cache.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &Manager{
		conf:    conf,
		indices: make(map[string]*managedIndex),
		results: results,
	}, nil
}

// NewIndex creates an unregistered index of the configured type
func NewIndex(config *IndexConfig) (VectorIndex, error) {
	switch config.IndexType {
	case DETIndex:
		return newDETIndex(config)
	case LSHIndex:
		return newLSHIndex(config)
	case FLATIndex:
		return newFlatIndex(config)
	}
	return nil, fmt.Errorf("%w: %s", pkgerrors.ErrUnsupportedIndexType, config.IndexType)
}

// CreateIndex registers a new empty index. An empty name gets a generated
// one. Parameters missing from cfg are taken from the configured defaults.
func (m *Manager) CreateIndex(ctx context.Context, name string, cfg *IndexConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("%w: missing index config", pkgerrors.ErrInvalidConfig)
	}
	resolved, err := m.resolveConfig(cfg)
	if err != nil {
		return "", err
	}
	if name == "" {
		name = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.indices[name]; exists {
		return "", fmt.Errorf("%w: %s", pkgerrors.ErrIndexExists, name)
	}
	index, err := NewIndex(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to create index %s: %w", name, err)
	}
	m.register(name, resolved, index)
	logger.Info("Created vector index", "index", name, "type", resolved.IndexType, "dimension", resolved.Dimension)
	return name, nil
}

// register adds an index under name. Callers hold m.mu.
func (m *Manager) register(name string, cfg *IndexConfig, index VectorIndex) *managedIndex {
	mi := &managedIndex{config: cfg, index: index}
	mi.gen.Store(m.generation.Add(1))
	m.indices[name] = mi
	return mi
}

// written moves an index to a new generation once a write has completed and
// drops the results cached for it.
func (m *Manager) written(name string, mi *managedIndex) {
	mi.gen.Store(m.generation.Add(1))
	m.results.PurgeIndex(name)
}

func (m *Manager) resolveConfig(cfg *IndexConfig) (*IndexConfig, error) {
	resolved := &IndexConfig{
		SpaceType:  cfg.SpaceType,
		IndexType:  cfg.IndexType,
		Dimension:  cfg.Dimension,
		Parameters: m.conf.Index.Parameters(),
	}
	maps.Copy(resolved.Parameters, cfg.Parameters)
	if resolved.IndexType == "" {
		resolved.IndexType = DETIndex
	}
	switch resolved.SpaceType {
	case "":
		resolved.SpaceType = L2Space
	case L2Space, IPSpace, CosSpace:
	default:
		return nil, fmt.Errorf("%w: unknown space type %q", pkgerrors.ErrInvalidConfig, resolved.SpaceType)
	}
	if resolved.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", pkgerrors.ErrInvalidConfig, resolved.Dimension)
	}
	return resolved, nil
}

func (m *Manager) get(name string) (*managedIndex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mi, exists := m.indices[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrIndexNotFound, name)
	}
	return mi, nil
}

// GetIndex retrieves an existing vector index
func (m *Manager) GetIndex(name string) (VectorIndex, error) {
	mi, err := m.get(name)
	if err != nil {
		return nil, err
	}
	return mi.index, nil
}

// BuildIndex (re)builds an index from a full dataset
func (m *Manager) BuildIndex(ctx context.Context, name string, ids []string, vectors [][]float32) error {
	mi, err := m.get(name)
	if err != nil {
		return err
	}
	if err := mi.index.Build(ctx, ids, vectors); err != nil {
		return err
	}
	m.written(name, mi)
	return nil
}

// AddVector inserts one vector into a built index
func (m *Manager) AddVector(ctx context.Context, name, id string, vector []float32) error {
	mi, err := m.get(name)
	if err != nil {
		return err
	}
	if err := mi.index.Add(ctx, id, vector); err != nil {
		return err
	}
	m.written(name, mi)
	return nil
}

// Candidates returns the unranked candidate set of a query
func (m *Manager) Candidates(ctx context.Context, name string, vector []float32) (*SearchResult, error) {
	mi, err := m.get(name)
	if err != nil {
		return nil, err
	}
	return m.cached(name, mi, "candidates", vector, func() (*SearchResult, error) {
		return mi.index.Candidates(ctx, vector)
	})
}

// RangeQuery runs a det index query with an explicit radius
func (m *Manager) RangeQuery(ctx context.Context, name string, vector []float32, radius float64) (*SearchResult, error) {
	mi, err := m.get(name)
	if err != nil {
		return nil, err
	}
	det, ok := mi.index.(*DETLSHIndex)
	if !ok {
		return nil, fmt.Errorf("%w: range query on %s index", pkgerrors.ErrUnsupportedIndexType, mi.config.IndexType)
	}
	if radius < 0 {
		return nil, fmt.Errorf("%w: radius must not be negative, got %g", pkgerrors.ErrInvalidConfig, radius)
	}
	return m.cached(name, mi, "range", vector, func() (*SearchResult, error) {
		return det.RangeQuery(ctx, vector, radius)
	}, radius)
}

// Search returns the k nearest candidates of a query
func (m *Manager) Search(ctx context.Context, name string, vector []float32, k int) (*SearchResult, error) {
	mi, err := m.get(name)
	if err != nil {
		return nil, err
	}
	return m.cached(name, mi, "search", vector, func() (*SearchResult, error) {
		return mi.index.Search(ctx, vector, k)
	}, float64(k))
}

// cached serves a query from the result cache. The key includes the index
// generation read before the query runs; a result whose generation moved on
// while it was computed is returned but not stored.
func (m *Manager) cached(name string, mi *managedIndex, op string, vector []float32, query func() (*SearchResult, error), args ...float64) (*SearchResult, error) {
	gen := mi.gen.Load()
	key := cache.Key(name, op, vector, append([]float64{float64(gen)}, args...)...)
	if res, ok := m.results.Get(key); ok {
		return res.clone(), nil
	}
	res, err := query()
	if err != nil {
		return nil, err
	}
	if mi.gen.Load() == gen {
		m.results.Set(key, res.clone())
	}
	return res, nil
}

func (r *SearchResult) clone() *SearchResult {
	return &SearchResult{IDs: slices.Clone(r.IDs), Distances: slices.Clone(r.Distances)}
}

// Info describes one index
func (m *Manager) Info(name string) (*IndexInfo, error) {
	mi, err := m.get(name)
	if err != nil {
		return nil, err
	}
	return describe(name, mi), nil
}

// List describes every index, sorted by name
func (m *Manager) List() []*IndexInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := slices.Sorted(maps.Keys(m.indices))
	out := make([]*IndexInfo, len(names))
	for i, name := range names {
		out[i] = describe(name, m.indices[name])
	}
	return out
}

func describe(name string, mi *managedIndex) *IndexInfo {
	info := &IndexInfo{Name: name, Config: mi.config, Size: mi.index.Len()}
	if det, ok := mi.index.(*DETLSHIndex); ok {
		for _, s := range det.Stats() {
			info.TreeStats = append(info.TreeStats, TreeStats(s))
		}
	}
	return info
}

// DeleteIndex closes and removes an index
func (m *Manager) DeleteIndex(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mi, exists := m.indices[name]
	if !exists {
		return fmt.Errorf("%w: %s", pkgerrors.ErrIndexNotFound, name)
	}
	if err := mi.index.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	delete(m.indices, name)
	m.written(name, mi)
	logger.Info("Deleted vector index", "index", name)
	return nil
}

// Close closes all indices
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, mi := range m.indices {
		if err := mi.index.Close(); err != nil {
			logger.Error("Failed to close index", "index", name, "error", err)
		}
	}
	m.indices = make(map[string]*managedIndex)
	return nil
}
