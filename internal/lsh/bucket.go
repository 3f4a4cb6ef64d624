package lsh

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	pkgerrors "detlsh/pkg/errors"

	"github.com/twmb/murmur3"
)

// Candidate is a point returned by a bucket lookup.
type Candidate struct {
	ID     int
	Vector []float32
}

type bucket struct {
	key    []int
	points []Candidate
}

// BucketIndex is the plain multi-probe LSH baseline: one hash table per
// projected space keyed by the exact projected K-tuple.
type BucketIndex struct {
	family *Family
	tables []map[uint64][]*bucket // murmur3(key) -> buckets sharing the hash
	size   int
}

// NewBucketIndex creates empty tables for every space of family.
func NewBucketIndex(family *Family) *BucketIndex {
	tables := make([]map[uint64][]*bucket, family.L())
	for i := range tables {
		tables[i] = make(map[uint64][]*bucket)
	}
	return &BucketIndex{family: family, tables: tables}
}

// Assign projects every vector into every space and appends it to the
// matching bucket. Vectors get consecutive ids following those already assigned.
func (b *BucketIndex) Assign(dataset [][]float32) error {
	projected, err := b.family.ProjectAll(dataset)
	if err != nil {
		return err
	}
	for idx, v := range dataset {
		c := Candidate{ID: b.size + idx, Vector: slices.Clone(v)}
		for space := range b.tables {
			b.add(space, projected[space][idx], c)
		}
	}
	b.size += len(dataset)
	return nil
}

func (b *BucketIndex) add(space int, key []int, c Candidate) {
	h := hashKey(key)
	chain := b.tables[space][h]
	for _, bk := range chain {
		if slices.Equal(bk.key, key) {
			bk.points = append(bk.points, c)
			return
		}
	}
	b.tables[space][h] = append(chain, &bucket{key: key, points: []Candidate{c}})
}

func (b *BucketIndex) lookup(space int, key []int) *bucket {
	for _, bk := range b.tables[space][hashKey(key)] {
		if slices.Equal(bk.key, key) {
			return bk
		}
	}
	return nil
}

// Query unions the buckets the query falls into across all spaces. Points with
// bit-identical coordinates collapse to the first one seen.
func (b *BucketIndex) Query(q []float32) ([]Candidate, error) {
	keys, err := b.family.ProjectPoint(q)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []Candidate
	for space, key := range keys {
		bk := b.lookup(space, key)
		if bk == nil {
			continue
		}
		for _, c := range bk.points {
			k := vectorKey(c.Vector)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}

// Len returns the number of assigned points.
func (b *BucketIndex) Len() int { return b.size }

// Buckets returns the number of distinct keys in a space.
func (b *BucketIndex) Buckets(space int) (int, error) {
	if space < 0 || space >= len(b.tables) {
		return 0, fmt.Errorf("%w: space %d not in [0, %d)", pkgerrors.ErrIndexOutOfRange, space, len(b.tables))
	}
	n := 0
	for _, chain := range b.tables[space] {
		n += len(chain)
	}
	return n, nil
}

func hashKey(key []int) uint64 {
	buf := make([]byte, 0, 8*len(key))
	for _, c := range key {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(c))
	}
	return murmur3.Sum64(buf)
}

// vectorKey identifies a vector by value. Negative zero is folded into zero
// so that coordinates comparing equal share a key.
func vectorKey(v []float32) string {
	buf := make([]byte, 0, 4*len(v))
	for _, c := range v {
		if c == 0 {
			c = 0
		}
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
	}
	return string(buf)
}
