// Package dataset reads and writes vectors in the fvecs format: each record
// is a little-endian int32 dimension followed by that many float32 values.
package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	pkgerrors "detlsh/pkg/errors"
)

// MaxDimension bounds the dimension a record header may declare, so a
// corrupt header cannot force a huge allocation.
const MaxDimension = 1 << 20

// Read decodes fvecs records until EOF or until limit vectors were read. A
// limit of zero or less reads everything. All records must share the
// dimension of the first.
func Read(r io.Reader, limit int) ([][]float32, error) {
	br := bufio.NewReader(r)
	var (
		out  [][]float32
		dim  int
		head [4]byte
	)
	for limit <= 0 || len(out) < limit {
		if _, err := io.ReadFull(br, head[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: record %d header: %v", pkgerrors.ErrMalformedDataset, len(out), err)
		}
		d := int(int32(binary.LittleEndian.Uint32(head[:])))
		if d <= 0 || d > MaxDimension {
			return nil, fmt.Errorf("%w: record %d has dimension %d", pkgerrors.ErrMalformedDataset, len(out), d)
		}
		if dim == 0 {
			dim = d
		} else if d != dim {
			return nil, fmt.Errorf("%w: non-uniform vector sizes, record %d has %d, expected %d", pkgerrors.ErrMalformedDataset, len(out), d, dim)
		}

		buf := make([]byte, 4*d)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%w: record %d truncated: %v", pkgerrors.ErrMalformedDataset, len(out), err)
		}
		v := make([]float32, d)
		for i := range v {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
		}
		out = append(out, v)
	}
	return out, nil
}

// ReadFile reads an fvecs file.
func ReadFile(path string, limit int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vectors, err := Read(f, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vectors, nil
}

// Write encodes vectors as fvecs records.
func Write(w io.Writer, vectors [][]float32) error {
	bw := bufio.NewWriter(w)
	for _, v := range vectors {
		buf := make([]byte, 0, 4+4*len(v))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v)))
		for _, x := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(x))
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
