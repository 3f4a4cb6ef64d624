package index

import "math"

// distance is smaller-is-closer for every space. L2 is squared, IP is the
// negated dot product and cos is 1 - cosine similarity.
func distance(a, b []float32, space SpaceType) float32 {
	switch space {
	case IPSpace:
		return -dot(a, b)
	case CosSpace:
		na, nb := dot(a, a), dot(b, b)
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - dot(a, b)/float32(math.Sqrt(float64(na)*float64(nb)))
	default:
		var sum float32
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return sum
	}
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
