package detree

// node is either a *leafNode or an *internalNode.
type node interface {
	isNode()
}

type entry struct {
	payload int
	code    []int32
}

type leafNode struct {
	points []entry
}

// internalNode owns both children exclusively. Codes with
// code[dim] <= value live under left, the rest under right.
type internalNode struct {
	dim         int
	value       float64
	left, right node
}

func (*leafNode) isNode()     {}
func (*internalNode) isNode() {}

// split partitions a leaf on the dimension of largest variance at its mean.
// Variance ties go to the lowest dimension. A leaf whose codes are all equal
// produces an empty right child.
func split(leaf *leafNode, dims int) *internalNode {
	n := int64(len(leaf.points))
	dim := 0
	var bestSpread, bestSum int64 = -1, 0
	for d := 0; d < dims; d++ {
		var sum, sumSq int64
		for _, e := range leaf.points {
			x := int64(e.code[d])
			sum += x
			sumSq += x * x
		}
		// n² times the population variance, exact on integer codes
		spread := n*sumSq - sum*sum
		if spread > bestSpread {
			bestSpread, bestSum, dim = spread, sum, d
		}
	}
	value := float64(bestSum) / float64(n)

	left := &leafNode{}
	right := &leafNode{}
	for _, e := range leaf.points {
		if float64(e.code[dim]) <= value {
			left.points = append(left.points, e)
		} else {
			right.points = append(right.points, e)
		}
	}
	return &internalNode{dim: dim, value: value, left: left, right: right}
}
