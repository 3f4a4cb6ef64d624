package index

import "gonum.org/v1/gonum/stat"

// Recall is the fraction of truth found in got. An empty truth has recall 1.
func Recall(truth, got []string) float64 {
	if len(truth) == 0 {
		return 1
	}
	found := make(map[string]struct{}, len(got))
	for _, id := range got {
		found[id] = struct{}{}
	}
	hit := 0
	for _, id := range truth {
		if _, ok := found[id]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(truth))
}

// MeanRecall averages Recall over query-aligned result lists.
func MeanRecall(truths, gots [][]string) float64 {
	if len(truths) == 0 {
		return 1
	}
	per := make([]float64, len(truths))
	for i := range truths {
		var got []string
		if i < len(gots) {
			got = gots[i]
		}
		per[i] = Recall(truths[i], got)
	}
	return stat.Mean(per, nil)
}
