package embedding

import (
	"math"
	"sort"
)

// NormalizeL2Slice normalizes the slice in place to unit L2 norm.
func NormalizeL2Slice(x []float32) {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range x {
		x[i] *= norm
	}
}

// CosineSimilarity returns the similarity of two pre-normalized vectors: a
// plain dot product, clamped to [0,1]. Mismatched or empty vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return math.Max(0, math.Min(1, dot))
}

// Neighbor is one top-k search hit.
type Neighbor struct {
	ID    string
	Score float64
}

// TopK returns the k nearest vectors to query by dot product, skipping ids in
// exclude. Results are sorted descending.
func TopK(query []float32, vectors map[string][]float32, k int, exclude map[string]bool) []Neighbor {
	if k <= 0 {
		return nil
	}
	neighbors := make([]Neighbor, 0, len(vectors))
	for id, vec := range vectors {
		if exclude[id] {
			continue
		}
		neighbors = append(neighbors, Neighbor{ID: id, Score: CosineSimilarity(query, vec)})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Score != neighbors[j].Score {
			return neighbors[i].Score > neighbors[j].Score
		}
		return neighbors[i].ID < neighbors[j].ID
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}
