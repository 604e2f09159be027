// Package rank scores candidate papers against the weighted corpus.
package rank

import (
	"math"
	"sort"
	"strings"

	"github.com/matsen/paperfeed/internal/reference"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
// Empty, zero-norm or mismatched vectors give 0, never NaN.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0
	}

	sim := dot / denominator
	// Rounding can push identical directions a hair past 1.
	return math.Max(-1, math.Min(1, sim))
}

// Score combines per-item similarities into one weighted average:
// Σ(w·cos) / Σw over corpus items that have a vector. The result lies in
// [-1, 1]; it is 0 when the candidate has no vector or no corpus item does.
func Score(vector []float32, corpus []reference.WeightedCorpusItem) float64 {
	if len(vector) == 0 {
		return 0
	}

	var num, den float64
	for _, item := range corpus {
		if len(item.Vector) == 0 || item.Weight <= 0 {
			continue
		}
		num += item.Weight * CosineSimilarity(vector, item.Vector)
		den += item.Weight
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Rank scores every candidate and orders them by score descending, ties by
// ID ascending. Rank positions start at 1. An empty corpus scores every
// candidate 0, which leaves them in ID order.
func Rank(candidates []reference.CandidatePaper, corpus []reference.WeightedCorpusItem) []reference.ScoredCandidate {
	scored := make([]reference.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = reference.ScoredCandidate{
			CandidatePaper: c,
			Score:          Score(c.Vector, corpus),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}

// TopK returns the first k ranked candidates. k <= 0 means all of them.
func TopK(scored []reference.ScoredCandidate, k int) []reference.ScoredCandidate {
	if k <= 0 || k >= len(scored) {
		return scored
	}
	return scored[:k]
}

// Relevance maps a score onto the 0-10 scale shown to readers.
func Relevance(score float64) float64 {
	return score * 10
}

// Stars renders relevance as up to five stars. Scores at or below 6 show
// nothing; 8 and above show five full stars; between the two, half-star
// steps fill in.
func Stars(score float64) string {
	const (
		low  = 6.0
		high = 8.0
	)
	rel := Relevance(score)
	switch {
	case rel <= low:
		return ""
	case rel >= high:
		return strings.Repeat("⭐", 5)
	}

	interval := (high - low) / 10
	n := int(math.Ceil((rel - low) / interval))
	full := n / 2
	half := n % 2
	return strings.Repeat("⭐", full) + strings.Repeat("½", half)
}
