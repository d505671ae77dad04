// Package vectormath holds the similarity arithmetic shared by the
// deduplicator (C6), the orchestrator's candidate lookup (C7), the conflict
// detectors (C10), and schema evolution (C11), so that these components
// agree on a single definition of "similar".
package vectormath

import "math"

// CosineSimilarity returns the cosine similarity of a and b, in [-1, 1].
// Returns 0 if either vector has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		normA += fa * fa
		normB += fb * fb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TopKBySimilarity ranks candidates by cosine similarity to query and
// returns, for each candidate whose similarity is >= threshold, its index
// and score, sorted by descending similarity. Candidates are expected to
// already be embedded with the same model as query.
func TopKBySimilarity(query []float32, candidates [][]float32, threshold float64, k int) []ScoredIndex {
	var scored []ScoredIndex
	for i, c := range candidates {
		sim := CosineSimilarity(query, c)
		if sim >= threshold {
			scored = append(scored, ScoredIndex{Index: i, Score: sim})
		}
	}
	sortByScoreDesc(scored)
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// ScoredIndex pairs a candidate's position in its original slice with its
// similarity score.
type ScoredIndex struct {
	Index int
	Score float64
}

func sortByScoreDesc(s []ScoredIndex) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Score > s[j-1].Score; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
