package vectormath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float32{1, 2, 3}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosineSimilarityMismatchedLengths(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1}))
}

func TestTopKBySimilarityOrdersDescendingAndTruncates(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},    // orthogonal, below threshold
		{1, 0},    // identical, sim=1
		{0.9, 0.1}, // close, sim close to 1 but less
	}
	out := TopKBySimilarity(query, candidates, 0.5, 1)
	require := assert.New(t)
	require.Len(out, 1)
	require.Equal(1, out[0].Index)
}
