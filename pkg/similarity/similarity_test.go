package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1, Cosine([]float32{1, 0, 0}, []float32{1, 0, 0}), 1e-9)
	assert.InDelta(t, 0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

func TestCosineZeroVector(t *testing.T) {
	// 零向量不应触发除零错误
	assert.Equal(t, float64(0), Cosine([]float32{0, 0, 0}, []float32{0, 0, 0}))
	assert.Equal(t, float64(0), Cosine([]float32{1, 2, 3}, []float32{0, 0, 0}))
	assert.Equal(t, float64(0), Cosine(nil, nil))
}

func TestCosineDimensionMismatch(t *testing.T) {
	assert.Equal(t, float64(0), Cosine([]float32{1, 2}, []float32{1, 2, 3}))
}

func TestCentroid(t *testing.T) {
	got := Centroid([][]float32{
		{1, 2, 3},
		{3, 4, 5},
	})
	assert.Equal(t, []float32{2, 3, 4}, got)
}

func TestCentroidEmpty(t *testing.T) {
	assert.Nil(t, Centroid(nil))
	assert.Nil(t, Centroid([][]float32{}))
}

func TestCentroidSkipsMismatchedDimension(t *testing.T) {
	got := Centroid([][]float32{
		{2, 4},
		{1, 2, 3},
		{4, 6},
	})
	assert.Equal(t, []float32{3, 5}, got)
}
