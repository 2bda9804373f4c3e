package clip

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestSoftmax(t *testing.T) {
	probs := softmax([]float64{1, 2, 3})
	require.Len(t, probs, 3)

	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.True(t, probs[2] > probs[1] && probs[1] > probs[0])
}

func TestSoftmax_LargeScoresStable(t *testing.T) {
	probs := softmax([]float64{1000, 1001})
	require.Len(t, probs, 2)
	assert.False(t, math.IsNaN(probs[0]))
	assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-9)
}

func TestReduceToLabels_MaxPerBlock(t *testing.T) {
	labels := []string{"hammer", "drill"}
	// Two phrasings per label; the best phrasing wins for each.
	probs := []float64{0.1, 0.6, 0.4, 0.2}

	got, scores := reduceToLabels(probs, labels, 2, 0.3)
	require.Equal(t, []string{"hammer", "drill"}, got)
	assert.Equal(t, []float64{0.6, 0.4}, scores)
}

func TestReduceToLabels_Threshold(t *testing.T) {
	labels := []string{"hammer", "drill"}
	probs := []float64{0.1, 0.2, 0.5, 0.1}

	got, scores := reduceToLabels(probs, labels, 2, 0.3)
	require.Equal(t, []string{"drill"}, got)
	assert.Equal(t, []float64{0.5}, scores)
}

func TestReduceToLabels_Empty(t *testing.T) {
	got, scores := reduceToLabels(nil, []string{"hammer"}, 5, 0.3)
	assert.Empty(t, got)
	assert.Empty(t, scores)
}

func TestAllPhrases(t *testing.T) {
	phrases := allPhrases()
	require.Len(t, phrases, len(toolVocabulary)*len(phrasingTemplates))
	assert.Equal(t, "a photo of a hammer", phrases[0])
	assert.Equal(t, "a hammer tool", phrases[len(phrasingTemplates)-1])
}
