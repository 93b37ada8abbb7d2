package recurring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceScore_Bounds(t *testing.T) {
	assert.Equal(t, 0.0, confidenceScore(0, 0, 0))
	assert.Equal(t, 0.0, confidenceScore(1, 1, 1))
	assert.Equal(t, 0.0, confidenceScore(0, 3, 3))

	for n := 2; n <= 24; n++ {
		pairs := n * (n - 1) / 2
		score := confidenceScore(pairs, pairs, n)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestConfidenceScore_MonotonicInPurity(t *testing.T) {
	previous := -1.0
	for perfect := 0; perfect <= 10; perfect++ {
		score := confidenceScore(perfect, 10, 5)
		assert.Greater(t, score, previous)
		previous = score
	}
}

func TestConfidenceScore_MonotonicInCount(t *testing.T) {
	// Fully consistent clusters: more occurrences never lower confidence.
	previous := -1.0
	for n := 2; n <= 12; n++ {
		pairs := n * (n - 1) / 2
		score := confidenceScore(pairs, pairs, n)
		assert.Greater(t, score, previous, "n=%d", n)
		previous = score
	}
}

func TestConfidenceScore_ThreePerfectOccurrences(t *testing.T) {
	// Three transactions, every pair scoring max, must clear the
	// projection threshold.
	assert.Greater(t, confidenceScore(3, 3, 3), 0.7)
}

func TestConfidenceScore_TwoOccurrencesStayBelowThreshold(t *testing.T) {
	assert.LessOrEqual(t, confidenceScore(1, 1, 2), 0.7)
}
