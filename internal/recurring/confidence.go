package recurring

// Confidence combines two signals: the fraction of pairwise comparisons
// inside a cluster that reach MaxScore (purity), and the number of
// occurrences (saturating count bonus). The result is monotonic in both
// inputs and bounded to [0, 1].
const (
	confidenceBaseWeight  = 0.6
	confidenceCountWeight = 0.4
)

// confidenceScore computes the confidence for a cluster from the number
// of perfect pairwise scores, the total pair count, and the cluster size.
func confidenceScore(perfectPairs, totalPairs, occurrences int) float64 {
	if totalPairs <= 0 || occurrences < 2 {
		return 0
	}

	purity := float64(perfectPairs) / float64(totalPairs)

	// 0 for two occurrences, approaching 1 as the cluster grows.
	saturation := 1 - 1/float64(occurrences-1)

	score := purity * (confidenceBaseWeight + confidenceCountWeight*saturation)
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
