package clip

import "math"

// Scaling applied to cosine similarities before the softmax, matching the
// trained CLIP logit scale.
const logitScale = 100.0

// cosine returns the cosine similarity of two vectors.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// softmax converts raw scores to a probability distribution.
func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	var sum float64
	probs := make([]float64, len(scores))
	for i, s := range scores {
		probs[i] = math.Exp(s - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// reduceToLabels collapses per-phrasing probabilities back to the label
// vocabulary: every label owns a contiguous block of perLabel phrasings and
// scores as the maximum over its block. Probabilities below threshold are
// dropped. The returned parallel slices are unsorted; fusion orders them.
func reduceToLabels(probs []float64, labels []string, perLabel int, threshold float64) ([]string, []float64) {
	var outLabels []string
	var outScores []float64
	for i, label := range labels {
		start := i * perLabel
		end := start + perLabel
		if end > len(probs) {
			break
		}
		best := 0.0
		for _, p := range probs[start:end] {
			if p > best {
				best = p
			}
		}
		if best >= threshold {
			outLabels = append(outLabels, label)
			outScores = append(outScores, best)
		}
	}
	return outLabels, outScores
}
