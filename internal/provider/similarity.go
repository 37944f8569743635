package provider

import (
	"math"
)

// CosineSimilarity calculates the cosine similarity between two embedding vectors.
// Returns a value between -1.0 (opposite) and 1.0 (identical).
func CosineSimilarity(embedding1, embedding2 []float64) float64 {
	if len(embedding1) != len(embedding2) || len(embedding1) == 0 {
		return 0.0
	}

	var dotProduct, norm1, norm2 float64
	for i := range embedding1 {
		dotProduct += embedding1[i] * embedding2[i]
		norm1 += embedding1[i] * embedding1[i]
		norm2 += embedding2[i] * embedding2[i]
	}

	if norm1 == 0 || norm2 == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(norm1) * math.Sqrt(norm2))
}

// CosineDistance is 1 - CosineSimilarity, the metric deepface reports for
// "cosine". Identical vectors give 0, orthogonal ones 1.
func CosineDistance(embedding1, embedding2 []float64) float64 {
	d := 1 - CosineSimilarity(embedding1, embedding2)
	if d < 0 {
		return 0
	}
	return d
}
