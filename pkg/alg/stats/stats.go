// Package stats provides the descriptive statistics used to rank dimension values.
// All standard deviation calculations use population stddev (÷n, not ÷(n−1)).
package stats

import "math"

// Sum returns the sum of values.
// Returns 0 for an empty slice.
func Sum(values []float64) float64 {
	var total float64

	for _, v := range values {
		total += v
	}

	return total
}

// Mean returns the arithmetic mean of values.
// Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	return Sum(values) / float64(len(values))
}

// MeanStdDev returns the arithmetic mean and population standard deviation.
// Returns (0, 0) for an empty slice.
func MeanStdDev(values []float64) (mean, stddev float64) {
	count := len(values)
	if count == 0 {
		return 0, 0
	}

	mean = Mean(values)

	var sumSq float64

	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}

	return mean, math.Sqrt(sumSq / float64(count))
}

// ZScores returns, for every value, how many standard deviations it lies from
// the mean of the whole slice. A zero deviation yields all-zero scores.
func ZScores(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	mean, stddev := MeanStdDev(values)
	scores := make([]float64, len(values))

	if stddev == 0 {
		return scores
	}

	for i, v := range values {
		scores[i] = (v - mean) / stddev
	}

	return scores
}
