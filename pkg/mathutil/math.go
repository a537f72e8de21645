// Package mathutil provides small numeric helpers shared by scoring code.
package mathutil

import "math"

// Mean returns the arithmetic mean of the values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the population variance of the values, 0 for an empty slice.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var acc float64
	for _, v := range values {
		d := v - mean
		acc += d * d
	}
	return acc / float64(len(values))
}

// CalcMeanStd calculates the mean and standard deviation of a slice of float32
// scores. Returns (0, 1) for empty slices to avoid division by zero in
// normalization, and clamps a zero std to 1 for the same reason.
func CalcMeanStd(scores []float32) (mean, std float32) {
	if len(scores) == 0 {
		return 0, 1
	}

	var sum float32
	for _, s := range scores {
		sum += s
	}
	mean = sum / float32(len(scores))

	var variance float32
	for _, s := range scores {
		diff := s - mean
		variance += diff * diff
	}
	variance /= float32(len(scores))
	std = float32(math.Sqrt(float64(variance)))

	if std == 0 {
		std = 1
	}

	return mean, std
}

// Sigmoid applies the logistic function: sigmoid(z) = 1 / (1 + e^(-z)).
func Sigmoid(z float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-z))))
}

// Clamp01 clamps a value to the [0, 1] interval.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Round3 rounds a value to three decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ClampLimit validates a pagination limit, applying default and max constraints.
// If limit <= 0, returns defaultVal. If limit > maxVal, returns maxVal.
func ClampLimit(limit, defaultVal, maxVal int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit > maxVal {
		return maxVal
	}
	return limit
}
