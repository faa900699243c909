// Package stats provides the summary statistics used by the outlier rules.
package stats

import "math"

// Mean returns the arithmetic mean of xs, or 0 for an empty sample.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleStdDev returns the sample standard deviation (n-1 denominator).
// Samples with fewer than two values have a deviation of 0.
func SampleStdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// ZScore returns (x - mean) / sd, or 0 when sd is 0 or not finite.
func ZScore(x, mean, sd float64) float64 {
	if sd == 0 || math.IsNaN(sd) || math.IsInf(sd, 0) {
		return 0
	}
	return (x - mean) / sd
}

// Summary is the mean and sample deviation of one cohort.
type Summary struct {
	N      int
	Mean   float64
	StdDev float64
}

// Summarize computes a Summary over xs.
func Summarize(xs []float64) Summary {
	return Summary{N: len(xs), Mean: Mean(xs), StdDev: SampleStdDev(xs)}
}

// Z returns the z-score of x within the cohort.
func (s Summary) Z(x float64) float64 {
	return ZScore(x, s.Mean, s.StdDev)
}

// Clamp bounds v to [lo, hi]. NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
