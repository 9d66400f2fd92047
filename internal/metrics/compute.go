package metrics

import (
	"math"
	"sort"
	"strconv"
)

// computeMax returns the largest value, 0 for empty input.
func computeMax(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	largest := values[0]
	for _, v := range values[1:] {
		if v > largest {
			largest = v
		}
	}
	return largest
}

// computeMean calculates arithmetic mean of values.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeMedian returns the middle value, or the mean of the two middle
// values for even-length input. values is not modified.
func computeMedian(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercent returns count/total as a percentage rounded to one decimal.
func computePercent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(count) / float64(total) * 100)
}

// round1 rounds to one decimal place. Ties are resolved on the exact binary
// value with round-half-even, so 0.25 rounds to 0.2 and 0.35 to 0.3.
func round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}
