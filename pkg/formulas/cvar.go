package formulas

import (
	"math"
	"sort"
)

// ValueAtRisk calculates the empirical Value at Risk at the specified
// confidence level: the (1−confidence) percentile of the return
// distribution. For 95% confidence this is the 5th percentile, a negative
// number for loss-making tails.
//
// Args:
//   - returns: Daily fractional returns (can be negative for losses)
//   - confidence: Confidence level (e.g., 0.95 for 95%)
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	return Percentile(returns, (1.0-confidence)*100.0)
}

// ConditionalValueAtRisk calculates CVaR at the specified confidence level.
// CVaR is the mean of the returns at or below the VaR threshold.
//
// Args:
//   - returns: Daily fractional returns
//   - confidence: Confidence level (e.g., 0.95 for 95%)
//
// Returns:
//   - CVaR value; falls back to VaR itself when no returns qualify
//     (degenerate tail)
func ConditionalValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	threshold := ValueAtRisk(returns, confidence)

	sum := 0.0
	count := 0
	for _, r := range returns {
		if r <= threshold {
			sum += r
			count++
		}
	}
	if count == 0 {
		return threshold
	}

	return sum / float64(count)
}

// TailMean averages the worst tailProbability fraction of a sorted-copy of
// values. Used for terminal-value distributions where the tail is defined
// by count rather than by a return threshold.
func TailMean(values []float64, tailProbability float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	if len(values) == 1 {
		return values[0]
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	tailCount := int(math.Ceil(float64(len(sorted)) * tailProbability))
	if tailCount == 0 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}

	tail := sorted[:tailCount]
	sum := 0.0
	for _, v := range tail {
		sum += v
	}
	return sum / float64(len(tail))
}
