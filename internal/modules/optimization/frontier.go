package optimization

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DefaultFrontierPoints is the default number of intermediate
// target-return points on the efficient frontier.
const DefaultFrontierPoints = 8

// Frontier traces the efficient frontier between the min-volatility and
// max-Sharpe portfolios. Intermediate points are TARGET_RETURN solves at
// evenly spaced returns between the two anchors; unachievable targets
// are skipped, and the final set is deduplicated and sorted by
// volatility ascending.
func (o *Optimizer) Frontier(inputs Inputs, riskFreeRate float64, constraints Constraints, numPoints int) ([]Result, error) {
	if numPoints <= 0 {
		numPoints = DefaultFrontierPoints
	}

	minVol, err := o.Optimize(inputs, ObjectiveMinVolatility, riskFreeRate, nil, constraints)
	if err != nil {
		return nil, fmt.Errorf("min-volatility anchor: %w", err)
	}
	maxSharpe, err := o.Optimize(inputs, ObjectiveMaxSharpe, riskFreeRate, nil, constraints)
	if err != nil {
		return nil, fmt.Errorf("max-sharpe anchor: %w", err)
	}

	points := []Result{*minVol, *maxSharpe}

	low := math.Min(minVol.ExpectedReturn, maxSharpe.ExpectedReturn)
	high := math.Max(minVol.ExpectedReturn, maxSharpe.ExpectedReturn)
	if high > low {
		step := (high - low) / float64(numPoints+1)
		for i := 1; i <= numPoints; i++ {
			target := low + step*float64(i)
			point, err := o.Optimize(inputs, ObjectiveTargetReturn, riskFreeRate, &target, constraints)
			if err != nil {
				if errors.Is(err, ErrUnachievableTarget) {
					continue
				}
				return nil, fmt.Errorf("frontier point at return %.4f: %w", target, err)
			}
			points = append(points, *point)
		}
	}

	return dedupeByVolatility(points), nil
}

// dedupeByVolatility sorts points by volatility ascending and drops
// points whose volatility coincides with an already-kept one.
func dedupeByVolatility(points []Result) []Result {
	sort.Slice(points, func(a, b int) bool {
		return points[a].Volatility < points[b].Volatility
	})
	out := points[:0]
	for _, p := range points {
		if len(out) > 0 && math.Abs(p.Volatility-out[len(out)-1].Volatility) < 1e-6 {
			continue
		}
		out = append(out, p)
	}
	return out
}
